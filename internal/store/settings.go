package store

import (
	"context"

	"github.com/rotisserie/eris"
)

// Setting keys.
const (
	KeyRefreshToken   = "scopestack.refresh_token"
	KeyPromptTemplate = "summary.prompt_template"
)

// Settings exposes typed accessors over the store's key/value settings.
type Settings struct {
	store Store
}

// NewSettings wraps s.
func NewSettings(s Store) *Settings {
	return &Settings{store: s}
}

// RefreshToken returns the persisted refresh token, or "" if none is saved.
func (s *Settings) RefreshToken(ctx context.Context) (string, error) {
	v, _, err := s.store.GetSetting(ctx, KeyRefreshToken)
	return v, err
}

// SaveRefreshToken persists a rotated refresh token.
func (s *Settings) SaveRefreshToken(ctx context.Context, token string) error {
	if token == "" {
		return eris.New("store: refusing to save empty refresh token")
	}
	return s.store.SetSetting(ctx, KeyRefreshToken, token)
}

// LoadTemplate returns the saved prompt template. ok is false when the user
// has not saved one.
func (s *Settings) LoadTemplate(ctx context.Context) (string, bool, error) {
	return s.store.GetSetting(ctx, KeyPromptTemplate)
}

// SaveTemplate persists an edited prompt template.
func (s *Settings) SaveTemplate(ctx context.Context, tmpl string) error {
	return s.store.SetSetting(ctx, KeyPromptTemplate, tmpl)
}

// ResetTemplate deletes the saved prompt template so the default applies.
func (s *Settings) ResetTemplate(ctx context.Context) error {
	return s.store.DeleteSetting(ctx, KeyPromptTemplate)
}
