package scopestack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/estimate-cli/internal/resilience"
)

const (
	defaultTokenURL       = "https://app.scopestack.io/oauth/token"
	defaultSkew           = 30 * time.Second
	defaultRefreshTimeout = time.Minute
)

// RefreshTokenSaver persists a rotated refresh token for future sessions.
type RefreshTokenSaver interface {
	SaveRefreshToken(ctx context.Context, token string) error
}

// CredentialsConfig configures a Credentials manager.
type CredentialsConfig struct {
	AccessToken    string
	RefreshToken   string
	TokenURL       string
	ClientID       string
	ClientSecret   string
	HTTPClient     *http.Client
	Saver          RefreshTokenSaver
	Retry          resilience.RetryConfig
	RefreshTimeout time.Duration // bounds one shared exchange. Default: 1m.
}

// Credentials holds the process-wide access/refresh token pair. The pair is
// swapped atomically on refresh and concurrent callers share one exchange.
type Credentials struct {
	mu      sync.RWMutex
	access  string
	refresh string

	tokenURL     string
	clientID     string
	clientSecret string
	http         *http.Client
	saver        RefreshTokenSaver
	retry        resilience.RetryConfig
	timeout      time.Duration

	group singleflight.Group
	now   func() time.Time
	skew  time.Duration
}

// NewCredentials creates a Credentials manager.
func NewCredentials(cfg CredentialsConfig) *Credentials {
	c := &Credentials{
		access:       cfg.AccessToken,
		refresh:      cfg.RefreshToken,
		tokenURL:     cfg.TokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		http:         cfg.HTTPClient,
		saver:        cfg.Saver,
		retry:        cfg.Retry,
		timeout:      cfg.RefreshTimeout,
		now:          time.Now,
		skew:         defaultSkew,
	}
	if c.tokenURL == "" {
		c.tokenURL = defaultTokenURL
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 15 * time.Second}
	}
	if c.timeout <= 0 {
		c.timeout = defaultRefreshTimeout
	}
	if c.retry.MaxAttempts == 0 {
		c.retry = resilience.DefaultRetryConfig()
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("scopestack", "refresh_token")
	}
	return c
}

// Token returns a non-expired access token, refreshing it first if needed.
// Concurrent callers share one exchange. The exchange is detached from any
// single caller's context, so a caller that gives up does not fail the
// others waiting on it.
func (c *Credentials) Token(ctx context.Context) (string, error) {
	c.mu.RLock()
	current := c.access
	c.mu.RUnlock()

	if current != "" && !c.expired(current) {
		return current, nil
	}

	ch := c.group.DoChan("refresh", func() (any, error) {
		// A refresh may have completed between the read above and here.
		c.mu.RLock()
		latest := c.access
		c.mu.RUnlock()
		if latest != "" && latest != current && !c.expired(latest) {
			return latest, nil
		}
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.exchange(rctx)
	})

	select {
	case <-ctx.Done():
		return "", eris.Wrap(ctx.Err(), "scopestack: wait for token refresh")
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// pair returns a copy of the current token pair.
func (c *Credentials) pair() (access, refresh string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.access, c.refresh
}

// expired decodes the exp claim without verifying the signature. Tokens that
// are not JWTs or carry no exp never expire.
func (c *Credentials) expired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !c.now().Add(c.skew).Before(exp.Time)
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (c *Credentials) exchange(ctx context.Context) (string, error) {
	c.mu.RLock()
	refresh := c.refresh
	c.mu.RUnlock()

	if refresh == "" {
		return "", eris.New("scopestack: access token expired and no refresh token is configured")
	}

	tok, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*tokenResponse, error) {
		return c.requestToken(ctx, refresh)
	})
	if err != nil {
		return "", eris.Wrap(err, "scopestack: refresh token")
	}

	c.mu.Lock()
	c.access = tok.AccessToken
	if tok.RefreshToken != "" {
		c.refresh = tok.RefreshToken
	}
	newRefresh := c.refresh
	c.mu.Unlock()

	zap.L().Info("scopestack: access token refreshed", zap.Int64("expires_in", tok.ExpiresIn))

	if c.saver != nil && tok.RefreshToken != "" {
		if err := c.saver.SaveRefreshToken(ctx, newRefresh); err != nil {
			zap.L().Warn("scopestack: failed to persist refresh token", zap.Error(err))
		}
	}
	return tok.AccessToken, nil
}

func (c *Credentials) requestToken(ctx context.Context, refresh string) (*tokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refresh)
	if c.clientID != "" {
		form.Set("client_id", c.clientID)
	}
	if c.clientSecret != "" {
		form.Set("client_secret", c.clientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "create token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "execute token request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read token response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		remote := &RemoteError{Op: "refresh token", StatusCode: resp.StatusCode, Body: string(data)}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(remote, resp.StatusCode)
		}
		return nil, remote
	}

	var tok tokenResponse
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, eris.Wrap(err, "decode token response")
	}
	if tok.AccessToken == "" {
		return nil, eris.New("token response has no access_token")
	}
	return &tok, nil
}
