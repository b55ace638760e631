// Package resolver finds or creates the customer a project is created
// against and resolves which of its contacts becomes the project contact.
package resolver

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/estimate-cli/internal/model"
	"github.com/sells-group/estimate-cli/pkg/scopestack"
)

const (
	defaultMinChars  = 2
	defaultCacheSize = 256
	defaultCacheTTL  = time.Minute
)

// Resolver serves search-as-you-type lookups and client resolution.
type Resolver struct {
	client   scopestack.Client
	minChars int

	clients    *expirable.LRU[string, []model.Client]
	executives *expirable.LRU[string, []model.SalesExecutive]
}

type options struct {
	minChars  int
	cacheSize int
	cacheTTL  time.Duration
}

// Option configures a Resolver.
type Option func(*options)

// WithMinChars sets the minimum search term length. Shorter terms return an
// empty result without a remote call.
func WithMinChars(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.minChars = n
		}
	}
}

// WithCache sets the search cache size and entry lifetime.
func WithCache(size int, ttl time.Duration) Option {
	return func(o *options) {
		if size > 0 {
			o.cacheSize = size
		}
		if ttl > 0 {
			o.cacheTTL = ttl
		}
	}
}

// New creates a Resolver backed by client.
func New(client scopestack.Client, opts ...Option) *Resolver {
	o := options{
		minChars:  defaultMinChars,
		cacheSize: defaultCacheSize,
		cacheTTL:  defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Resolver{
		client:     client,
		minChars:   o.minChars,
		clients:    expirable.NewLRU[string, []model.Client](o.cacheSize, nil, o.cacheTTL),
		executives: expirable.NewLRU[string, []model.SalesExecutive](o.cacheSize, nil, o.cacheTTL),
	}
}

// searchKey normalizes term and reports whether it passes the length gate.
func (r *Resolver) searchKey(term string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(term))
	return key, len([]rune(key)) >= r.minChars
}

// SearchClients returns active clients whose name matches term, with their
// contacts expanded.
func (r *Resolver) SearchClients(ctx context.Context, term string) ([]model.Client, error) {
	key, ok := r.searchKey(term)
	if !ok {
		return nil, nil
	}
	if cached, hit := r.clients.Get(key); hit {
		return cached, nil
	}

	clients, err := r.client.SearchClients(ctx, strings.TrimSpace(term))
	if err != nil {
		return nil, eris.Wrapf(err, "resolver: search clients %q", term)
	}
	r.clients.Add(key, clients)
	return clients, nil
}

// SearchExecutives returns sales executives whose name matches term.
func (r *Resolver) SearchExecutives(ctx context.Context, term string) ([]model.SalesExecutive, error) {
	key, ok := r.searchKey(term)
	if !ok {
		return nil, nil
	}
	if cached, hit := r.executives.Get(key); hit {
		return cached, nil
	}

	execs, err := r.client.SearchSalesExecutives(ctx, strings.TrimSpace(term))
	if err != nil {
		return nil, eris.Wrapf(err, "resolver: search executives %q", term)
	}
	r.executives.Add(key, execs)
	return execs, nil
}

// ResolveOrCreateClient returns selected when the caller picked an existing
// client, and otherwise creates a client named name under accountID.
func (r *Resolver) ResolveOrCreateClient(ctx context.Context, name, accountID string, selected *model.Client) (*model.Client, error) {
	if selected != nil && selected.ID != "" {
		zap.L().Debug("resolver: reusing selected client",
			zap.String("client_id", selected.ID),
			zap.String("client_name", selected.Name),
		)
		return selected, nil
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &model.ValidationError{Fields: []string{"client_name"}}
	}
	if accountID == "" {
		return nil, &model.ValidationError{Fields: []string{"account_id"}}
	}

	created, err := r.client.CreateClient(ctx, accountID, name)
	if err != nil {
		return nil, eris.Wrapf(err, "resolver: create client %q", name)
	}
	// A new client must show up in subsequent searches.
	r.clients.Purge()

	zap.L().Info("resolver: created client",
		zap.String("client_id", created.ID),
		zap.String("client_name", created.Name),
	)
	return created, nil
}
