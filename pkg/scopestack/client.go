// Package scopestack provides authenticated JSON:API access to the ScopeStack
// project-management API.
package scopestack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/estimate-cli/internal/model"
)

const defaultBaseURL = "https://api.scopestack.io"

// Client defines the ScopeStack operations used by the estimate workflow.
type Client interface {
	Me(ctx context.Context) (*model.Account, error)

	ListQuestionnaires(ctx context.Context, tag string) ([]model.Questionnaire, error)
	GetQuestionnaire(ctx context.Context, id string) (*model.Questionnaire, error)

	SearchClients(ctx context.Context, term string) ([]model.Client, error)
	CreateClient(ctx context.Context, accountID, name string) (*model.Client, error)

	CreateProject(ctx context.Context, req CreateProjectRequest) (*model.Project, error)
	GetProject(ctx context.Context, id string) (*model.Project, error)
	CreateProjectContact(ctx context.Context, projectID string, contact model.Contact) (*model.Contact, error)

	CreateSurvey(ctx context.Context, req CreateSurveyRequest) (*model.Survey, error)
	CalculateSurvey(ctx context.Context, id string) (*model.Survey, error)
	GetSurvey(ctx context.Context, id string) (*model.Survey, error)
	ListSurveyRecommendations(ctx context.Context, id string) ([]model.Recommendation, error)
	ApplySurvey(ctx context.Context, id string) ([]model.Recommendation, error)

	ListDocumentTemplates(ctx context.Context) ([]model.DocumentTemplate, error)
	CreateProjectDocument(ctx context.Context, req CreateDocumentRequest) (*model.ProjectDocument, error)
	ListProjectDocuments(ctx context.Context, projectID string) ([]model.ProjectDocument, error)

	ListProjectServices(ctx context.Context, projectID string) ([]model.ProjectService, error)

	ListRateTables(ctx context.Context) ([]model.RateTable, error)
	ListPaymentTerms(ctx context.Context) ([]model.PaymentTerm, error)
	SearchSalesExecutives(ctx context.Context, term string) ([]model.SalesExecutive, error)
	ListProjectVariables(ctx context.Context) ([]model.ProjectVariable, error)
}

// RemoteError is returned when ScopeStack responds with a non-2xx status.
type RemoteError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("scopestack: %s: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}

// TokenSource supplies a valid bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource for long-lived API tokens.
type StaticToken string

// Token returns the token unchanged.
func (s StaticToken) Token(context.Context) (string, error) {
	if s == "" {
		return "", eris.New("scopestack: no api token configured")
	}
	return string(s), nil
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default API host. Empty values are ignored.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithAccountSlug sets the account slug used for account-scoped paths.
func WithAccountSlug(slug string) Option {
	return func(c *httpClient) {
		c.accountSlug = slug
	}
}

// WithRateLimit sets a per-second request limit. A burst equal to the integer
// portion of rps is allowed.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	tokens      TokenSource
	baseURL     string
	accountSlug string
	http        *http.Client
	limiter     *rate.Limiter
}

// NewClient creates a ScopeStack client authenticating through tokens.
func NewClient(tokens TokenSource, opts ...Option) Client {
	c := &httpClient{
		tokens:  tokens,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// scoped returns an account-scoped API path.
func (c *httpClient) scoped(path string) string {
	return "/" + c.accountSlug + "/v1" + path
}

func (c *httpClient) get(ctx context.Context, op, path string, query url.Values) (*Document, error) {
	return c.do(ctx, op, http.MethodGet, path, query, nil)
}

func (c *httpClient) post(ctx context.Context, op, path string, data Resource) (*Document, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "scopestack: marshal resource")
	}
	return c.do(ctx, op, http.MethodPost, path, nil, &Document{Data: raw})
}

func (c *httpClient) put(ctx context.Context, op, path string) (*Document, error) {
	return c.do(ctx, op, http.MethodPut, path, nil, nil)
}

func (c *httpClient) do(ctx context.Context, op, method, path string, query url.Values, body *Document) (*Document, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "scopestack: rate limit")
		}
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "scopestack: obtain token")
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, eris.Wrap(err, "scopestack: marshal request")
		}
		reader = bytes.NewReader(buf)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, eris.Wrap(err, "scopestack: create request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", MediaType)
	if body != nil {
		req.Header.Set("Content-Type", MediaType)
	}

	zap.L().Debug("scopestack: request", zap.String("op", op), zap.String("method", method), zap.String("path", path))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "scopestack: %s", op)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "scopestack: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RemoteError{Op: op, StatusCode: resp.StatusCode, Body: string(data)}
	}

	var doc Document
	if len(bytes.TrimSpace(data)) == 0 {
		return &doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "scopestack: %s: decode response", op)
	}
	return &doc, nil
}
