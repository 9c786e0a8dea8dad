package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/helioapps/purchasekit/errs"
	"github.com/helioapps/purchasekit/session"
)

const (
	headerAPIKey     = "X-Api-Key"
	headerDeviceUUID = "X-Device-Uuid"
	headerUserID     = "X-User-Id"

	defaultMaxAttempts = 3
)

// TokenProvider supplies the bearer token attached to every request
// and refreshes it when the backend answers unauthorized.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// SessionSource exposes the identity headers attached per request.
// *session.Manager satisfies it.
type SessionSource interface {
	Current() session.Identity
	LanguageCode(ctx context.Context) string
}

// Client is the resilient request client for the backend service. All
// responses travel in a {meta, data, error} envelope; a 2xx with a
// missing data field is a decode failure, never a silent success.
type Client struct {
	log    *zap.Logger
	http   *resty.Client
	tokens TokenProvider
	sess   SessionSource

	maxAttempts int
}

type Option func(*Client)

// WithMaxAttempts bounds the unauthorized refresh-and-retry loop.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = resty.NewWithClient(hc).SetBaseURL(c.http.BaseURL)
	}
}

func NewClient(
	log *zap.Logger,
	baseURL string,
	apiKey string,
	tokens TokenProvider,
	sess SessionSource,
	opts ...Option,
) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, errs.New(errs.DomainBackend, errs.CodeInvalidEndpoint, "invalid base url "+baseURL)
	}

	c := &Client{
		log:         log,
		http:        resty.New().SetBaseURL(baseURL),
		tokens:      tokens,
		sess:        sess,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.SetHeader(headerAPIKey, apiKey)

	return c, nil
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
}

// send performs one round trip and decodes the envelope. The
// unauthorized outcome is reported as-is so sendWithRetry can react.
func send[T any](ctx context.Context, c *Client, req request) (*T, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, errs.Wrap(err, errs.DomainBackend, errs.CodeUnauthorized, "obtaining token")
	}

	r := c.http.R().
		SetContext(ctx).
		SetAuthToken(token)

	identity := c.sess.Current()
	if identity.DeviceUUID != "" {
		r.SetHeader(headerDeviceUUID, identity.DeviceUUID)
	}
	if identity.UserID != "" {
		r.SetHeader(headerUserID, identity.UserID)
	}
	if lang := c.sess.LanguageCode(ctx); lang != "" {
		r.SetHeader("Accept-Language", lang)
	}

	if req.query != nil {
		r.SetQueryParamsFromValues(req.query)
	}
	if req.body != nil {
		r.SetBody(req.body)
	}

	resp, err := r.Execute(req.method, req.path)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, errs.Wrap(err, errs.DomainBackend, errs.CodeNoResponse, "no response")
		}
		return nil, errs.Wrap(err, errs.DomainBackend, errs.CodeTransportFailure, "transport failure")
	}

	return decodeEnvelope[T](resp)
}

// sendWithRetry retries only the unauthorized outcome: the token is
// refreshed and the same request replayed, once per attempt, up to
// maxAttempts. Every other failure passes through unchanged.
func sendWithRetry[T any](ctx context.Context, c *Client, req request) (*T, error) {
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		data, err := send[T](ctx, c, req)
		if err == nil {
			return data, nil
		}
		if !errs.IsCode(err, errs.CodeUnauthorized) {
			return nil, err
		}

		c.log.Debug("Unauthorized response, refreshing token",
			zap.Int("attempt", attempt),
			zap.String("path", req.path),
		)

		if _, refreshErr := c.tokens.Refresh(ctx); refreshErr != nil {
			return nil, errs.Wrap(refreshErr, errs.DomainBackend, errs.CodeUnauthorized, "token refresh failed")
		}
	}

	return nil, errs.RetryExhausted(c.maxAttempts)
}
