package backend

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// StaticTokenProvider serves a fixed token and rotates it through an
// optional refresh func. With no refresh func, Refresh re-serves the
// same token; a backend that keeps rejecting it will exhaust the retry
// budget rather than loop forever.
type StaticTokenProvider struct {
	mu      sync.Mutex
	token   string
	refresh func(ctx context.Context) (string, error)
}

func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{token: token}
}

// NewRefreshingTokenProvider rotates tokens via refresh on demand.
func NewRefreshingTokenProvider(initial string, refresh func(ctx context.Context) (string, error)) *StaticTokenProvider {
	return &StaticTokenProvider{token: initial, refresh: refresh}
}

func (p *StaticTokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token == "" {
		return "", errors.New("no token configured")
	}
	return p.token, nil
}

func (p *StaticTokenProvider) Refresh(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.refresh == nil {
		return p.token, nil
	}

	token, err := p.refresh(ctx)
	if err != nil {
		return "", err
	}
	p.token = token
	return token, nil
}
