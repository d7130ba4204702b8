package hrm

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultTokenSkew 令牌在过期前多久被视为失效
	DefaultTokenSkew = time.Minute

	// DefaultTokenTTL 既没有expires_in也不是JWT时假定的有效期
	DefaultTokenTTL = time.Hour
)

// Token HR系统访问令牌
type Token struct {
	AccessToken string
	ExpiresAt   time.Time // 零值表示未知
}

// Issuer 签发令牌
type Issuer interface {
	IssueToken(ctx context.Context) (*Token, error)
}

// TokenSource 为每次调用提供访问令牌
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// PasswordGrant 每次调用都重新认证，不缓存
type PasswordGrant struct {
	issuer Issuer
}

// NewPasswordGrant 创建不缓存的令牌来源
func NewPasswordGrant(issuer Issuer) *PasswordGrant {
	return &PasswordGrant{issuer: issuer}
}

// Token 实现 TokenSource
func (p *PasswordGrant) Token(ctx context.Context) (string, error) {
	token, err := p.issuer.IssueToken(ctx)
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// CachingTokenSource 缓存令牌直到过期前skew
type CachingTokenSource struct {
	issuer Issuer
	skew   time.Duration
	now    func() time.Time

	mu     sync.Mutex
	cached *Token
}

// NewCachingTokenSource 创建缓存令牌来源
func NewCachingTokenSource(issuer Issuer, skew time.Duration) *CachingTokenSource {
	return &CachingTokenSource{
		issuer: issuer,
		skew:   skew,
		now:    time.Now,
	}
}

// Token 实现 TokenSource
func (c *CachingTokenSource) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && c.now().Before(c.cached.ExpiresAt.Add(-c.skew)) {
		return c.cached.AccessToken, nil
	}

	token, err := c.issuer.IssueToken(ctx)
	if err != nil {
		return "", err
	}
	cached := *token
	if cached.ExpiresAt.IsZero() {
		cached.ExpiresAt = c.now().Add(DefaultTokenTTL)
	}
	c.cached = &cached
	return cached.AccessToken, nil
}

// Invalidate 丢弃缓存的令牌
func (c *CachingTokenSource) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
}
