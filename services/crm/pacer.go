package crm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer 控制逐单明细请求的节奏
// CRM系统会拒绝连续的快速请求，每次明细请求前都要先经过Pacer
type Pacer interface {
	Wait(ctx context.Context) error
}

// FixedDelay 每次请求前固定等待一段时间
type FixedDelay struct {
	Delay time.Duration
}

// NewFixedDelay 创建固定间隔的Pacer
func NewFixedDelay(delay time.Duration) *FixedDelay {
	return &FixedDelay{Delay: delay}
}

// Wait 实现 Pacer
func (p *FixedDelay) Wait(ctx context.Context) error {
	if p.Delay <= 0 {
		return nil
	}

	timer := time.NewTimer(p.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RateLimited 令牌桶限速
type RateLimited struct {
	limiter *rate.Limiter
}

// NewRateLimited 创建令牌桶Pacer，qps为每秒允许的请求数
func NewRateLimited(qps float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{limiter: rate.NewLimiter(rate.Limit(qps), burst)}
}

// Wait 实现 Pacer
func (p *RateLimited) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
