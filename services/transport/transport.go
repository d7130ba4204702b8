// Package transport 封装对外部系统的HTTP调用
// 统一处理超时、响应大小限制、日志和指标
package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"sales_bonus/metrics"
)

// MaxResponseSize 响应体最大字节数（20MB），CRM的全量列表可能比较大
const MaxResponseSize = 20 * 1024 * 1024

// PoolConfig 连接池配置
type PoolConfig struct {
	Timeout         time.Duration // 单次请求的总超时
	DialTimeout     time.Duration // 建连超时，同时作为空闲连接超时
	MaxConnsPerHost int           // 每个主机的最大连接数，0表示不限制
	KeepAlive       bool          // 是否复用连接
}

// NewHTTPClient 按配置创建http.Client
func NewHTTPClient(cfg PoolConfig) *http.Client {
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		MaxIdleConnsPerHost: cfg.MaxConnsPerHost,
		IdleConnTimeout:     cfg.DialTimeout,
		DisableKeepAlives:   !cfg.KeepAlive,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}
}

// StatusError 外部系统返回了非2xx状态码
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Do 执行请求并读取响应体
// system 与 operation 只用于日志和指标标签。每个请求只尝试一次，不做重试。
func Do(ctx context.Context, client *http.Client, log *zap.Logger, system, operation string, req *http.Request) ([]byte, error) {
	start := time.Now()
	body, err := do(ctx, client, req)
	elapsed := time.Since(start)

	metrics.ExternalRequestsTotal.WithLabelValues(system, operation, metrics.Outcome(err)).Inc()
	metrics.ExternalRequestDuration.WithLabelValues(system, operation).Observe(elapsed.Seconds())

	if err != nil {
		log.Warn("外部调用失败",
			zap.String("system", system),
			zap.String("operation", operation),
			zap.String("url", req.URL.String()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return nil, err
	}

	log.Debug("外部调用完成",
		zap.String("system", system),
		zap.String("operation", operation),
		zap.Duration("elapsed", elapsed))
	return body, nil
}

func do(ctx context.Context, client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response body too large (max %d bytes)", MaxResponseSize)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: snippet}
	}

	return body, nil
}
