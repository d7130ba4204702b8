// Package middleware 提供HTTP中间件
package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader 请求ID使用的响应头
const RequestIDHeader = "X-Request-ID"

// RequestID 为每个请求生成UUID，客户端带了请求ID时沿用客户端的值
func RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     RequestIDHeader,
		Generator:  uuid.NewString,
		ContextKey: "requestid",
	})
}

// RequestLogger 使用zap记录每个请求
// 5xx记为Error，4xx记为Warn，其余为Info
func RequestLogger(logger *zap.Logger) fiber.Handler {
	logger = logger.Named("access")

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		fields := []zap.Field{
			zap.String("request_id", requestIDOf(c)),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			logger.Error("请求完成", fields...)
		case status >= fiber.StatusBadRequest:
			logger.Warn("请求完成", fields...)
		default:
			logger.Info("请求完成", fields...)
		}
		return err
	}
}

func requestIDOf(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return c.GetRespHeader(RequestIDHeader)
}
