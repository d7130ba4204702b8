// Package routes 注册奖金服务的HTTP路由
package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sales_bonus/handlers"
)

// SetupRoutes 设置所有API路由
// 调用各个模块的路由注册函数
func SetupRoutes(app *fiber.App) {
	app.Get("/healthz", handlers.Healthz)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API路由组
	api := app.Group("/api")

	RegisterSalesmanRoutes(api)
	RegisterSocialPerformanceRoutes(api)
	RegisterBonusRoutes(api)
}
