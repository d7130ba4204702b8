package routes

import (
	"github.com/gofiber/fiber/v2"

	"sales_bonus/handlers"
)

// RegisterSocialPerformanceRoutes 注册社会绩效路由
func RegisterSocialPerformanceRoutes(router fiber.Router) {
	social := router.Group("/social-performance")

	social.Post("", handlers.CreateSocialPerformance)   // 录入社会绩效
	social.Get("/:sid", handlers.GetSocialPerformances) // 查询销售员的社会绩效
}
