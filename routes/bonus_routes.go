package routes

import (
	"github.com/gofiber/fiber/v2"

	"sales_bonus/handlers"
)

// RegisterBonusRoutes 注册奖金同步与审批路由
func RegisterBonusRoutes(router fiber.Router) {
	bonus := router.Group("/bonus")

	// 外部系统同步
	bonus.Post("/integration/orangehrm/sync-employees", handlers.SyncEmployees)
	bonus.Post("/orders/fetch/:sid/:year", handlers.FetchOrders)

	bonus.Post("/social-performance", handlers.CreateBonusSocialPerformance)
	bonus.Get("/orders/:sid/:year", handlers.GetOrders)
	bonus.Get("/cockpit/:sid/:year", handlers.GetCockpit)

	// 审批流程
	bonus.Post("/orders/review/:sid/:year", handlers.ReviewOrders) // HR审核订单
	bonus.Post("/approve/final/:sid/:year", handlers.ApproveFinal) // CEO最终审批
	bonus.Post("/approve/:sid/:year", handlers.ApproveBonus)       // CEO批准社会绩效
}
