package routes

import (
	"github.com/gofiber/fiber/v2"

	"sales_bonus/handlers"
)

// RegisterSalesmanRoutes 注册销售员相关路由
// 销售员没有删除接口
func RegisterSalesmanRoutes(router fiber.Router) {
	salesmen := router.Group("/salesmen")

	salesmen.Post("", handlers.CreateSalesman)     // 创建销售员
	salesmen.Get("", handlers.GetSalesmen)         // 查询销售员列表
	salesmen.Get("/:sid", handlers.GetSalesman)    // 获取单个销售员
	salesmen.Put("/:sid", handlers.UpdateSalesman) // 更新销售员
}
