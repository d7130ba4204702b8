package handlers

import (
	"github.com/gofiber/fiber/v2"

	"sales_bonus/models"
	"sales_bonus/utils"
)

// CreateSalesman 创建销售员
// sid已存在时返回400
func CreateSalesman(c *fiber.Ctx) error {
	var input models.SalesmanInput
	if err := parseBody(c, &input); err != nil {
		return respondError(c, err)
	}

	salesman := input.Model()
	if err := service.Store().CreateSalesman(c.UserContext(), salesman); err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "销售员创建成功",
		"data":    salesman,
	})
}

// GetSalesmen 查询销售员列表，可按sid和年度筛选
func GetSalesmen(c *fiber.Ctx) error {
	var query models.SalesmanQuery
	if err := c.QueryParser(&query); err != nil {
		return respondError(c, utils.ValidationError("查询参数解析失败: %v", err))
	}

	salesmen, err := service.Store().FindSalesmen(c.UserContext(), query)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"data":  salesmen,
		"total": len(salesmen),
	})
}

// GetSalesman 获取单个销售员
func GetSalesman(c *fiber.Ctx) error {
	sid, err := parseSID(c)
	if err != nil {
		return respondError(c, err)
	}

	salesman, err := service.Store().GetSalesman(c.UserContext(), sid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": salesman})
}

// UpdateSalesman 更新销售员，只修改请求中出现的字段
func UpdateSalesman(c *fiber.Ctx) error {
	sid, err := parseSID(c)
	if err != nil {
		return respondError(c, err)
	}

	var input models.SalesmanUpdate
	if err := parseBody(c, &input); err != nil {
		return respondError(c, err)
	}

	salesman, err := service.Store().UpdateSalesman(c.UserContext(), sid, input.Columns())
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "销售员更新成功",
		"data":    salesman,
	})
}
