package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"sales_bonus/models"
)

// SyncEmployees 从HR系统同步销售员主数据
func SyncEmployees(c *fiber.Ctx) error {
	count, err := service.SyncEmployees(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("已从HR系统同步 %d 名销售员", count),
		"count":   count,
	})
}

// FetchOrders 从CRM读取订单并计算订单奖金
func FetchOrders(c *fiber.Ctx) error {
	sid, year, err := parseSIDYear(c)
	if err != nil {
		return respondError(c, err)
	}

	records, err := service.SyncOrders(c.UserContext(), sid, year)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("已处理销售员 %d 的 %d 个订单", sid, len(records)),
		"data":    records,
	})
}

// GetOrders 查询已保存的订单绩效
func GetOrders(c *fiber.Ctx) error {
	sid, year, err := parseSIDYear(c)
	if err != nil {
		return respondError(c, err)
	}

	records, err := service.Store().FindOrderPerformances(c.UserContext(), models.PerformanceQuery{SalesmanID: sid, Year: year})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": records})
}

// ReviewOrders HR助理审核订单绩效
func ReviewOrders(c *fiber.Ctx) error {
	sid, year, err := parseSIDYear(c)
	if err != nil {
		return respondError(c, err)
	}

	result, err := service.ReviewOrders(c.UserContext(), sid, year)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GetCockpit 奖金驾驶舱，只读
func GetCockpit(c *fiber.Ctx) error {
	sid, year, err := parseSIDYear(c)
	if err != nil {
		return respondError(c, err)
	}

	view, err := service.Cockpit(c.UserContext(), sid, year)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

// ApproveBonus CEO批准社会绩效奖金并写回HR系统
func ApproveBonus(c *fiber.Ctx) error {
	sid, year, err := parseSIDYear(c)
	if err != nil {
		return respondError(c, err)
	}

	result, err := service.Approve(c.UserContext(), sid, year)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "奖金已批准并写回HR系统",
		"data":    result,
	})
}

// finalApprovalRequest 最终审批的请求体
type finalApprovalRequest struct {
	NewQualification string `json:"newQualification" validate:"omitempty,max=255"`
}

// ApproveFinal CEO最终审批，请求体可以带上新增资质
func ApproveFinal(c *fiber.Ctx) error {
	sid, year, err := parseSIDYear(c)
	if err != nil {
		return respondError(c, err)
	}

	var req finalApprovalRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
	}

	result, err := service.ApproveFinal(c.UserContext(), sid, year, req.NewQualification)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"status": "Approved",
		"data":   result,
	})
}
