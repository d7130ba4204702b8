package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"sales_bonus/models"
	"sales_bonus/services/bonus"
	"sales_bonus/utils"
)

// CreateSocialPerformance 录入社会绩效（/api/social-performance）
func CreateSocialPerformance(c *fiber.Ctx) error {
	return createSocialPerformance(c, bonus.SiteEntry)
}

// CreateBonusSocialPerformance 录入社会绩效（/api/bonus/social-performance）
// 与上一个入口使用的公式系数不同
func CreateBonusSocialPerformance(c *fiber.Ctx) error {
	return createSocialPerformance(c, bonus.SiteBonus)
}

func createSocialPerformance(c *fiber.Ctx, site bonus.Site) error {
	var input models.SocialPerformanceInput
	if err := parseBody(c, &input); err != nil {
		return respondError(c, err)
	}

	record, err := service.CreateSocialPerformance(c.UserContext(), input, site)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(record)
}

// GetSocialPerformances 查询销售员的社会绩效，?year= 可选
func GetSocialPerformances(c *fiber.Ctx) error {
	sid, err := parseSID(c)
	if err != nil {
		return respondError(c, err)
	}

	query := models.PerformanceQuery{SalesmanID: sid}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return respondError(c, utils.ValidationError("无效的年度: %s", raw))
		}
		query.Year = year
	}

	records, err := service.Store().FindSocialPerformances(c.UserContext(), query)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(records)
}
