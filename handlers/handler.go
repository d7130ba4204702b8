// Package handlers 实现奖金服务的HTTP接口
// 处理函数通过包级别的服务实例工作，启动时由 SetBonusService 注入
package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"sales_bonus/services/bonus"
	"sales_bonus/utils"
)

var (
	service  *bonus.Service
	validate = validator.New()
	log      = zap.NewNop()
)

// SetBonusService 设置处理函数使用的奖金服务
func SetBonusService(svc *bonus.Service) {
	service = svc
}

// SetLogger 设置处理函数使用的日志
func SetLogger(logger *zap.Logger) {
	log = logger.Named("http")
}

// respondError 按错误分类返回状态码
// 校验错误400，未找到404，其他（外部系统、计算、未知错误）500
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch utils.KindOf(err) {
	case utils.KindValidation:
		status = fiber.StatusBadRequest
	case utils.KindNotFound:
		status = fiber.StatusNotFound
	}

	if status == fiber.StatusInternalServerError {
		log.Error("请求处理失败",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// parseBody 解析并校验请求体
func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return utils.ValidationError("参数解析失败: %v", err)
	}
	if err := validate.Struct(out); err != nil {
		return utils.ValidationError("参数校验失败: %s", describeValidation(err))
	}
	return nil
}

// describeValidation 把校验错误整理成一行
func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s(%s=%s)", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, ", ")
}

// parseSID 读取路径参数中的销售员ID
func parseSID(c *fiber.Ctx) (int64, error) {
	sid, err := strconv.ParseInt(c.Params("sid"), 10, 64)
	if err != nil || sid <= 0 {
		return 0, utils.ValidationError("无效的销售员ID: %s", c.Params("sid"))
	}
	return sid, nil
}

// parseSIDYear 读取路径参数中的销售员ID和年度
func parseSIDYear(c *fiber.Ctx) (int64, int, error) {
	sid, err := parseSID(c)
	if err != nil {
		return 0, 0, err
	}
	year, err := strconv.Atoi(c.Params("year"))
	if err != nil || year < 1900 || year > 9999 {
		return 0, 0, utils.ValidationError("无效的年度: %s", c.Params("year"))
	}
	return sid, year, nil
}

// Healthz 健康检查，同时检查数据库连接
func Healthz(c *fiber.Ctx) error {
	if err := service.Store().Ping(c.UserContext()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
			"error":  err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
