// Package config 提供应用程序配置和初始化功能
// 该包负责处理应用程序的配置加载、初始化和服务器设置等核心功能
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"sales_bonus/database"
	"sales_bonus/handlers"
	"sales_bonus/middleware"
	"sales_bonus/routes"
	"sales_bonus/services/bonus"
	"sales_bonus/services/crm"
	"sales_bonus/services/hrm"
)

// InitApp 初始化整个应用程序
// 该函数负责：
// 1. 初始化数据库连接并执行迁移
// 2. 创建HR与CRM客户端
// 3. 创建奖金服务并注入到处理函数
func InitApp(settings *Settings, log *zap.Logger) (*bonus.Service, error) {
	formulas := bonus.Formulas{
		SocialEntry: settings.SocialFormulaEntry,
		SocialBonus: settings.SocialFormulaBonus,
		Order:       settings.OrderFormula,
	}
	if err := formulas.Validate(); err != nil {
		return nil, err
	}

	err := database.Init(database.Options{
		Driver:   settings.DBDriver,
		Host:     settings.DBHost,
		Port:     settings.DBPort,
		User:     settings.DBUser,
		Password: settings.DBPassword,
		Name:     settings.DBName,
		Path:     settings.DBPath,
		LogLevel: settings.LogLevel,
	}, log)
	if err != nil {
		return nil, err
	}

	// 确保所有必要的表和结构都存在
	if err := database.Migrate(database.GetDB()); err != nil {
		return nil, err
	}

	hrClient := hrm.NewClient(hrm.Config{
		BaseURL:      settings.HRM.BaseURL,
		ClientID:     settings.HRM.ClientID,
		ClientSecret: settings.HRM.ClientSecret,
		GrantType:    settings.HRM.GrantType,
		Username:     settings.HRM.Username,
		Password:     settings.HRM.Password,
		Scope:        settings.HRM.Scope,
		Timeout:      settings.HRM.Timeout,
		CacheToken:   settings.HRM.CacheToken,
	}, log)

	crmClient := crm.NewClient(crm.Config{
		BaseURL:         settings.CRM.BaseURL,
		Username:        settings.CRM.Username,
		Password:        settings.CRM.Password,
		Timeout:         settings.CRM.Timeout,
		DialTimeout:     settings.CRM.DialTimeout,
		MaxConnsPerHost: settings.CRM.MaxConnsPerHost,
	}, newPacer(settings.CRM), log)

	svc := bonus.NewService(database.NewStore(database.GetDB()), hrClient, crmClient, formulas, log)
	handlers.SetBonusService(svc)
	handlers.SetLogger(log)

	log.Info("应用程序初始化完成",
		zap.String("env", settings.Env),
		zap.Bool("hrm_token_cache", settings.HRM.CacheToken),
		zap.String("order_formula", formulas.Order),
	)
	return svc, nil
}

// newPacer 配置了限速时使用令牌桶，否则在订单明细请求之间固定等待
func newPacer(cfg CRMSettings) crm.Pacer {
	if cfg.RateLimitQPS > 0 {
		return crm.NewRateLimited(cfg.RateLimitQPS, 1)
	}
	return crm.NewFixedDelay(cfg.PacingDelay)
}

// SetupApp 创建并配置Fiber应用实例
// 该函数负责：
// 1. 创建新的Fiber实例
// 2. 配置全局中间件
// 3. 设置路由
// 返回配置完成的Fiber实例
func SetupApp(settings *Settings, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		StrictRouting: true,
		ServerHeader:  "Sales Bonus",
		// 限制请求体大小为1MB
		BodyLimit: 1 * 1024 * 1024,
		// 未被处理函数捕获的错误（例如路由不存在）
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
		AppName:     "Sales Bonus API",
		// CRM同步可能持续较长时间，写超时要大于CRM客户端超时
		ReadTimeout:  60 * time.Second,
		WriteTimeout: settings.CRM.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())

	// 开发环境输出易读的访问日志，其余环境只保留结构化日志
	if settings.Env == "development" {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format:     "${time} ${status} - ${locals:requestid} ${method} ${path} ${latency}\n",
			TimeFormat: "2006-01-02 15:04:05",
			Output:     os.Stdout,
		}))
	}
	app.Use(middleware.RequestLogger(log))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,OPTIONS",
		AllowHeaders: fmt.Sprintf("Origin,Content-Type,Accept,%s", middleware.RequestIDHeader),
		MaxAge:       int(12 * time.Hour.Seconds()),
	}))

	routes.SetupRoutes(app)

	log.Info("Fiber应用已创建，路由已设置")
	return app
}
