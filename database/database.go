// Package database 提供数据库连接和记录存储功能
// 该包负责处理与数据库相关的所有操作，包括：
// - 数据库连接的建立和连接池配置
// - 数据库迁移
// - 销售员、社会绩效、订单绩效的幂等写入与查询（见 store.go）
package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"sales_bonus/logger"
	"sales_bonus/models"
)

// DB 全局数据库连接实例
// 通过 GetDB() 函数访问
var DB *gorm.DB

// GetDB 返回数据库连接实例
func GetDB() *gorm.DB {
	return DB
}

// Options 数据库连接参数
type Options struct {
	Driver   string // mysql 或 sqlite
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	Path     string // sqlite文件路径，":memory:" 表示内存数据库
	LogLevel string // GORM日志级别：silent, error, warn, info
}

// Init 初始化数据库模块
// 建立连接、配置连接池并设置全局实例
func Init(opts Options, log *zap.Logger) error {
	db, err := Open(opts, log)
	if err != nil {
		return err
	}

	DB = db
	log.Info("数据库已成功连接", zap.String("driver", opts.Driver), zap.String("database", opts.Name))
	return nil
}

// Open 按配置打开数据库连接
func Open(opts Options, log *zap.Logger) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.NewGormLogger(log, logger.GormLevel(opts.LogLevel), time.Second),
	}

	var dialector gorm.Dialector
	switch opts.Driver {
	case "sqlite":
		dialector = sqlite.Open(opts.Path)
	case "mysql", "":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local&collation=utf8mb4_unicode_ci",
			opts.User, opts.Password, opts.Host, opts.Port, opts.Name)
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", opts.Driver)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("无法连接到数据库: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("无法获取底层数据库连接: %w", err)
	}

	// sqlite只使用单个连接，内存数据库的每个连接都是独立的库
	if opts.Driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	}

	// 设置连接池参数
	sqlDB.SetMaxOpenConns(25)                  // 最大打开连接数
	sqlDB.SetMaxIdleConns(10)                  // 最大空闲连接数
	sqlDB.SetConnMaxLifetime(time.Hour)        // 连接最大生存时间
	sqlDB.SetConnMaxIdleTime(30 * time.Minute) // 空闲连接最大生存时间

	return db, nil
}

// Migrate 执行数据库迁移
// 使用GORM的AutoMigrate自动创建或更新数据库表
func Migrate(db *gorm.DB) error {
	if db.Dialector.Name() == "mysql" {
		db = db.Set("gorm:table_options", "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci")
	}

	err := db.AutoMigrate(
		&models.Salesman{},
		&models.SocialPerformance{},
		&models.OrderPerformance{},
		&models.BonusPayout{},
	)
	if err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	return nil
}
