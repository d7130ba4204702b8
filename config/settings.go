package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Settings 应用配置
// 所有配置都来自环境变量，.env文件存在时会先被加载
type Settings struct {
	Env        string // 运行环境：development, production
	ServerPort string // HTTP监听端口

	DBDriver   string // 数据库驱动：mysql, sqlite
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPath     string // sqlite数据库文件路径

	LogLevel  string // 日志级别
	LogFormat string // 日志格式：json, console
	LogOutput string // 日志输出位置

	HRM HRMSettings
	CRM CRMSettings

	// 奖金公式选择，两个社会绩效入口使用的系数不同，需要业务方确认后再统一
	SocialFormulaEntry string // /api/social-performance 使用的公式
	SocialFormulaBonus string // /api/bonus/social-performance 使用的公式
	OrderFormula       string // 订单奖金公式
}

// HRMSettings HR系统连接配置
type HRMSettings struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	GrantType    string
	Username     string
	Password     string
	Scope        string
	Timeout      time.Duration
	CacheToken   bool // 为true时缓存令牌直到过期，默认每次调用都重新认证
}

// CRMSettings CRM系统连接配置
type CRMSettings struct {
	BaseURL         string
	Username        string
	Password        string
	Timeout         time.Duration // 单次请求超时
	DialTimeout     time.Duration // 建连与空闲连接超时
	MaxConnsPerHost int           // 连接池大小，CRM对频繁建连敏感
	PacingDelay     time.Duration // 订单明细请求之间的固定间隔
	RateLimitQPS    float64       // 大于0时改用令牌桶限速
}

// LoadSettings 加载配置
// .env文件不存在时只使用环境变量和默认值
func LoadSettings() *Settings {
	if err := godotenv.Load(); err != nil {
		log.Println("未找到.env文件，使用环境变量和默认配置")
	}

	return &Settings{
		Env:        getEnv("ENV", "development"),
		ServerPort: getEnv("SERVER_PORT", "3001"),

		DBDriver:   getEnv("DB_DRIVER", "mysql"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "sales_bonus"),
		DBPath:     getEnv("DB_PATH", "sales_bonus.db"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
		LogOutput: getEnv("LOG_OUTPUT", "stdout"),

		HRM: HRMSettings{
			BaseURL:      getEnv("HRM_BASE_URL", "http://localhost:8888/symfony/web/index.php"),
			ClientID:     getEnv("HRM_CLIENT_ID", "api_oauth_id"),
			ClientSecret: os.Getenv("HRM_CLIENT_SECRET"),
			GrantType:    getEnv("HRM_GRANT_TYPE", "password"),
			Username:     os.Getenv("HRM_USERNAME"),
			Password:     os.Getenv("HRM_PASSWORD"),
			Scope:        getEnv("HRM_SCOPE", "admin"),
			Timeout:      getDuration("HRM_TIMEOUT", 60*time.Second),
			CacheToken:   getBool("HRM_TOKEN_CACHE", false),
		},
		CRM: CRMSettings{
			BaseURL:         getEnv("CRM_BASE_URL", "http://localhost:8887/opencrx-rest-CRX"),
			Username:        getEnv("CRM_USERNAME", "guest"),
			Password:        getEnv("CRM_PASSWORD", "guest"),
			Timeout:         getDuration("CRM_TIMEOUT", 120*time.Second),
			DialTimeout:     getDuration("CRM_DIAL_TIMEOUT", 60*time.Second),
			MaxConnsPerHost: getInt("CRM_MAX_CONNS", 10),
			PacingDelay:     time.Duration(getInt("CRM_PACING_MS", 50)) * time.Millisecond,
			RateLimitQPS:    getFloat("CRM_RATE_LIMIT_QPS", 0),
		},

		SocialFormulaEntry: getEnv("SOCIAL_FORMULA_ENTRY", "social-k30"),
		SocialFormulaBonus: getEnv("SOCIAL_FORMULA_BONUS", "social-k100"),
		OrderFormula:       getEnv("ORDER_FORMULA", "order-ranking-v1"),
	}
}

// getEnv 读取环境变量，未设置时返回默认值
func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return value
}

func getFloat(key string, fallback float64) float64 {
	value, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return value
}

func getBool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return value
}

// getDuration 支持 "90s" 这类写法，也接受纯数字（秒）
func getDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}
