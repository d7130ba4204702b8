// Package hrm 是HR系统（OrangeHRM风格接口）的客户端
// 负责获取访问令牌、查询员工主数据以及写回奖金
package hrm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"sales_bonus/services/transport"
	"sales_bonus/utils"
)

const system = "hrm"

// Config HR系统连接配置
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	GrantType    string
	Username     string
	Password     string
	Scope        string
	Timeout      time.Duration
	CacheToken   bool
}

// Employee HR系统中的员工
type Employee struct {
	EmployeeID string `json:"employee_id"`
	Code       string `json:"code"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	JobTitle   string `json:"job_title"`
	Unit       string `json:"unit"`
}

// Client HR系统客户端
type Client struct {
	cfg     Config
	http    *http.Client
	tokens  TokenSource
	extract *utils.Extractor
	logger  *zap.Logger
}

// NewClient 创建HR客户端
// 默认每次调用都重新获取令牌；CacheToken为true时在令牌过期前复用
func NewClient(cfg Config, logger *zap.Logger) *Client {
	c := &Client{
		cfg: cfg,
		http: transport.NewHTTPClient(transport.PoolConfig{
			Timeout:     cfg.Timeout,
			DialTimeout: cfg.Timeout,
			KeepAlive:   true,
		}),
		extract: utils.NewExtractor(),
		logger:  logger.Named("hrm"),
	}

	if cfg.CacheToken {
		c.tokens = NewCachingTokenSource(c, DefaultTokenSkew)
	} else {
		c.tokens = NewPasswordGrant(c)
	}
	return c
}

// SetTokenSource 替换令牌获取策略
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// IssueToken 使用密码模式换取访问令牌
func (c *Client) IssueToken(ctx context.Context) (*Token, error) {
	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("grant_type", c.cfg.GrantType)
	form.Set("username", c.cfg.Username)
	form.Set("password", c.cfg.Password)
	form.Set("scope", c.cfg.Scope)

	req, err := newFormRequest(ctx, c.endpoint("/oauth/issueToken"), form)
	if err != nil {
		return nil, err
	}

	body, err := transport.Do(ctx, c.http, c.logger, system, "issue_token", req)
	if err != nil {
		return nil, utils.ExternalServiceError(err, "HR系统认证失败")
	}

	var payload struct {
		AccessToken string  `json:"access_token"`
		ExpiresIn   float64 `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, utils.ExternalServiceError(err, "HR系统认证响应无法解析")
	}
	if payload.AccessToken == "" {
		return nil, utils.ExternalServiceError(nil, "HR系统认证响应缺少access_token")
	}

	token := &Token{AccessToken: payload.AccessToken}
	if payload.ExpiresIn > 0 {
		token.ExpiresAt = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	} else if exp, ok := utils.TokenExpiry(payload.AccessToken); ok {
		token.ExpiresAt = exp
	}
	return token, nil
}

// SearchEmployees 查询所有员工
// 响应可能包在 data 字段里，也可能直接是数组
func (c *Client) SearchEmployees(ctx context.Context) ([]Employee, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/api/v1/employee/search"), nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	body, err := transport.Do(ctx, c.http, c.logger, system, "search_employees", req)
	if err != nil {
		return nil, utils.ExternalServiceError(err, "获取员工列表失败")
	}

	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, utils.ExternalServiceError(err, "员工列表响应无法解析")
	}

	items := c.extract.Slice("data || @", decoded)
	employees := make([]Employee, 0, len(items))
	for _, item := range items {
		if _, ok := item.(map[string]interface{}); !ok {
			continue
		}
		employees = append(employees, Employee{
			EmployeeID: c.extract.String("employeeId", item),
			Code:       c.extract.String("code", item),
			FirstName:  c.extract.String("firstName", item),
			LastName:   c.extract.String("lastName", item),
			JobTitle:   c.extract.String("jobTitle", item),
			Unit:       c.extract.String("unit", item),
		})
	}
	return employees, nil
}

// PostBonus 把奖金总额写回HR系统
// 返回HR系统的确认内容；不做去重，重复调用会重复写入
func (c *Client) PostBonus(ctx context.Context, employeeID int64, year int, value int64) (interface{}, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("year", strconv.Itoa(year))
	form.Set("value", strconv.FormatInt(value, 10))

	path := fmt.Sprintf("/api/v1/employee/%d/bonussalary", employeeID)
	req, err := newFormRequest(ctx, c.endpoint(path), form)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	body, err := transport.Do(ctx, c.http, c.logger, system, "post_bonus", req)
	if err != nil {
		return nil, utils.ExternalServiceError(err, "写回奖金失败")
	}

	var ack interface{}
	if err := json.Unmarshal(body, &ack); err != nil {
		// 非JSON响应原样返回
		return strings.TrimSpace(string(body)), nil
	}
	return ack, nil
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}

func newFormRequest(ctx context.Context, endpoint string, form url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return req, nil
}
