// Package crm 是CRM系统（OpenCRX风格REST接口）的客户端
// 负责读取销售订单、客户账户和订单明细，并把结构不统一的对象整理成内部表示
package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"sales_bonus/services/transport"
	"sales_bonus/utils"
)

const system = "crm"

// 资源路径
const (
	salesOrderPath = "org.opencrx.kernel.contract1/provider/CRX/segment/Standard/salesOrder"
	accountPath    = "org.opencrx.kernel.account1/provider/CRX/segment/Standard/account"
)

// 字段提取表达式，兼容引用既可能是 {"@href": "..."} 也可能是字符串的情况
const (
	exprEnvelope     = "objects || @"
	exprAccountRef   = `href || "@href" || identity`
	exprAccountName  = `fullName || name || 'Client'`
	exprAccountGovID = "governmentId"
	exprRating       = "accountRating"
	exprSalesRep     = `salesRep."@href" || salesRep`
	exprCustomer     = `customer."@href" || customer`
	exprOrderRef     = `identity || "@href" || href`
	exprProduct      = `productDescription || name || 'Unknown Product'`
)

// Config CRM系统连接配置
type Config struct {
	BaseURL         string
	Username        string
	Password        string
	Timeout         time.Duration
	DialTimeout     time.Duration
	MaxConnsPerHost int
}

// Account CRM客户账户
type Account struct {
	ID           string `json:"id"`
	GovernmentID string `json:"government_id"`
	Name         string `json:"name"`
	Rating       int    `json:"rating"`
}

// Position 订单明细行
type Position struct {
	ProductName string  `json:"product_name"`
	Quantity    float64 `json:"quantity"`
}

// Client CRM系统客户端
type Client struct {
	cfg     Config
	http    *http.Client
	pacer   Pacer
	extract *utils.Extractor
	logger  *zap.Logger
}

// NewClient 创建CRM客户端
// CRM对频繁建连敏感，使用保持连接的小连接池
func NewClient(cfg Config, pacer Pacer, logger *zap.Logger) *Client {
	if pacer == nil {
		pacer = NewFixedDelay(DefaultPacingDelay)
	}
	return &Client{
		cfg: cfg,
		http: transport.NewHTTPClient(transport.PoolConfig{
			Timeout:         cfg.Timeout,
			DialTimeout:     cfg.DialTimeout,
			MaxConnsPerHost: cfg.MaxConnsPerHost,
			KeepAlive:       true,
		}),
		pacer:   pacer,
		extract: utils.NewExtractor(),
		logger:  logger.Named("crm"),
	}
}

// ListSalesOrders 读取全部销售订单的原始对象
func (c *Client) ListSalesOrders(ctx context.Context) ([]interface{}, error) {
	return c.list(ctx, "list_sales_orders", salesOrderPath)
}

// ListAccounts 读取全部客户账户
func (c *Client) ListAccounts(ctx context.Context) ([]Account, error) {
	items, err := c.list(ctx, "list_accounts", accountPath)
	if err != nil {
		return nil, err
	}

	accounts := make([]Account, 0, len(items))
	for _, item := range items {
		id := utils.LastPathSegment(c.extract.String(exprAccountRef, item))
		if id == "" {
			continue
		}
		accounts = append(accounts, Account{
			ID:           id,
			GovernmentID: c.extract.String(exprAccountGovID, item),
			Name:         c.extract.String(exprAccountName, item),
			Rating:       int(c.extract.Float(exprRating, item)),
		})
	}
	return accounts, nil
}

// ListOrderPositions 读取订单明细
func (c *Client) ListOrderPositions(ctx context.Context, orderID string) ([]Position, error) {
	path := fmt.Sprintf("%s/%s/position", salesOrderPath, url.PathEscape(orderID))
	items, err := c.list(ctx, "list_order_positions", path)
	if err != nil {
		return nil, err
	}

	positions := make([]Position, 0, len(items))
	for _, item := range items {
		positions = append(positions, Position{
			ProductName: c.extract.String(exprProduct, item),
			Quantity:    c.extract.Float("quantity", item),
		})
	}
	return positions, nil
}

// FindAccountIDByGovernmentID 按政府编号查找CRM账户ID
// 两边都按字符串形式比较，没有匹配时返回空字符串
func (c *Client) FindAccountIDByGovernmentID(ctx context.Context, governmentID string) (string, error) {
	target := strings.TrimSpace(governmentID)
	if target == "" {
		return "", nil
	}

	accounts, err := c.ListAccounts(ctx)
	if err != nil {
		return "", err
	}

	for _, account := range accounts {
		if account.GovernmentID == target {
			return account.ID, nil
		}
	}
	return "", nil
}

// list 读取列表资源，响应可能包在 objects 字段里
func (c *Client) list(ctx context.Context, operation, path string) ([]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.cfg.BaseURL, "/")+"/"+path, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	req.Header.Set("Accept", "application/json")

	body, err := transport.Do(ctx, c.http, c.logger, system, operation, req)
	if err != nil {
		return nil, utils.ExternalServiceError(err, "CRM请求失败 [%s]", operation)
	}

	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, utils.ExternalServiceError(err, "CRM响应无法解析 [%s]", operation)
	}

	items := c.extract.Slice(exprEnvelope, decoded)
	if items == nil {
		return []interface{}{}, nil
	}
	return items, nil
}
