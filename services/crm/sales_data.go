package crm

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sales_bonus/utils"
)

const (
	// DefaultPacingDelay 逐单明细请求之间的默认间隔
	DefaultPacingDelay = 50 * time.Millisecond

	// MockClosingProbability CRM中没有成交概率字段，统一使用50
	MockClosingProbability = 50.0

	unknownClient   = "Unknown"
	emptyPositions  = "N/A"
	defaultCurrency = "978" // ISO 4217 数字代码，欧元
)

// Order 整理后的订单数据
type Order struct {
	OrderID            string          `json:"order_id"`
	ProductName        string          `json:"product_name"`
	ClientName         string          `json:"client_name"`
	ClientRanking      int             `json:"client_ranking"`
	Quantity           float64         `json:"quantity"`
	ClosingProbability float64         `json:"closing_probability"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
}

// clientInfo 账户查找表中的客户信息
type clientInfo struct {
	ranking int
	name    string
}

// createdAtLayouts 订单创建时间可能的格式
var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// SalesData 读取某个CRM账户在指定年度负责的订单
// 订单列表或账户列表读取失败会终止整个同步并返回错误；
// 单个订单的明细读取失败只记录日志并使用中性默认值，不影响其他订单。
func (c *Client) SalesData(ctx context.Context, accountID string, year int) ([]Order, error) {
	log := c.logger.With(zap.String("account_id", accountID), zap.Int("year", year))
	log.Info("开始读取订单数据")

	rawOrders, err := c.ListSalesOrders(ctx)
	if err != nil {
		return nil, err
	}
	accounts, err := c.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	clients := make(map[string]clientInfo, len(accounts))
	for _, account := range accounts {
		clients[account.ID] = clientInfo{ranking: account.Rating, name: account.Name}
	}

	orders := make([]Order, 0)
	for _, raw := range rawOrders {
		repID := utils.LastPathSegment(c.extract.String(exprSalesRep, raw))
		if repID == "" || repID != accountID {
			continue
		}

		createdAt, ok := parseCreatedAt(c.extract.String("createdAt", raw))
		if !ok {
			log.Warn("订单创建时间无法解析，已跳过", zap.String("created_at", c.extract.String("createdAt", raw)))
			continue
		}
		if createdAt.Year() != year {
			continue
		}

		orderID := utils.LastPathSegment(c.extract.String(exprOrderRef, raw))
		if orderID == "" {
			log.Warn("订单缺少标识，已跳过")
			continue
		}

		customerID := utils.LastPathSegment(c.extract.String(exprCustomer, raw))
		client, found := clients[customerID]
		if !found {
			client = clientInfo{ranking: 0, name: unknownClient}
		}

		if err := c.pacer.Wait(ctx); err != nil {
			return nil, err
		}
		productNames, quantity := c.positionSummary(ctx, orderID)

		amount, err := decimal.NewFromString(c.extract.String("totalAmount", raw))
		if err != nil {
			amount = decimal.Zero
		}

		currency := c.extract.String("contractCurrency", raw)
		if currency == "" {
			currency = defaultCurrency
		}

		orders = append(orders, Order{
			OrderID:            orderID,
			ProductName:        productNames,
			ClientName:         client.name,
			ClientRanking:      client.ranking,
			Quantity:           quantity,
			ClosingProbability: MockClosingProbability,
			Amount:             amount,
			Currency:           currency,
		})
	}

	log.Info("订单数据读取完成", zap.Int("orders", len(orders)))
	return orders, nil
}

// positionSummary 汇总订单明细：产品名逗号拼接，数量求和
// 读取失败或没有明细时返回 ("N/A", 0)
func (c *Client) positionSummary(ctx context.Context, orderID string) (string, float64) {
	positions, err := c.ListOrderPositions(ctx, orderID)
	if err != nil {
		c.logger.Warn("读取订单明细失败，使用默认值", zap.String("order_id", orderID), zap.Error(err))
		return emptyPositions, 0
	}
	if len(positions) == 0 {
		return emptyPositions, 0
	}

	names := make([]string, 0, len(positions))
	var total float64
	for _, p := range positions {
		names = append(names, p.ProductName)
		total += p.Quantity
	}
	return strings.Join(names, ", "), total
}

func parseCreatedAt(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
