package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderPerformance 订单绩效记录
// 以CRM订单ID为唯一键，重复同步同一订单只会更新字段，不会产生重复记录
type OrderPerformance struct {
	ID                 uint            `json:"id" gorm:"primaryKey"`                                            // 主键ID
	OrderID            string          `json:"order_id" gorm:"size:128;uniqueIndex;not null"`                   // CRM订单ID，唯一
	SalesmanID         int64           `json:"salesman_id" gorm:"index:idx_order_salesman_year"`                // 销售员ID（sid）
	Year               int             `json:"year" gorm:"index:idx_order_salesman_year"`                       // 年度
	ProductName        string          `json:"product_name" gorm:"type:text"`                                   // 产品名称，多个以逗号分隔
	ClientName         string          `json:"client_name" gorm:"size:255"`                                     // 客户名称
	ClientRanking      int             `json:"client_ranking"`                                                  // 客户等级，数字越小客户越好
	ClosingProbability float64         `json:"closing_probability"`                                             // 成交概率（百分比）
	Quantity           float64         `json:"quantity" gorm:"default:0"`                                       // 商品数量
	Amount             decimal.Decimal `json:"amount" gorm:"type:decimal(18,2);default:0"`                      // 订单金额
	Currency           string          `json:"currency" gorm:"size:16;default:978"`                             // 币种代码
	ComputedBonus      int64           `json:"computed_bonus" gorm:"default:0"`                                 // 计算得出的奖金
	Formula            string          `json:"formula" gorm:"size:32"`                                          // 计算公式版本
	HRReviewStatus     bool            `json:"hr_review_status" gorm:"column:hr_review_status;default:false"`   // HR是否已审核，只能从false变为true
	CEOReviewStatus    bool            `json:"ceo_review_status" gorm:"column:ceo_review_status;default:false"` // CEO是否已审核，只能从false变为true
	CreatedAt          time.Time       `json:"created_at" gorm:"autoCreateTime"`                                // 创建时间
	UpdatedAt          time.Time       `json:"updated_at" gorm:"autoUpdateTime"`                                // 更新时间
}

// TableName 返回表名
func (OrderPerformance) TableName() string {
	return "order_performances"
}

// PerformanceQuery 绩效记录查询参数
// (salesman_id, year) 是聚合键，Year为0时表示所有年度
type PerformanceQuery struct {
	SalesmanID int64
	Year       int
}
