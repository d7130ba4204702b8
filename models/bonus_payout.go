package models

import (
	"time"
)

// 回写阶段
const (
	PayoutStageSocial = "social" // 只包含社会绩效的审批
	PayoutStageFinal  = "final"  // 社会绩效与订单绩效的最终审批
)

// BonusPayout 奖金回写记录
// 每次成功写回HR系统都会追加一条记录，重复审批会产生多条
type BonusPayout struct {
	ID         uint      `json:"id" gorm:"primaryKey"`                              // 主键ID
	SalesmanID int64     `json:"salesman_id" gorm:"index:idx_payout_salesman_year"` // 销售员ID（sid）
	Year       int       `json:"year" gorm:"index:idx_payout_salesman_year"`        // 年度
	Stage      string    `json:"stage" gorm:"size:16"`                              // 回写阶段：social, final
	Total      int64     `json:"total"`                                             // 写回的奖金总额
	HRResponse string    `json:"hr_response" gorm:"type:text"`                      // HR系统返回内容
	SyncedAt   time.Time `json:"synced_at"`                                         // 回写时间
}

// TableName 返回表名
func (BonusPayout) TableName() string {
	return "bonus_payouts"
}
