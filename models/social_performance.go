package models

import (
	"time"
)

// SocialPerformance 社会绩效评估记录
// 每次提交都是一条新记录，同一销售员同一年度可以有多条，全部计入总奖金
type SocialPerformance struct {
	ID              uint      `json:"id" gorm:"primaryKey"`                                              // 主键ID
	SalesmanID      int64     `json:"salesman_id" gorm:"index:idx_social_salesman_year"`                 // 销售员ID（sid）
	Year            int       `json:"year" gorm:"index:idx_social_salesman_year"`                        // 年度
	Description     string    `json:"description" gorm:"size:255;not null"`                              // 评估项描述
	ValueSupervisor float64   `json:"value_supervisor"`                                                  // 上级评分
	ValuePeerGroup  float64   `json:"value_peer_group"`                                                  // 同事评分
	Remarks         string    `json:"remarks" gorm:"type:text"`                                          // 备注
	BonusValue      int64     `json:"bonus_value" gorm:"default:0"`                                      // 计算得出的奖金
	Formula         string    `json:"formula" gorm:"size:32"`                                            // 计算公式版本
	IsApprovedByCEO bool      `json:"is_approved_by_ceo" gorm:"column:is_approved_by_ceo;default:false"` // CEO是否已批准，只能从false变为true
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`                                  // 创建时间
	UpdatedAt       time.Time `json:"updated_at" gorm:"autoUpdateTime"`                                  // 更新时间
}

// TableName 返回表名
func (SocialPerformance) TableName() string {
	return "social_performances"
}

// SocialPerformanceInput 录入社会绩效的请求体
// 评分不能为负数，奖金公式只对非负输入有定义
type SocialPerformanceInput struct {
	SalesmanID      int64    `json:"salesman_id" validate:"required,gt=0"`
	Description     string   `json:"description" validate:"required,max=255"`
	ValueSupervisor *float64 `json:"value_supervisor" validate:"required,gte=0"`
	ValuePeerGroup  *float64 `json:"value_peer_group" validate:"required,gte=0"`
	Year            int      `json:"year" validate:"required,gte=1900,lte=9999"`
	Remarks         string   `json:"remarks"`
}
