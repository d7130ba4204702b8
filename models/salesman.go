// Package models 定义了奖金服务的数据模型
// 包含所有与数据库表对应的结构体定义和查询参数
package models

import (
	"time"
)

// Salesman 销售员模型
// 内部ID（sid）与HR系统中的员工ID一致，由员工同步时建立该对应关系
type Salesman struct {
	ID                uint      `json:"id" gorm:"primaryKey"`                       // 主键ID
	SID               int64     `json:"sid" gorm:"column:sid;uniqueIndex;not null"` // 销售员内部ID，等同于HR员工ID，唯一
	GovernmentID      string    `json:"government_id" gorm:"size:64;index"`         // 政府/税务编号，用于匹配CRM账户，可为空
	FirstName         string    `json:"first_name" gorm:"size:100;not null"`        // 名
	LastName          string    `json:"last_name" gorm:"size:100;not null"`         // 姓
	JobTitle          string    `json:"job_title" gorm:"size:100"`                  // 职位，来自HR同步
	Department        string    `json:"department" gorm:"size:100;default:Sales"`   // 部门，默认Sales
	YearOfPerformance int       `json:"year_of_performance" gorm:"default:2025"`    // 绩效年度
	CreatedAt         time.Time `json:"created_at" gorm:"autoCreateTime"`           // 创建时间
	UpdatedAt         time.Time `json:"updated_at" gorm:"autoUpdateTime"`           // 更新时间
}

// TableName 返回表名
func (Salesman) TableName() string {
	return "salesmen"
}

// SalesmanQuery 销售员查询参数
// 两个条件都是可选的，零值表示不过滤
type SalesmanQuery struct {
	SID  int64 `json:"sid" query:"sid"`   // 销售员ID
	Year int   `json:"year" query:"year"` // 绩效年度
}

// SalesmanInput 创建销售员的请求体
type SalesmanInput struct {
	SID               int64  `json:"sid" validate:"required,gt=0"`
	GovernmentID      string `json:"government_id" validate:"omitempty,max=64"`
	FirstName         string `json:"first_name" validate:"required,max=100"`
	LastName          string `json:"last_name" validate:"required,max=100"`
	JobTitle          string `json:"job_title" validate:"omitempty,max=100"`
	Department        string `json:"department" validate:"omitempty,max=100"`
	YearOfPerformance int    `json:"year_of_performance" validate:"omitempty,gte=1900,lte=9999"`
}

// Model 转换成销售员模型，部门和年度的默认值由存储层补齐
func (in SalesmanInput) Model() *Salesman {
	return &Salesman{
		SID:               in.SID,
		GovernmentID:      in.GovernmentID,
		FirstName:         in.FirstName,
		LastName:          in.LastName,
		JobTitle:          in.JobTitle,
		Department:        in.Department,
		YearOfPerformance: in.YearOfPerformance,
	}
}

// SalesmanUpdate 更新销售员的请求体，所有字段都是可选的
type SalesmanUpdate struct {
	GovernmentID      string `json:"government_id" validate:"omitempty,max=64"`
	FirstName         string `json:"first_name" validate:"omitempty,max=100"`
	LastName          string `json:"last_name" validate:"omitempty,max=100"`
	JobTitle          string `json:"job_title" validate:"omitempty,max=100"`
	Department        string `json:"department" validate:"omitempty,max=100"`
	YearOfPerformance int    `json:"year_of_performance" validate:"omitempty,gte=1900,lte=9999"`
}

// Columns 把请求体转换成需要合并的列
// 空值字段不会出现在结果中，从而不会覆盖已有数据
func (in SalesmanUpdate) Columns() map[string]interface{} {
	updates := make(map[string]interface{})
	if in.GovernmentID != "" {
		updates["government_id"] = in.GovernmentID
	}
	if in.FirstName != "" {
		updates["first_name"] = in.FirstName
	}
	if in.LastName != "" {
		updates["last_name"] = in.LastName
	}
	if in.JobTitle != "" {
		updates["job_title"] = in.JobTitle
	}
	if in.Department != "" {
		updates["department"] = in.Department
	}
	if in.YearOfPerformance != 0 {
		updates["year_of_performance"] = in.YearOfPerformance
	}
	return updates
}
