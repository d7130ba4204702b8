// Package bonus 实现奖金的同步、计算与审批流程
// 数据流向：身份对应 → 外部数据读取 → 奖金计算 → 记录存储 → 审批 → 写回HR系统
package bonus

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sales_bonus/database"
	"sales_bonus/services/crm"
	"sales_bonus/services/hrm"
	"sales_bonus/utils"
)

// HRSystem 奖金流程用到的HR系统能力
type HRSystem interface {
	SearchEmployees(ctx context.Context) ([]hrm.Employee, error)
	PostBonus(ctx context.Context, employeeID int64, year int, value int64) (interface{}, error)
}

// CRMSystem 奖金流程用到的CRM系统能力
type CRMSystem interface {
	FindAccountIDByGovernmentID(ctx context.Context, governmentID string) (string, error)
	SalesData(ctx context.Context, accountID string, year int) ([]crm.Order, error)
}

// QualificationRecorder 记录CEO为销售员新增的资质
type QualificationRecorder interface {
	AddQualification(ctx context.Context, sid int64, qualification string) (string, error)
}

// Site 社会绩效的录入入口，不同入口使用的公式不同
type Site string

const (
	SiteEntry Site = "entry" // /api/social-performance
	SiteBonus Site = "bonus" // /api/bonus/social-performance
)

// Formulas 各入口使用的公式名称
type Formulas struct {
	SocialEntry string
	SocialBonus string
	Order       string
}

// DefaultFormulas 返回默认公式配置
func DefaultFormulas() Formulas {
	return Formulas{
		SocialEntry: SocialFormulaK30,
		SocialBonus: SocialFormulaK100,
		Order:       OrderFormulaRankingV1,
	}
}

// Validate 检查公式名称是否都有效
func (f Formulas) Validate() error {
	for _, name := range []string{f.SocialEntry, f.SocialBonus} {
		if !ValidSocialFormula(name) {
			return fmt.Errorf("未知的社会绩效公式: %s", name)
		}
	}
	if !ValidOrderFormula(f.Order) {
		return fmt.Errorf("未知的订单奖金公式: %s", f.Order)
	}
	return nil
}

// ErrCRMAccountNotFound 销售员存在，但在CRM中找不到对应账户
var ErrCRMAccountNotFound = utils.NotFoundError("CRM中未找到该销售员")

// Service 奖金服务
type Service struct {
	store         *database.Store
	hr            HRSystem
	crm           CRMSystem
	qualification QualificationRecorder
	formulas      Formulas
	locks         *utils.KeyedMutex
	logger        *zap.Logger
}

// NewService 创建奖金服务
// 同一 (sid, year) 上的同步与审批在本进程内串行执行
func NewService(store *database.Store, hr HRSystem, crmSystem CRMSystem, formulas Formulas, logger *zap.Logger) *Service {
	logger = logger.Named("bonus")
	if formulas.SocialEntry != formulas.SocialBonus {
		logger.Warn("两个社会绩效入口使用了不同的公式，同样的评分会得到不同的奖金",
			zap.String("entry_formula", formulas.SocialEntry),
			zap.String("bonus_formula", formulas.SocialBonus),
		)
	}

	return &Service{
		store:         store,
		hr:            hr,
		crm:           crmSystem,
		qualification: NewMockQualificationRecorder(logger),
		formulas:      formulas,
		locks:         utils.NewKeyedMutex(30*time.Minute, 5*time.Minute),
		logger:        logger,
	}
}

// Close 停止后台的锁清理协程
func (s *Service) Close() {
	s.locks.Close()
}

// SetQualificationRecorder 替换资质记录实现
func (s *Service) SetQualificationRecorder(recorder QualificationRecorder) {
	s.qualification = recorder
}

// Store 返回底层记录存储
func (s *Service) Store() *database.Store {
	return s.store
}

// lock 锁定 (sid, year) 聚合键
func (s *Service) lock(sid int64, year int) func() {
	return s.locks.Lock(fmt.Sprintf("%d:%d", sid, year))
}

// MockQualificationRecorder 资质管理尚未对接HR系统，只记录日志
type MockQualificationRecorder struct {
	logger *zap.Logger
}

// NewMockQualificationRecorder 创建模拟的资质记录器
func NewMockQualificationRecorder(logger *zap.Logger) *MockQualificationRecorder {
	return &MockQualificationRecorder{logger: logger}
}

// AddQualification 记录新增资质的意图，不产生外部影响
func (m *MockQualificationRecorder) AddQualification(ctx context.Context, sid int64, qualification string) (string, error) {
	m.logger.Info("新增资质（模拟）", zap.Int64("sid", sid), zap.String("qualification", qualification))
	return "Mock: Qualification added", nil
}
