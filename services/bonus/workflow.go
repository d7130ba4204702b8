package bonus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sales_bonus/metrics"
	"sales_bonus/models"
	"sales_bonus/utils"
)

// State (sid, year) 聚合的审批状态，由存储的标记和回写记录推导
type State string

const (
	StateDraft       State = "Draft"
	StateHRReviewed  State = "HRReviewed"
	StateCEOApproved State = "CEOApproved"
	StateSyncedToHR  State = "SyncedToHR"
)

// MockQualifications 资质管理尚未对接，驾驶舱返回固定列表
var MockQualifications = []string{"Java Certified", "Negotiation Master"}

// ApprovalResult 审批结果
type ApprovalResult struct {
	SalesmanID         int64       `json:"salesman_id"`
	Year               int         `json:"year"`
	TotalBonus         int64       `json:"total_bonus"`
	HRSyncStatus       interface{} `json:"hrm_sync_status"`
	Qualification      *string     `json:"qualification_status,omitempty"`
	QualificationError string      `json:"qualification_error,omitempty"` // 资质记录失败的原因，奖金已写回
}

// ReviewResult HR审核结果
type ReviewResult struct {
	SalesmanID int64 `json:"salesman_id"`
	Year       int   `json:"year"`
	Orders     int   `json:"orders"`   // 该年度的订单记录数
	Reviewed   int64 `json:"reviewed"` // 本次新标记的数量
}

// BonusSummary 一类奖金的合计与明细
type BonusSummary struct {
	Total   int64       `json:"total"`
	Details interface{} `json:"details"`
}

// CockpitView 驾驶舱视图，只读
type CockpitView struct {
	SalesmanID     int64                `json:"salesman_id"`
	Year           int                  `json:"year"`
	State          State                `json:"state"`
	SocialBonus    BonusSummary         `json:"social_bonus"`
	OrdersBonus    BonusSummary         `json:"orders_bonus"`
	GrandTotal     int64                `json:"grand_total"`
	Payouts        []models.BonusPayout `json:"payouts"`
	Qualifications []string             `json:"qualifications"`
}

// CreateSocialPerformance 录入一条社会绩效并计算奖金
// 使用的公式取决于录入入口
func (s *Service) CreateSocialPerformance(ctx context.Context, input models.SocialPerformanceInput, site Site) (*models.SocialPerformance, error) {
	if input.ValueSupervisor == nil || input.ValuePeerGroup == nil {
		return nil, utils.ValidationError("缺少评分")
	}
	if err := validateYear(input.Year); err != nil {
		return nil, err
	}

	formula := s.formulas.SocialEntry
	if site == SiteBonus {
		formula = s.formulas.SocialBonus
	}

	bonus, err := SocialBonus(formula, *input.ValueSupervisor, *input.ValuePeerGroup)
	if err != nil {
		return nil, err
	}

	record := &models.SocialPerformance{
		SalesmanID:      input.SalesmanID,
		Year:            input.Year,
		Description:     input.Description,
		ValueSupervisor: *input.ValueSupervisor,
		ValuePeerGroup:  *input.ValuePeerGroup,
		Remarks:         input.Remarks,
		BonusValue:      bonus,
		Formula:         formula,
	}
	if err := s.store.CreateSocialPerformance(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Approve CEO批准社会绩效奖金并写回HR系统
// 重复调用会重新求和并再次写回，HR侧不做去重
func (s *Service) Approve(ctx context.Context, sid int64, year int) (result *ApprovalResult, err error) {
	defer func() { metrics.ApprovalsTotal.WithLabelValues(models.PayoutStageSocial, metrics.Outcome(err)).Inc() }()

	unlock := s.lock(sid, year)
	defer unlock()

	query := models.PerformanceQuery{SalesmanID: sid, Year: year}
	records, err := s.store.FindSocialPerformances(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, utils.NotFoundError("没有找到社会绩效记录: sid=%d, year=%d", sid, year)
	}

	total := sumSocial(records)

	if _, err := s.store.MarkSocialApproved(ctx, sid, year); err != nil {
		return nil, err
	}

	ack, err := s.pushToHR(ctx, sid, year, models.PayoutStageSocial, total)
	if err != nil {
		return nil, err
	}

	return &ApprovalResult{SalesmanID: sid, Year: year, TotalBonus: total, HRSyncStatus: ack}, nil
}

// ReviewOrders HR助理审核订单绩效
func (s *Service) ReviewOrders(ctx context.Context, sid int64, year int) (result *ReviewResult, err error) {
	defer func() { metrics.ApprovalsTotal.WithLabelValues("hr_review", metrics.Outcome(err)).Inc() }()

	unlock := s.lock(sid, year)
	defer unlock()

	orders, err := s.store.FindOrderPerformances(ctx, models.PerformanceQuery{SalesmanID: sid, Year: year})
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, utils.NotFoundError("没有找到订单绩效记录: sid=%d, year=%d", sid, year)
	}

	reviewed, err := s.store.MarkOrdersHRReviewed(ctx, sid, year)
	if err != nil {
		return nil, err
	}

	s.logger.Info("订单已审核", zap.Int64("sid", sid), zap.Int("year", year), zap.Int64("reviewed", reviewed))
	return &ReviewResult{SalesmanID: sid, Year: year, Orders: len(orders), Reviewed: reviewed}, nil
}

// ApproveFinal CEO最终审批：社会绩效与订单奖金合计写回HR系统
// qualification不为空时同时记录新增资质
func (s *Service) ApproveFinal(ctx context.Context, sid int64, year int, qualification string) (result *ApprovalResult, err error) {
	defer func() { metrics.ApprovalsTotal.WithLabelValues(models.PayoutStageFinal, metrics.Outcome(err)).Inc() }()

	unlock := s.lock(sid, year)
	defer unlock()

	query := models.PerformanceQuery{SalesmanID: sid, Year: year}
	social, err := s.store.FindSocialPerformances(ctx, query)
	if err != nil {
		return nil, err
	}
	orders, err := s.store.FindOrderPerformances(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(social) == 0 && len(orders) == 0 {
		return nil, utils.NotFoundError("没有找到绩效记录: sid=%d, year=%d", sid, year)
	}

	total := sumSocial(social) + sumOrders(orders)

	if _, err := s.store.MarkSocialApproved(ctx, sid, year); err != nil {
		return nil, err
	}
	if _, err := s.store.MarkOrdersCEOReviewed(ctx, sid, year); err != nil {
		return nil, err
	}

	ack, err := s.pushToHR(ctx, sid, year, models.PayoutStageFinal, total)
	if err != nil {
		return nil, err
	}

	result = &ApprovalResult{SalesmanID: sid, Year: year, TotalBonus: total, HRSyncStatus: ack}
	if qualification != "" {
		// HR已经接收了奖金，资质记录失败不能吞掉回写结果
		status, qerr := s.qualification.AddQualification(ctx, sid, qualification)
		if qerr != nil {
			s.logger.Error("记录资质失败",
				zap.Int64("sid", sid), zap.String("qualification", qualification), zap.Error(qerr))
			result.QualificationError = qerr.Error()
		} else {
			result.Qualification = &status
		}
	}
	return result, nil
}

// Cockpit 汇总 (sid, year) 的奖金，不修改任何状态
func (s *Service) Cockpit(ctx context.Context, sid int64, year int) (*CockpitView, error) {
	query := models.PerformanceQuery{SalesmanID: sid, Year: year}
	social, err := s.store.FindSocialPerformances(ctx, query)
	if err != nil {
		return nil, err
	}
	orders, err := s.store.FindOrderPerformances(ctx, query)
	if err != nil {
		return nil, err
	}
	payouts, err := s.store.FindPayouts(ctx, query)
	if err != nil {
		return nil, err
	}

	socialTotal := sumSocial(social)
	ordersTotal := sumOrders(orders)
	return &CockpitView{
		SalesmanID:     sid,
		Year:           year,
		State:          DeriveState(social, orders, payouts),
		SocialBonus:    BonusSummary{Total: socialTotal, Details: social},
		OrdersBonus:    BonusSummary{Total: ordersTotal, Details: orders},
		GrandTotal:     socialTotal + ordersTotal,
		Payouts:        payouts,
		Qualifications: MockQualifications,
	}, nil
}

// DeriveState 根据记录标记和回写记录推导审批状态
//   - 所有记录都已由CEO批准，最后一次回写覆盖这些记录且金额等于当前合计：SyncedToHR
//   - 所有记录都已由CEO批准：CEOApproved
//   - 存在订单且全部经过HR审核：HRReviewed
//   - 其他情况：Draft
func DeriveState(social []models.SocialPerformance, orders []models.OrderPerformance, payouts []models.BonusPayout) State {
	if len(social) == 0 && len(orders) == 0 {
		return StateDraft
	}

	ceoApproved := true
	for _, r := range social {
		ceoApproved = ceoApproved && r.IsApprovedByCEO
	}
	hrReviewed := len(orders) > 0
	for _, o := range orders {
		ceoApproved = ceoApproved && o.CEOReviewStatus
		hrReviewed = hrReviewed && o.HRReviewStatus
	}

	if ceoApproved {
		if len(payouts) == 0 {
			return StateCEOApproved
		}
		// 只看最后一次回写：之后的重新计算或重复审批可能已改变HR中的值
		latest := payouts[len(payouts)-1]
		covers := latest.Stage == models.PayoutStageFinal || len(orders) == 0
		if covers && latest.Total == sumSocial(social)+sumOrders(orders) {
			return StateSyncedToHR
		}
		return StateCEOApproved
	}
	if hrReviewed {
		return StateHRReviewed
	}
	return StateDraft
}

// pushToHR 写回HR系统并追加回写记录
func (s *Service) pushToHR(ctx context.Context, sid int64, year int, stage string, total int64) (interface{}, error) {
	ack, err := s.hr.PostBonus(ctx, sid, year, total)
	if err != nil {
		s.logger.Error("奖金写回HR系统失败",
			zap.Int64("sid", sid), zap.Int("year", year), zap.String("stage", stage), zap.Error(err))
		return nil, err
	}

	payout := &models.BonusPayout{
		SalesmanID: sid,
		Year:       year,
		Stage:      stage,
		Total:      total,
		HRResponse: describeAck(ack),
		SyncedAt:   time.Now(),
	}
	if err := s.store.AppendPayout(ctx, payout); err != nil {
		return nil, err
	}

	s.logger.Info("奖金已写回HR系统",
		zap.Int64("sid", sid), zap.Int("year", year), zap.String("stage", stage), zap.Int64("total", total))
	return ack, nil
}

func sumSocial(records []models.SocialPerformance) int64 {
	var total int64
	for _, r := range records {
		total += r.BonusValue
	}
	return total
}

func sumOrders(records []models.OrderPerformance) int64 {
	var total int64
	for _, r := range records {
		total += r.ComputedBonus
	}
	return total
}

// describeAck 把HR返回内容保存成文本
func describeAck(ack interface{}) string {
	switch v := ack.(type) {
	case nil:
		return ""
	case string:
		return v
	}
	raw, err := json.Marshal(ack)
	if err != nil {
		return fmt.Sprint(ack)
	}
	return string(raw)
}
