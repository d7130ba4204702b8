package bonus

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"sales_bonus/metrics"
	"sales_bonus/models"
	"sales_bonus/utils"
)

// SyncEmployees 从HR系统同步销售部门的员工
// 只保留部门名称包含 "sales"（不区分大小写）的员工，员工ID必须是整数。
// 返回写入的销售员数量
func (s *Service) SyncEmployees(ctx context.Context) (int, error) {
	employees, err := s.hr.SearchEmployees(ctx)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, emp := range employees {
		if !isSalesUnit(emp.Unit) {
			continue
		}

		sid, err := strconv.ParseInt(strings.TrimSpace(emp.EmployeeID), 10, 64)
		if err != nil {
			s.logger.Warn("员工ID不是整数，跳过", zap.String("employee_id", emp.EmployeeID))
			continue
		}

		fields := map[string]interface{}{
			"government_id": strings.TrimSpace(emp.Code),
			"first_name":    emp.FirstName,
			"last_name":     emp.LastName,
			"job_title":     emp.JobTitle,
			"department":    emp.Unit,
		}
		if _, err := s.store.UpsertSalesman(ctx, sid, fields); err != nil {
			return processed, err
		}
		processed++
		metrics.EmployeesSyncedTotal.Inc()
	}

	s.logger.Info("员工同步完成", zap.Int("total", len(employees)), zap.Int("processed", processed))
	return processed, nil
}

func isSalesUnit(unit string) bool {
	return unit != "" && strings.Contains(strings.ToLower(unit), "sales")
}

// ResolveCRMAccount 通过政府编号找到销售员在CRM中的账户ID
// 销售员不存在与CRM中没有对应账户是两种不同的NotFound，后者返回 ErrCRMAccountNotFound
func (s *Service) ResolveCRMAccount(ctx context.Context, sid int64) (string, error) {
	salesman, err := s.store.GetSalesman(ctx, sid)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(salesman.GovernmentID) == "" {
		return "", ErrCRMAccountNotFound
	}

	accountID, err := s.crm.FindAccountIDByGovernmentID(ctx, salesman.GovernmentID)
	if err != nil {
		return "", err
	}
	if accountID == "" {
		return "", ErrCRMAccountNotFound
	}
	return accountID, nil
}

// SyncOrders 从CRM读取订单，计算奖金并按订单ID写入
// 重复同步会更新订单数据和奖金，但不会重置已有的审核标记
func (s *Service) SyncOrders(ctx context.Context, sid int64, year int) ([]models.OrderPerformance, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}

	unlock := s.lock(sid, year)
	defer unlock()

	accountID, err := s.ResolveCRMAccount(ctx, sid)
	if err != nil {
		return nil, err
	}

	orders, err := s.crm.SalesData(ctx, accountID, year)
	if err != nil {
		return nil, err
	}

	log := s.logger.With(zap.Int64("sid", sid), zap.Int("year", year))
	records := make([]models.OrderPerformance, 0, len(orders))
	for _, order := range orders {
		bonus, clamped, err := OrderBonus(s.formulas.Order, OrderInput{
			ProductName:        order.ProductName,
			ClientRanking:      order.ClientRanking,
			ClosingProbability: order.ClosingProbability,
			Quantity:           order.Quantity,
			Amount:             order.Amount,
		})
		if err != nil {
			return nil, err
		}
		if clamped {
			log.Warn("订单奖金为负数，按0计算",
				zap.String("order_id", order.OrderID),
				zap.Int("client_ranking", order.ClientRanking),
			)
		}

		record, err := s.store.UpsertOrderPerformance(ctx, order.OrderID, map[string]interface{}{
			"salesman_id":         sid,
			"year":                year,
			"product_name":        order.ProductName,
			"client_name":         order.ClientName,
			"client_ranking":      order.ClientRanking,
			"closing_probability": order.ClosingProbability,
			"quantity":            order.Quantity,
			"amount":              order.Amount,
			"currency":            order.Currency,
			"computed_bonus":      bonus,
			"formula":             s.formulas.Order,
		})
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
		metrics.OrdersSyncedTotal.Inc()
	}

	log.Info("订单同步完成", zap.Int("orders", len(records)))
	return records, nil
}

// validateYear 年度必须是四位数
func validateYear(year int) error {
	if year < 1900 || year > 9999 {
		return utils.ValidationError("无效的年度: %d", year)
	}
	return nil
}
