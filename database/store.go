package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"sales_bonus/models"
	"sales_bonus/utils"
)

// Store 记录存储
// 对三类实体提供按键幂等写入与按聚合键查询：
//   - Salesman 以 sid 为键
//   - OrderPerformance 以 CRM 订单ID为键
//   - SocialPerformance 没有自然键，每次提交都是追加
//
// 查询结果按插入顺序（主键升序）完整返回，可以重复遍历。
type Store struct {
	db *gorm.DB
}

// NewStore 创建记录存储
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// UpsertSalesman 按sid写入销售员
// 不存在则创建；存在则只合并fields中出现的列，不会清空其他字段
func (s *Store) UpsertSalesman(ctx context.Context, sid int64, fields map[string]interface{}) (*models.Salesman, error) {
	var salesman models.Salesman
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("sid = ?", sid).First(&salesman).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			salesman = models.Salesman{SID: sid}
			if err := tx.Create(&salesman).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		return mergeColumns(tx, &salesman, salesman.ID, fields)
	})
	if err != nil {
		return nil, fmt.Errorf("写入销售员失败: %w", err)
	}
	return &salesman, nil
}

// CreateSalesman 创建销售员，sid已存在时返回校验错误
func (s *Store) CreateSalesman(ctx context.Context, salesman *models.Salesman) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Salesman{}).Where("sid = ?", salesman.SID).Count(&count).Error; err != nil {
		return fmt.Errorf("查询销售员失败: %w", err)
	}
	if count > 0 {
		return utils.ValidationError("销售员ID %d 已存在", salesman.SID)
	}
	if salesman.Department == "" {
		salesman.Department = "Sales"
	}
	if salesman.YearOfPerformance == 0 {
		salesman.YearOfPerformance = 2025
	}
	if err := s.db.WithContext(ctx).Create(salesman).Error; err != nil {
		return fmt.Errorf("创建销售员失败: %w", err)
	}
	return nil
}

// UpdateSalesman 更新已存在的销售员，只合并给定的列
func (s *Store) UpdateSalesman(ctx context.Context, sid int64, fields map[string]interface{}) (*models.Salesman, error) {
	salesman, err := s.GetSalesman(ctx, sid)
	if err != nil {
		return nil, err
	}
	if err := mergeColumns(s.db.WithContext(ctx), salesman, salesman.ID, fields); err != nil {
		return nil, fmt.Errorf("更新销售员失败: %w", err)
	}
	return salesman, nil
}

// GetSalesman 按sid查询销售员
func (s *Store) GetSalesman(ctx context.Context, sid int64) (*models.Salesman, error) {
	var salesman models.Salesman
	err := s.db.WithContext(ctx).Where("sid = ?", sid).First(&salesman).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFoundError("销售员不存在: %d", sid)
	}
	if err != nil {
		return nil, fmt.Errorf("查询销售员失败: %w", err)
	}
	return &salesman, nil
}

// FindSalesmen 按可选条件查询销售员
func (s *Store) FindSalesmen(ctx context.Context, query models.SalesmanQuery) ([]models.Salesman, error) {
	db := s.db.WithContext(ctx).Model(&models.Salesman{})
	if query.SID != 0 {
		db = db.Where("sid = ?", query.SID)
	}
	if query.Year != 0 {
		db = db.Where("year_of_performance = ?", query.Year)
	}

	salesmen := []models.Salesman{}
	if err := db.Order("id ASC").Find(&salesmen).Error; err != nil {
		return nil, fmt.Errorf("查询销售员列表失败: %w", err)
	}
	return salesmen, nil
}

// CreateSocialPerformance 追加一条社会绩效记录
func (s *Store) CreateSocialPerformance(ctx context.Context, record *models.SocialPerformance) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("保存社会绩效失败: %w", err)
	}
	return nil
}

// FindSocialPerformances 按聚合键查询社会绩效
func (s *Store) FindSocialPerformances(ctx context.Context, query models.PerformanceQuery) ([]models.SocialPerformance, error) {
	records := []models.SocialPerformance{}
	if err := performanceScope(s.db.WithContext(ctx), query).Order("id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("查询社会绩效失败: %w", err)
	}
	return records, nil
}

// UpsertOrderPerformance 按CRM订单ID写入订单绩效
// 重复同步同一订单只更新字段；审核标记不在fields中，不会被重置
func (s *Store) UpsertOrderPerformance(ctx context.Context, orderID string, fields map[string]interface{}) (*models.OrderPerformance, error) {
	var record models.OrderPerformance
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("order_id = ?", orderID).First(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			record = models.OrderPerformance{OrderID: orderID}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		return mergeColumns(tx, &record, record.ID, fields)
	})
	if err != nil {
		return nil, fmt.Errorf("写入订单绩效失败: %w", err)
	}
	return &record, nil
}

// FindOrderPerformances 按聚合键查询订单绩效
func (s *Store) FindOrderPerformances(ctx context.Context, query models.PerformanceQuery) ([]models.OrderPerformance, error) {
	records := []models.OrderPerformance{}
	if err := performanceScope(s.db.WithContext(ctx), query).Order("id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("查询订单绩效失败: %w", err)
	}
	return records, nil
}

// MarkSocialApproved 把社会绩效标记为CEO已批准，标记只会从false变为true
func (s *Store) MarkSocialApproved(ctx context.Context, sid int64, year int) (int64, error) {
	return s.markTrue(ctx, &models.SocialPerformance{}, "is_approved_by_ceo", sid, year)
}

// MarkOrdersHRReviewed 把订单绩效标记为HR已审核
func (s *Store) MarkOrdersHRReviewed(ctx context.Context, sid int64, year int) (int64, error) {
	return s.markTrue(ctx, &models.OrderPerformance{}, "hr_review_status", sid, year)
}

// MarkOrdersCEOReviewed 把订单绩效标记为CEO已审核
func (s *Store) MarkOrdersCEOReviewed(ctx context.Context, sid int64, year int) (int64, error) {
	return s.markTrue(ctx, &models.OrderPerformance{}, "ceo_review_status", sid, year)
}

// AppendPayout 记录一次HR回写
func (s *Store) AppendPayout(ctx context.Context, payout *models.BonusPayout) error {
	if err := s.db.WithContext(ctx).Create(payout).Error; err != nil {
		return fmt.Errorf("保存回写记录失败: %w", err)
	}
	return nil
}

// FindPayouts 按聚合键查询回写记录
func (s *Store) FindPayouts(ctx context.Context, query models.PerformanceQuery) ([]models.BonusPayout, error) {
	payouts := []models.BonusPayout{}
	if err := performanceScope(s.db.WithContext(ctx), query).Order("id ASC").Find(&payouts).Error; err != nil {
		return nil, fmt.Errorf("查询回写记录失败: %w", err)
	}
	return payouts, nil
}

// markTrue 把指定布尔列设置为true，已经为true的记录不受影响
func (s *Store) markTrue(ctx context.Context, model interface{}, column string, sid int64, year int) (int64, error) {
	result := s.db.WithContext(ctx).Model(model).
		Where("salesman_id = ? AND year = ? AND "+column+" = ?", sid, year, false).
		Update(column, true)
	if result.Error != nil {
		return 0, fmt.Errorf("更新%s失败: %w", column, result.Error)
	}
	return result.RowsAffected, nil
}

// performanceScope 应用 (salesman_id, year) 聚合键条件
func performanceScope(db *gorm.DB, query models.PerformanceQuery) *gorm.DB {
	db = db.Where("salesman_id = ?", query.SalesmanID)
	if query.Year != 0 {
		db = db.Where("year = ?", query.Year)
	}
	return db
}

// mergeColumns 合并列并重新读取记录
func mergeColumns(tx *gorm.DB, dest interface{}, id uint, fields map[string]interface{}) error {
	if len(fields) > 0 {
		if err := tx.Model(dest).Updates(fields).Error; err != nil {
			return err
		}
	}
	return tx.First(dest, id).Error
}

// Ping 检查数据库连接是否可用
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
