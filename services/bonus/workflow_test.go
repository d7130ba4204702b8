package bonus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sales_bonus/database"
	"sales_bonus/models"
	"sales_bonus/services/crm"
	"sales_bonus/services/hrm"
	"sales_bonus/utils"
)

type bonusPost struct {
	EmployeeID int64
	Year       int
	Value      int64
}

// fakeHR 记录写回调用，可以模拟慢请求统计并发
type fakeHR struct {
	mu        sync.Mutex
	employees []hrm.Employee
	posts     []bonusPost
	inFlight  int
	maxFlight int
	delay     time.Duration
	err       error
}

func (f *fakeHR) SearchEmployees(ctx context.Context) ([]hrm.Employee, error) {
	return f.employees, f.err
}

func (f *fakeHR) PostBonus(ctx context.Context, employeeID int64, year int, value int64) (interface{}, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxFlight {
		f.maxFlight = f.inFlight
	}
	f.mu.Unlock()

	time.Sleep(f.delay)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	if f.err != nil {
		return nil, f.err
	}
	f.posts = append(f.posts, bonusPost{EmployeeID: employeeID, Year: year, Value: value})
	return map[string]interface{}{"success": true}, nil
}

type fakeCRM struct {
	accounts map[string]string // governmentId -> accountId
	orders   []crm.Order
	err      error
}

func (f *fakeCRM) FindAccountIDByGovernmentID(ctx context.Context, governmentID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.accounts[governmentID], nil
}

func (f *fakeCRM) SalesData(ctx context.Context, accountID string, year int) ([]crm.Order, error) {
	return f.orders, f.err
}

func setupService(t *testing.T, hr *fakeHR, crmSystem *fakeCRM) (*Service, *database.Store) {
	db, err := database.Open(database.Options{Driver: "sqlite", Path: ":memory:", LogLevel: "silent"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	store := database.NewStore(db)
	svc := NewService(store, hr, crmSystem, DefaultFormulas(), zap.NewNop())
	t.Cleanup(svc.Close)
	return svc, store
}

func float(v float64) *float64 { return &v }

func addSocial(t *testing.T, svc *Service, sid int64, year int, sup, peer float64) *models.SocialPerformance {
	record, err := svc.CreateSocialPerformance(context.Background(), models.SocialPerformanceInput{
		SalesmanID:      sid,
		Description:     "Leadership Competence",
		ValueSupervisor: float(sup),
		ValuePeerGroup:  float(peer),
		Year:            year,
	}, SiteEntry)
	require.NoError(t, err)
	return record
}

func TestService_SyncEmployees(t *testing.T) {
	hr := &fakeHR{employees: []hrm.Employee{
		{EmployeeID: "2", Code: "91338", FirstName: "John", LastName: "Smith", JobTitle: "Senior Salesman", Unit: "Sales"},
		{EmployeeID: "3", Code: "55555", FirstName: "Toni", LastName: "Weber", Unit: "Human Resources"},
		{EmployeeID: "4", Code: "77777", FirstName: "Mary", LastName: "Ann", Unit: "Inside SALES Team"},
		{EmployeeID: "5", Code: "11111", FirstName: "No", LastName: "Unit"},
		{EmployeeID: "abc", Code: "22222", FirstName: "Bad", LastName: "Id", Unit: "Sales"},
	}}
	svc, store := setupService(t, hr, &fakeCRM{})
	ctx := context.Background()

	count, err := svc.SyncEmployees(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	salesmen, err := store.FindSalesmen(ctx, models.SalesmanQuery{})
	require.NoError(t, err)
	require.Len(t, salesmen, 2)
	assert.Equal(t, int64(2), salesmen[0].SID)
	assert.Equal(t, "91338", salesmen[0].GovernmentID)
	assert.Equal(t, "Senior Salesman", salesmen[0].JobTitle)
	assert.Equal(t, "Sales", salesmen[0].Department)
	assert.Equal(t, "Inside SALES Team", salesmen[1].Department)

	t.Run("second sync does not duplicate", func(t *testing.T) {
		count, err := svc.SyncEmployees(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		salesmen, err := store.FindSalesmen(ctx, models.SalesmanQuery{})
		require.NoError(t, err)
		assert.Len(t, salesmen, 2)
	})

	t.Run("hr failure propagates", func(t *testing.T) {
		hr.err = utils.ExternalServiceError(errors.New("boom"), "HR不可用")
		defer func() { hr.err = nil }()

		_, err := svc.SyncEmployees(ctx)
		assert.ErrorIs(t, err, utils.ErrExternalService)
	})
}

func TestService_ResolveCRMAccount(t *testing.T) {
	crmSystem := &fakeCRM{accounts: map[string]string{"91338": "ACC-1"}}
	svc, store := setupService(t, &fakeHR{}, crmSystem)
	ctx := context.Background()

	_, err := store.UpsertSalesman(ctx, 2, map[string]interface{}{"government_id": "91338", "first_name": "John", "last_name": "Smith"})
	require.NoError(t, err)
	_, err = store.UpsertSalesman(ctx, 3, map[string]interface{}{"government_id": "00000", "first_name": "Toni", "last_name": "Weber"})
	require.NoError(t, err)
	_, err = store.UpsertSalesman(ctx, 4, map[string]interface{}{"first_name": "No", "last_name": "Gov"})
	require.NoError(t, err)

	accountID, err := svc.ResolveCRMAccount(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "ACC-1", accountID)

	t.Run("unknown salesman", func(t *testing.T) {
		_, err := svc.ResolveCRMAccount(ctx, 99)
		assert.ErrorIs(t, err, utils.ErrNotFound)
		assert.NotErrorIs(t, err, ErrCRMAccountNotFound)
	})

	t.Run("no matching CRM account", func(t *testing.T) {
		_, err := svc.ResolveCRMAccount(ctx, 3)
		assert.ErrorIs(t, err, ErrCRMAccountNotFound)
		assert.ErrorIs(t, err, utils.ErrNotFound)
	})

	t.Run("salesman without government id", func(t *testing.T) {
		_, err := svc.ResolveCRMAccount(ctx, 4)
		assert.ErrorIs(t, err, ErrCRMAccountNotFound)
	})

	t.Run("crm failure is external", func(t *testing.T) {
		crmSystem.err = utils.ExternalServiceError(errors.New("timeout"), "CRM不可用")
		defer func() { crmSystem.err = nil }()

		_, err := svc.ResolveCRMAccount(ctx, 2)
		assert.ErrorIs(t, err, utils.ErrExternalService)
	})
}

func TestService_SyncOrders(t *testing.T) {
	crmSystem := &fakeCRM{
		accounts: map[string]string{"91338": "ACC-1"},
		orders: []crm.Order{
			{OrderID: "ORD-1", ProductName: FlagshipProduct, ClientName: "Germania GmbH", ClientRanking: 2, Quantity: 4, ClosingProbability: 50, Amount: decimal.NewFromInt(1000), Currency: "978"},
			{OrderID: "ORD-2", ProductName: "Hoover for small companies", ClientName: "Mayer's Shop", ClientRanking: 2, Quantity: 4, ClosingProbability: 50, Currency: "978"},
			{OrderID: "ORD-3", ProductName: "N/A", ClientName: "Unknown", ClientRanking: 8, Quantity: 2, ClosingProbability: 50, Currency: "978"},
		},
	}
	svc, store := setupService(t, &fakeHR{}, crmSystem)
	ctx := context.Background()

	_, err := store.UpsertSalesman(ctx, 2, map[string]interface{}{"government_id": "91338", "first_name": "John", "last_name": "Smith"})
	require.NoError(t, err)

	records, err := svc.SyncOrders(ctx, 2, 2025)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, int64(80), records[0].ComputedBonus)
	assert.Equal(t, int64(48), records[1].ComputedBonus)
	assert.Equal(t, int64(0), records[2].ComputedBonus)
	assert.Equal(t, OrderFormulaRankingV1, records[0].Formula)
	assert.True(t, decimal.NewFromInt(1000).Equal(records[0].Amount))

	t.Run("resync keeps review flags and does not duplicate", func(t *testing.T) {
		_, err := svc.ReviewOrders(ctx, 2, 2025)
		require.NoError(t, err)

		crmSystem.orders[0].Quantity = 8
		records, err := svc.SyncOrders(ctx, 2, 2025)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, int64(160), records[0].ComputedBonus)
		assert.True(t, records[0].HRReviewStatus)

		stored, err := store.FindOrderPerformances(ctx, models.PerformanceQuery{SalesmanID: 2, Year: 2025})
		require.NoError(t, err)
		assert.Len(t, stored, 3)
	})

	t.Run("salesman not in CRM", func(t *testing.T) {
		_, err := store.UpsertSalesman(ctx, 3, map[string]interface{}{"government_id": "00000", "first_name": "Toni", "last_name": "Weber"})
		require.NoError(t, err)

		_, err = svc.SyncOrders(ctx, 3, 2025)
		assert.ErrorIs(t, err, ErrCRMAccountNotFound)
	})

	t.Run("invalid year", func(t *testing.T) {
		_, err := svc.SyncOrders(ctx, 2, 25)
		assert.ErrorIs(t, err, utils.ErrValidation)
	})

	t.Run("zero closing probability", func(t *testing.T) {
		crmSystem.orders = []crm.Order{{OrderID: "ORD-9", ClientRanking: 1, Quantity: 1}}
		_, err := svc.SyncOrders(ctx, 2, 2026)
		assert.ErrorIs(t, err, utils.ErrComputation)
	})
}

func TestService_CreateSocialPerformance(t *testing.T) {
	svc, _ := setupService(t, &fakeHR{}, &fakeCRM{})
	ctx := context.Background()

	input := models.SocialPerformanceInput{
		SalesmanID:      2,
		Description:     "Openness to Employee",
		ValueSupervisor: float(3),
		ValuePeerGroup:  float(4),
		Year:            2025,
	}

	entry, err := svc.CreateSocialPerformance(ctx, input, SiteEntry)
	require.NoError(t, err)
	assert.Equal(t, int64(210), entry.BonusValue)
	assert.Equal(t, SocialFormulaK30, entry.Formula)
	assert.False(t, entry.IsApprovedByCEO)

	viaBonus, err := svc.CreateSocialPerformance(ctx, input, SiteBonus)
	require.NoError(t, err)
	assert.Equal(t, int64(700), viaBonus.BonusValue)
	assert.Equal(t, SocialFormulaK100, viaBonus.Formula)

	t.Run("missing score", func(t *testing.T) {
		bad := input
		bad.ValuePeerGroup = nil
		_, err := svc.CreateSocialPerformance(ctx, bad, SiteEntry)
		assert.ErrorIs(t, err, utils.ErrValidation)
	})

	t.Run("negative score", func(t *testing.T) {
		bad := input
		bad.ValueSupervisor = float(-1)
		_, err := svc.CreateSocialPerformance(ctx, bad, SiteEntry)
		assert.ErrorIs(t, err, utils.ErrValidation)
	})
}

func TestService_Approve(t *testing.T) {
	hr := &fakeHR{}
	svc, store := setupService(t, hr, &fakeCRM{})
	ctx := context.Background()

	addSocial(t, svc, 2, 2025, 3, 4) // 210
	addSocial(t, svc, 2, 2025, 1, 1) // 60
	addSocial(t, svc, 2, 2024, 5, 5) // 其他年度

	result, err := svc.Approve(ctx, 2, 2025)
	require.NoError(t, err)
	assert.Equal(t, int64(270), result.TotalBonus)
	assert.Equal(t, []bonusPost{{EmployeeID: 2, Year: 2025, Value: 270}}, hr.posts)

	records, err := store.FindSocialPerformances(ctx, models.PerformanceQuery{SalesmanID: 2, Year: 2025})
	require.NoError(t, err)
	for _, r := range records {
		assert.True(t, r.IsApprovedByCEO)
	}

	other, err := store.FindSocialPerformances(ctx, models.PerformanceQuery{SalesmanID: 2, Year: 2024})
	require.NoError(t, err)
	assert.False(t, other[0].IsApprovedByCEO)

	t.Run("approving again re-pushes without changing flags", func(t *testing.T) {
		again, err := svc.Approve(ctx, 2, 2025)
		require.NoError(t, err)
		assert.Equal(t, int64(270), again.TotalBonus)
		assert.Len(t, hr.posts, 2)

		payouts, err := store.FindPayouts(ctx, models.PerformanceQuery{SalesmanID: 2, Year: 2025})
		require.NoError(t, err)
		assert.Len(t, payouts, 2)
		assert.Equal(t, models.PayoutStageSocial, payouts[1].Stage)
	})

	t.Run("no records", func(t *testing.T) {
		_, err := svc.Approve(ctx, 2, 2030)
		assert.ErrorIs(t, err, utils.ErrNotFound)
	})

	t.Run("hr write-back failure", func(t *testing.T) {
		hr.err = utils.ExternalServiceError(errors.New("503"), "写回失败")
		defer func() { hr.err = nil }()

		_, err := svc.Approve(ctx, 2, 2025)
		assert.ErrorIs(t, err, utils.ErrExternalService)

		payouts, err := store.FindPayouts(ctx, models.PerformanceQuery{SalesmanID: 2, Year: 2025})
		require.NoError(t, err)
		assert.Len(t, payouts, 2)
	})
}

func TestService_ApproveFinal(t *testing.T) {
	hr := &fakeHR{}
	crmSystem := &fakeCRM{
		accounts: map[string]string{"91338": "ACC-1"},
		orders: []crm.Order{
			{OrderID: "ORD-1", ProductName: FlagshipProduct, ClientRanking: 2, Quantity: 4, ClosingProbability: 50},
		},
	}
	svc, store := setupService(t, hr, crmSystem)
	ctx := context.Background()

	_, err := store.UpsertSalesman(ctx, 2, map[string]interface{}{"government_id": "91338", "first_name": "John", "last_name": "Smith"})
	require.NoError(t, err)
	addSocial(t, svc, 2, 2025, 3, 4)      // 210
	_, err = svc.SyncOrders(ctx, 2, 2025) // 80
	require.NoError(t, err)

	result, err := svc.ApproveFinal(ctx, 2, 2025, "")
	require.NoError(t, err)
	assert.Equal(t, int64(290), result.TotalBonus)
	assert.Nil(t, result.Qualification)
	assert.Equal(t, int64(290), hr.posts[0].Value)

	orders, err := store.FindOrderPerformances(ctx, models.PerformanceQuery{SalesmanID: 2, Year: 2025})
	require.NoError(t, err)
	assert.True(t, orders[0].CEOReviewStatus)

	social, err := store.FindSocialPerformances(ctx, models.PerformanceQuery{SalesmanID: 2, Year: 2025})
	require.NoError(t, err)
	assert.True(t, social[0].IsApprovedByCEO)

	t.Run("with qualification", func(t *testing.T) {
		result, err := svc.ApproveFinal(ctx, 2, 2025, "Negotiation Master")
		require.NoError(t, err)
		require.NotNil(t, result.Qualification)
		assert.Equal(t, "Mock: Qualification added", *result.Qualification)
	})

	t.Run("no records at all", func(t *testing.T) {
		_, err := svc.ApproveFinal(ctx, 2, 2031, "")
		assert.ErrorIs(t, err, utils.ErrNotFound)
	})
}

type failingQualifications struct{}

func (failingQualifications) AddQualification(ctx context.Context, sid int64, qualification string) (string, error) {
	return "", errors.New("qualification store unavailable")
}

func TestService_ApproveFinal_QualificationFailureKeepsAck(t *testing.T) {
	hr := &fakeHR{}
	svc, _ := setupService(t, hr, &fakeCRM{})
	svc.SetQualificationRecorder(failingQualifications{})
	addSocial(t, svc, 5, 2025, 3, 4)

	result, err := svc.ApproveFinal(context.Background(), 5, 2025, "Negotiation Master")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, int64(210), result.TotalBonus)
	assert.NotNil(t, result.HRSyncStatus)
	assert.Nil(t, result.Qualification)
	assert.Equal(t, "qualification store unavailable", result.QualificationError)
	require.Len(t, hr.posts, 1)
	assert.Equal(t, int64(210), hr.posts[0].Value)
}

func TestService_CockpitDoesNotMutate(t *testing.T) {
	hr := &fakeHR{}
	crmSystem := &fakeCRM{
		accounts: map[string]string{"91338": "ACC-1"},
		orders: []crm.Order{
			{OrderID: "ORD-1", ProductName: "Hoover for small companies", ClientRanking: 2, Quantity: 4, ClosingProbability: 50},
		},
	}
	svc, store := setupService(t, hr, crmSystem)
	ctx := context.Background()

	_, err := store.UpsertSalesman(ctx, 2, map[string]interface{}{"government_id": "91338", "first_name": "John", "last_name": "Smith"})
	require.NoError(t, err)
	addSocial(t, svc, 2, 2025, 3, 4)
	_, err = svc.SyncOrders(ctx, 2, 2025)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		view, err := svc.Cockpit(ctx, 2, 2025)
		require.NoError(t, err)
		assert.Equal(t, int64(210), view.SocialBonus.Total)
		assert.Equal(t, int64(48), view.OrdersBonus.Total)
		assert.Equal(t, int64(258), view.GrandTotal)
		assert.Equal(t, StateDraft, view.State)
		assert.Equal(t, MockQualifications, view.Qualifications)
	}

	social, err := store.FindSocialPerformances(ctx, models.PerformanceQuery{SalesmanID: 2, Year: 2025})
	require.NoError(t, err)
	assert.False(t, social[0].IsApprovedByCEO)
	orders, err := store.FindOrderPerformances(ctx, models.PerformanceQuery{SalesmanID: 2, Year: 2025})
	require.NoError(t, err)
	assert.False(t, orders[0].HRReviewStatus)
	assert.False(t, orders[0].CEOReviewStatus)
	assert.Empty(t, hr.posts)

	t.Run("state follows the workflow", func(t *testing.T) {
		_, err := svc.ReviewOrders(ctx, 2, 2025)
		require.NoError(t, err)
		view, err := svc.Cockpit(ctx, 2, 2025)
		require.NoError(t, err)
		assert.Equal(t, StateHRReviewed, view.State)

		_, err = svc.ApproveFinal(ctx, 2, 2025, "")
		require.NoError(t, err)
		view, err = svc.Cockpit(ctx, 2, 2025)
		require.NoError(t, err)
		assert.Equal(t, StateSyncedToHR, view.State)
		assert.Len(t, view.Payouts, 1)

		// 再次只写回社会绩效后，HR中的值不再是总奖金
		approval, err := svc.Approve(ctx, 2, 2025)
		require.NoError(t, err)
		assert.Equal(t, int64(210), approval.TotalBonus)
		view, err = svc.Cockpit(ctx, 2, 2025)
		require.NoError(t, err)
		assert.Equal(t, StateCEOApproved, view.State)
		assert.Len(t, view.Payouts, 2)

		_, err = svc.ApproveFinal(ctx, 2, 2025, "")
		require.NoError(t, err)
		view, err = svc.Cockpit(ctx, 2, 2025)
		require.NoError(t, err)
		assert.Equal(t, StateSyncedToHR, view.State)
	})

	t.Run("empty aggregate", func(t *testing.T) {
		view, err := svc.Cockpit(ctx, 99, 2025)
		require.NoError(t, err)
		assert.Equal(t, int64(0), view.GrandTotal)
		assert.Equal(t, StateDraft, view.State)
	})
}

func TestService_ReviewOrdersNotFound(t *testing.T) {
	svc, _ := setupService(t, &fakeHR{}, &fakeCRM{})
	_, err := svc.ReviewOrders(context.Background(), 2, 2025)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestService_ApprovalsAreSerializedPerKey(t *testing.T) {
	hr := &fakeHR{delay: 20 * time.Millisecond}
	svc, _ := setupService(t, hr, &fakeCRM{})
	addSocial(t, svc, 2, 2025, 3, 4)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Approve(context.Background(), 2, 2025)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, hr.posts, 5)
	assert.Equal(t, 1, hr.maxFlight)
}

func TestDeriveState(t *testing.T) {
	approved := []models.SocialPerformance{{IsApprovedByCEO: true, BonusValue: 210}}
	pending := []models.SocialPerformance{{IsApprovedByCEO: false, BonusValue: 210}}
	socialPayout := []models.BonusPayout{{Stage: models.PayoutStageSocial, Total: 210}}

	assert.Equal(t, StateDraft, DeriveState(nil, nil, nil))
	assert.Equal(t, StateDraft, DeriveState(pending, nil, nil))
	assert.Equal(t, StateCEOApproved, DeriveState(approved, nil, nil))
	assert.Equal(t, StateSyncedToHR, DeriveState(approved, nil, socialPayout))

	orders := []models.OrderPerformance{{HRReviewStatus: true, ComputedBonus: 80}}
	assert.Equal(t, StateHRReviewed, DeriveState(pending, orders, socialPayout))

	finalOrders := []models.OrderPerformance{{HRReviewStatus: true, CEOReviewStatus: true, ComputedBonus: 80}}
	assert.Equal(t, StateCEOApproved, DeriveState(approved, finalOrders, socialPayout))

	finalPayout := []models.BonusPayout{{Stage: models.PayoutStageFinal, Total: 290}}
	assert.Equal(t, StateSyncedToHR, DeriveState(approved, finalOrders, finalPayout))

	t.Run("later social push overrides final total", func(t *testing.T) {
		payouts := append(finalPayout, models.BonusPayout{Stage: models.PayoutStageSocial, Total: 210})
		assert.Equal(t, StateCEOApproved, DeriveState(approved, finalOrders, payouts))
	})

	t.Run("stale total after recalculation", func(t *testing.T) {
		stale := []models.BonusPayout{{Stage: models.PayoutStageSocial, Total: 150}}
		assert.Equal(t, StateCEOApproved, DeriveState(approved, nil, stale))
	})
}
