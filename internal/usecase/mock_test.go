//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/adapter"
	"subscription-commerce/internal/domain/ports/repository"
)

// =============================
// Gateway
// =============================

type MockPaymentGateway struct {
	mu sync.Mutex

	GetPaymentFunc       func(ctx context.Context, id string) (*adapter.PaymentRecord, error)
	GetPreapprovalFunc   func(ctx context.Context, id string) (*adapter.PreapprovalRecord, error)
	CreatePreferenceFunc func(ctx context.Context, req *adapter.PreferenceRequest) (*adapter.PreferenceResponse, error)
	SearchFunc           func(ctx context.Context, preferenceID string) ([]string, error)

	Calls struct {
		GetPayment       []string
		CreatePreference []*adapter.PreferenceRequest
		Search           []string
	}
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) GetPayment(ctx context.Context, id string) (*adapter.PaymentRecord, error) {
	m.mu.Lock()
	m.Calls.GetPayment = append(m.Calls.GetPayment, id)
	m.mu.Unlock()
	if m.GetPaymentFunc != nil {
		return m.GetPaymentFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *MockPaymentGateway) GetPreapproval(ctx context.Context, id string) (*adapter.PreapprovalRecord, error) {
	if m.GetPreapprovalFunc != nil {
		return m.GetPreapprovalFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *MockPaymentGateway) CreatePreference(ctx context.Context, req *adapter.PreferenceRequest) (*adapter.PreferenceResponse, error) {
	m.mu.Lock()
	m.Calls.CreatePreference = append(m.Calls.CreatePreference, req)
	m.mu.Unlock()
	if m.CreatePreferenceFunc != nil {
		return m.CreatePreferenceFunc(ctx, req)
	}
	return &adapter.PreferenceResponse{PreferenceID: "pref-1", InitPoint: "https://gw.test/checkout/pref-1"}, nil
}

func (m *MockPaymentGateway) SearchPaymentsByPreference(ctx context.Context, preferenceID string) ([]string, error) {
	m.mu.Lock()
	m.Calls.Search = append(m.Calls.Search, preferenceID)
	m.mu.Unlock()
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, preferenceID)
	}
	return nil, nil
}

// =============================
// Repositories (in-memory)
// =============================

// ---- TxManager ----

type MockTxManager struct {
	mu          sync.Mutex
	LockedUsers []string
	Commits     int
	Rollbacks   int

	WithTxFunc   func(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error
	LockUserFunc func(ctx context.Context, tx repository.Tx, userID string) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, fn)
	}
	err := fn(ctx, repository.NoTX)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.Rollbacks++
		return err
	}
	m.Commits++
	return nil
}

func (m *MockTxManager) LockUser(ctx context.Context, tx repository.Tx, userID string) error {
	if m.LockUserFunc != nil {
		return m.LockUserFunc(ctx, tx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LockedUsers = append(m.LockedUsers, userID)
	return nil
}

// ---- Plans ----

type MockPlanRepo struct {
	mu    sync.Mutex
	plans map[string]*model.Plan

	FindByIDFunc func(ctx context.Context, id string) (*model.Plan, error)
}

var _ repository.PlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo() *MockPlanRepo {
	return &MockPlanRepo{plans: map[string]*model.Plan{}}
}

func (m *MockPlanRepo) Save(ctx context.Context, p *model.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.plans[p.ID] = &cp
	return nil
}

func (m *MockPlanRepo) FindByID(ctx context.Context, id string) (*model.Plan, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPlanRepo) ListActive(ctx context.Context) ([]*model.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Plan
	for _, p := range m.plans {
		if p.Active {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out, nil
}

// foldName mirrors the diacritic folding the SQL search applies.
var foldName = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "ô", "o", "õ", "o",
	"ú", "u", "ü", "u",
	"ç", "c",
)

func (m *MockPlanRepo) SearchByName(ctx context.Context, nameToken string, interval model.BillingInterval) (*model.Plan, error) {
	plans, _ := m.ListActive(ctx)
	for _, p := range plans {
		if interval != "" && p.BillingInterval != interval {
			continue
		}
		if strings.Contains(foldName.Replace(strings.ToLower(p.Name)), foldName.Replace(strings.ToLower(nameToken))) {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPlanRepo) FindByInterval(ctx context.Context, interval model.BillingInterval) (*model.Plan, error) {
	plans, _ := m.ListActive(ctx)
	for _, p := range plans {
		if p.BillingInterval == interval {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPlanRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Active = false
	return nil
}

// ---- Users ----

type MockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{users: map[string]*model.User{}}
}

func (m *MockUserRepo) Add(u *model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *MockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// ---- Payment attempts ----

type MockAttemptRepo struct {
	mu       sync.Mutex
	attempts map[string]*model.PaymentAttempt

	SaveFunc         func(ctx context.Context, tx repository.Tx, a *model.PaymentAttempt) error
	UpdateStatusFunc func(ctx context.Context, tx repository.Tx, id string, status model.AttemptStatus) error
}

var _ repository.PaymentAttemptRepository = (*MockAttemptRepo)(nil)

func NewMockAttemptRepo() *MockAttemptRepo {
	return &MockAttemptRepo{attempts: map[string]*model.PaymentAttempt{}}
}

func (m *MockAttemptRepo) Save(ctx context.Context, tx repository.Tx, a *model.PaymentAttempt) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, a)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.attempts[a.ID] = &cp
	return nil
}

func (m *MockAttemptRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MockAttemptRepo) FindLatestByUser(ctx context.Context, tx repository.Tx, userID, preferenceID string) (*model.PaymentAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *model.PaymentAttempt
	for _, a := range m.attempts {
		if a.UserID != userID {
			continue
		}
		if preferenceID != "" && a.PreferenceID != preferenceID {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			latest = a
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *MockAttemptRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.AttemptStatus) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, id, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now()
	return nil
}

func (m *MockAttemptRepo) CancelPendingExcept(ctx context.Context, tx repository.Tx, userID, keepID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, a := range m.attempts {
		if a.UserID == userID && a.Status == model.AttemptStatusPending && a.ID != keepID {
			a.Status = model.AttemptStatusCancelled
			n++
		}
	}
	return n, nil
}

func (m *MockAttemptRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.PaymentAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PaymentAttempt
	for _, a := range m.attempts {
		if a.Status == model.AttemptStatusPending && a.CreatedAt.Before(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- Subscriptions ----

type MockSubscriptionRepo struct {
	mu   sync.Mutex
	subs map[string]*model.Subscription

	SaveFunc func(ctx context.Context, tx repository.Tx, s *model.Subscription) error
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{subs: map[string]*model.Subscription{}}
}

func (m *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.subs[s.ID] = &cp
	return nil
}

func (m *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockSubscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.UserID == userID && s.Status == model.SubscriptionStatusActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockSubscriptionRepo) FindLatestInactiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *model.Subscription
	for _, s := range m.subs {
		if s.UserID == userID && s.Status != model.SubscriptionStatusActive {
			if latest == nil || s.UpdatedAt.After(latest.UpdatedAt) {
				latest = s
			}
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *MockSubscriptionRepo) CountActiveByPlan(ctx context.Context, tx repository.Tx) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int{}
	for _, s := range m.subs {
		if s.Status == model.SubscriptionStatusActive {
			out[s.PlanID]++
		}
	}
	return out, nil
}

// ---- Payments ----

type MockPaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*model.Payment // by transaction id

	InsertFunc func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	SumFunc    func(ctx context.Context, tx repository.Tx, period string) (float64, error)
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{payments: map[string]*model.Payment{}}
}

func (m *MockPaymentRepo) Insert(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.payments[p.TransactionID]; exists {
		return domain.ErrDuplicatePayment
	}
	cp := *p
	m.payments[p.TransactionID] = &cp
	return nil
}

func (m *MockPaymentRepo) FindByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[transactionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPaymentRepo) FindRecentApprovedByUser(ctx context.Context, tx repository.Tx, userID string, since time.Time) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *model.Payment
	for _, p := range m.payments {
		if p.UserID == userID && p.Status == "approved" && !p.CreatedAt.Before(since) {
			if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
				latest = p
			}
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *MockPaymentRepo) SumByPeriod(ctx context.Context, tx repository.Tx, period string) (float64, error) {
	if m.SumFunc != nil {
		return m.SumFunc(ctx, tx, period)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum float64
	for _, p := range m.payments {
		if p.Status == "approved" {
			sum += p.Amount
		}
	}
	return sum, nil
}

func (m *MockPaymentRepo) All() []*model.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Payment, 0, len(m.payments))
	for _, p := range m.payments {
		cp := *p
		out = append(out, &cp)
	}
	return out
}

// ---- Coupons ----

type MockCouponRepo struct {
	mu      sync.Mutex
	coupons map[string]*model.Coupon          // by id
	byCode  map[string]*model.Coupon          // by code
	usages  map[string]map[string]struct{}    // coupon id -> user ids

	RecordUsageFunc func(ctx context.Context, tx repository.Tx, couponID, userID string) error
}

var _ repository.CouponRepository = (*MockCouponRepo)(nil)

func NewMockCouponRepo() *MockCouponRepo {
	return &MockCouponRepo{
		coupons: map[string]*model.Coupon{},
		byCode:  map[string]*model.Coupon{},
		usages:  map[string]map[string]struct{}{},
	}
}

func (m *MockCouponRepo) Add(c *model.Coupon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coupons[c.ID] = c
	m.byCode[strings.ToUpper(c.Code)] = c
}

func (m *MockCouponRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockCouponRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byCode[strings.ToUpper(code)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockCouponRepo) RecordUsage(ctx context.Context, tx repository.Tx, couponID, userID string) error {
	if m.RecordUsageFunc != nil {
		return m.RecordUsageFunc(ctx, tx, couponID, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.usages[couponID] == nil {
		m.usages[couponID] = map[string]struct{}{}
	}
	if _, used := m.usages[couponID][userID]; used {
		return domain.ErrAlreadyExists
	}
	m.usages[couponID][userID] = struct{}{}
	if c, ok := m.coupons[couponID]; ok {
		c.UsageCount++
	}
	return nil
}

func (m *MockCouponRepo) UsageCount(couponID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.usages[couponID])
}

// ---- Financial log ----

type MockFinancialLogRepo struct {
	mu      sync.Mutex
	Entries []*model.FinancialLog

	AppendFunc func(ctx context.Context, tx repository.Tx, entry *model.FinancialLog) error
}

var _ repository.FinancialLogRepository = (*MockFinancialLogRepo)(nil)

func NewMockFinancialLogRepo() *MockFinancialLogRepo { return &MockFinancialLogRepo{} }

func (m *MockFinancialLogRepo) Append(ctx context.Context, tx repository.Tx, entry *model.FinancialLog) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.Entries = append(m.Entries, &cp)
	return nil
}

func (m *MockFinancialLogRepo) Actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		out = append(out, e.Action)
	}
	return out
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
// It writes to io.Discard to prevent logs from cluttering test output.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
