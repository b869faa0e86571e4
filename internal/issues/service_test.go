package issues

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/buildmart-backend/internal/disputes"
	"github.com/angelmondragon/buildmart-backend/internal/orders"
	"github.com/angelmondragon/buildmart-backend/pkg/clock"
	"github.com/angelmondragon/buildmart-backend/pkg/config"
	"github.com/angelmondragon/buildmart-backend/pkg/db"
	"github.com/angelmondragon/buildmart-backend/pkg/db/models"
	"github.com/angelmondragon/buildmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/buildmart-backend/pkg/errors"
	"github.com/angelmondragon/buildmart-backend/pkg/outbox"
	"github.com/angelmondragon/buildmart-backend/pkg/types"
)

type recordingOutbox struct {
	mu     sync.Mutex
	events []enums.OutboxEventType
}

func (r *recordingOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event.EventType)
	return nil
}

type memoryLocks struct {
	mu     sync.Mutex
	values map[string]string
}

func (m *memoryLocks) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = map[string]string{}
	}
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryLocks) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *memoryLocks) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *memoryLocks) LockKey(scope, id string) string {
	return "buildmart:lock:" + scope + ":" + id
}

type harness struct {
	conn     *gorm.DB
	locks    *memoryLocks
	clock    *clock.Fake
	issues   Service
	disputes disputes.Service
	orders   orders.Repository
	outbox   *recordingOutbox
	buyer    types.Actor
	vendor   types.Actor
	admin    types.Actor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	client, err := db.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	conn := client.DB()
	require.NoError(t, conn.AutoMigrate(
		&models.Order{},
		&models.OrderItem{},
		&models.OrderLabor{},
		&models.Payment{},
		&models.Delivery{},
		&models.OrderIssue{},
		&models.Dispute{},
		&models.DisputeEvidence{},
		&models.DisputeTimelineEntry{},
	))

	fake := clock.NewFake(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	orderRepo := orders.NewRepository(conn)
	issueRepo := NewRepository(conn)
	box := &recordingOutbox{}
	locks := &memoryLocks{}

	disputeSvc, err := disputes.NewService(disputes.ServiceParams{
		Repo:   disputes.NewRepository(conn),
		Orders: orderRepo,
		Issues: issueRepo,
		Tx:     client,
		Outbox: box,
		Locks:  locks,
		Clock:  fake,
		Config: config.DisputesConfig{LockTTL: 2 * time.Second},
	})
	require.NoError(t, err)

	issueSvc, err := NewService(ServiceParams{
		Repo:     issueRepo,
		Orders:   orderRepo,
		Disputes: disputeSvc,
		Tx:       client,
		Outbox:   box,
		Clock:    fake,
	})
	require.NoError(t, err)

	return &harness{
		conn:     conn,
		locks:    locks,
		clock:    fake,
		issues:   issueSvc,
		disputes: disputeSvc,
		orders:   orderRepo,
		outbox:   box,
		buyer:    types.Actor{ID: uuid.New(), Type: enums.ActorBuyer},
		vendor:   types.Actor{ID: uuid.New(), Type: enums.ActorVendor},
		admin:    types.Actor{ID: uuid.New(), Type: enums.ActorAdmin},
	}
}

func (h *harness) deliveredOrder(t *testing.T, total string) *models.Order {
	t.Helper()
	id := uuid.New()
	order := &models.Order{
		ID:          id,
		OrderNumber: "BM-202603-" + id.String()[:6],
		BuyerID:     h.buyer.ID,
		VendorID:    h.vendor.ID,
		OrderType:   enums.OrderTypeMaterial,
		Status:      enums.OrderStatusDelivered,
		Subtotal:    decimal.RequireFromString(total),
		GrandTotal:  decimal.RequireFromString(total),
		OfferedAt:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Version:     5,
	}
	require.NoError(t, h.orders.Create(context.Background(), order))
	return order
}

func (h *harness) report(t *testing.T, orderID uuid.UUID, issueType string) *models.OrderIssue {
	t.Helper()
	issue, err := h.issues.Report(context.Background(), ReportInput{
		OrderID:     orderID,
		Actor:       h.buyer,
		Description: "crew did not arrive on site",
		IssueType:   issueType,
	})
	require.NoError(t, err)
	return issue
}

func TestReasonForIssueType(t *testing.T) {
	cases := map[string]enums.DisputeReason{
		"damaged":        enums.DisputeReasonDamagedItems,
		"Quality_Issue":  enums.DisputeReasonQualityIssue,
		"late":           enums.DisputeReasonLateDelivery,
		"missing_items":  enums.DisputeReasonMissingItems,
		"incomplete":     enums.DisputeReasonIncompleteWork,
		"pricing":        enums.DisputeReasonWrongPricing,
		"vendor_no_show": enums.DisputeReasonVendorNoShow,
		"smell":          enums.DisputeReasonOther,
	}
	for input, want := range cases {
		require.Equal(t, want, ReasonForIssueType(input), input)
	}
}

func TestEscalateNoShowIssueOpensHighPriorityDispute(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.deliveredOrder(t, "90000")
	issue := h.report(t, order.ID, "vendor_no_show")

	dispute, err := h.issues.Escalate(ctx, EscalateInput{
		IssueID:        issue.ID,
		Actor:          h.buyer,
		DisputedAmount: decimal.RequireFromString("60000"),
	})
	require.NoError(t, err)
	require.Equal(t, enums.DisputeReasonVendorNoShow, dispute.Reason)
	require.Equal(t, enums.DisputePriorityHigh, dispute.Priority)
	require.Equal(t, &issue.ID, dispute.IssueID)
	require.Equal(t, []enums.OutboxEventType{enums.EventIssueReported, enums.EventDisputeOpened}, h.outbox.events)

	stored, err := h.orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.True(t, stored.HasActiveDispute)
	require.Equal(t, dispute.ID, *stored.ActiveDisputeID)

	escalated, err := h.issues.Get(ctx, issue.ID)
	require.NoError(t, err)
	require.Equal(t, enums.IssueStatusEscalated, escalated.Status)
	require.True(t, escalated.EscalatedToDispute)
	require.NotNil(t, escalated.EscalatedAt)
	require.True(t, h.clock.Now().Equal(escalated.EscalatedAt.UTC()), escalated.EscalatedAt.String())

	timeline, err := h.disputes.Timeline(ctx, dispute.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 1)
	require.Contains(t, timeline[0].Description, issue.ID.String())

	active, err := h.disputes.ActiveForOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, dispute.ID, active.ID)

	_, err = h.issues.Escalate(ctx, EscalateInput{IssueID: issue.ID, Actor: h.buyer, DisputedAmount: decimal.RequireFromString("10")})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAlreadyExists), "got %v", err)
}

func TestReEscalatingAfterResolutionReportsDuplicate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.deliveredOrder(t, "12000")
	issue := h.report(t, order.ID, "damaged")

	dispute, err := h.issues.Escalate(ctx, EscalateInput{IssueID: issue.ID, Actor: h.buyer, DisputedAmount: decimal.RequireFromString("3000")})
	require.NoError(t, err)
	_, err = h.disputes.Resolve(ctx, disputes.ResolveInput{DisputeID: dispute.ID, Actor: h.admin, Outcome: enums.DisputeStatusRejected})
	require.NoError(t, err)

	// The order flag is clear again, so only the issue link can refuse this.
	issueID := issue.ID
	_, err = h.disputes.Create(ctx, disputes.CreateInput{
		OrderID:        order.ID,
		Actor:          h.buyer,
		Reason:         enums.DisputeReasonDamagedItems,
		Description:    "same cracked sheets",
		DisputedAmount: decimal.RequireFromString("3000"),
		IssueID:        &issueID,
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAlreadyExists), "got %v", err)

	stored, err := h.orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.False(t, stored.HasActiveDispute, "rejected link must roll the flag back")
}

func TestConcurrentEscalationsOpenOneDispute(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sqlDB, err := h.conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	order := h.deliveredOrder(t, "40000")
	issue := h.report(t, order.ID, "vendor_no_show")

	const callers = 4
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.issues.Escalate(ctx, EscalateInput{IssueID: issue.ID, Actor: h.buyer, DisputedAmount: decimal.RequireFromString("25000")})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAlreadyExists), "got %v", err)
	}
	require.Equal(t, 1, succeeded)

	var count int64
	require.NoError(t, h.conn.Model(&models.Dispute{}).Where("order_id = ?", order.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestEscalationWaitsOutAHeldOrderLock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.deliveredOrder(t, "15000")
	issue := h.report(t, order.ID, "late")

	key := h.locks.LockKey("dispute_order", order.ID.String())
	held, err := h.locks.SetNX(ctx, key, "other-instance", time.Minute)
	require.NoError(t, err)
	require.True(t, held)
	go func() {
		time.Sleep(400 * time.Millisecond)
		_ = h.locks.Del(context.Background(), key)
	}()

	dispute, err := h.issues.Escalate(ctx, EscalateInput{IssueID: issue.ID, Actor: h.buyer, DisputedAmount: decimal.RequireFromString("500")})
	require.NoError(t, err)
	require.Equal(t, order.ID, dispute.OrderID)
}

func TestSecondEscalationOnSameOrderIsRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.deliveredOrder(t, "20000")
	first := h.report(t, order.ID, "damaged")
	second := h.report(t, order.ID, "late")

	_, err := h.issues.Escalate(ctx, EscalateInput{IssueID: first.ID, Actor: h.buyer, DisputedAmount: decimal.RequireFromString("4800")})
	require.NoError(t, err)

	_, err = h.issues.Escalate(ctx, EscalateInput{IssueID: second.ID, Actor: h.buyer, DisputedAmount: decimal.RequireFromString("1000")})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAlreadyExists), "got %v", err)

	untouched, err := h.issues.Get(ctx, second.ID)
	require.NoError(t, err)
	require.Equal(t, enums.IssueStatusOpen, untouched.Status, "losing escalation must roll back")

	var count int64
	require.NoError(t, h.conn.Model(&models.Dispute{}).Where("order_id = ?", order.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestPartialRefundResolutionClearsOrderFlag(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.deliveredOrder(t, "20000")
	issue := h.report(t, order.ID, "damaged_items")

	dispute, err := h.issues.Escalate(ctx, EscalateInput{IssueID: issue.ID, Actor: h.buyer, DisputedAmount: decimal.RequireFromString("4800")})
	require.NoError(t, err)
	require.Equal(t, enums.DisputePriorityMedium, dispute.Priority)

	over := decimal.RequireFromString("4800.01")
	_, err = h.disputes.Resolve(ctx, disputes.ResolveInput{
		DisputeID: dispute.ID, Actor: h.admin, Outcome: enums.DisputeStatusResolvedPartialRefund, RefundAmount: &over,
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	refund := decimal.RequireFromString("2400")
	resolved, err := h.disputes.Resolve(ctx, disputes.ResolveInput{
		DisputeID:    dispute.ID,
		Actor:        h.admin,
		Outcome:      enums.DisputeStatusResolvedPartialRefund,
		RefundAmount: &refund,
		Note:         "two sheets cracked",
	})
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	require.True(t, resolved.RefundAmount.Decimal.Equal(refund))

	stored, err := h.orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.False(t, stored.HasActiveDispute)
	require.True(t, stored.RefundRequired)

	timeline, err := h.disputes.Timeline(ctx, dispute.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 2, "resolution appends exactly one entry")
	require.Equal(t, disputes.ActionResolved, timeline[1].Action)

	_, err = h.disputes.Escalate(ctx, disputes.EscalateInput{DisputeID: dispute.ID, Actor: h.buyer, Reason: "unhappy"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
}

func TestDisputeLifecycleTimeline(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.deliveredOrder(t, "30000")

	dispute, err := h.disputes.Create(ctx, disputes.CreateInput{
		OrderID:        order.ID,
		Actor:          h.vendor,
		Reason:         enums.DisputeReasonWrongPricing,
		Description:    "buyer disputes unloading charge",
		DisputedAmount: decimal.RequireFromString("1500"),
	})
	require.NoError(t, err)
	require.Equal(t, enums.DisputePriorityLow, dispute.Priority)

	agent := uuid.New()
	assigned, err := h.disputes.Assign(ctx, disputes.AssignInput{DisputeID: dispute.ID, Actor: h.admin, AssigneeID: agent})
	require.NoError(t, err)
	require.Equal(t, enums.DisputeStatusUnderReview, assigned.Status)

	_, err = h.disputes.AddEvidence(ctx, disputes.EvidenceInput{
		DisputeID: dispute.ID, Actor: h.buyer, Type: enums.EvidenceTypeInvoice, URL: "https://files.example.com/inv-77.pdf",
	})
	require.NoError(t, err)

	_, err = h.disputes.AddEvidence(ctx, disputes.EvidenceInput{
		DisputeID: dispute.ID, Actor: h.buyer, Type: enums.EvidenceTypeImage, URL: "not a url",
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	escalated, err := h.disputes.Escalate(ctx, disputes.EscalateInput{DisputeID: dispute.ID, Actor: h.buyer, Reason: "no response in 48h"})
	require.NoError(t, err)
	require.Equal(t, enums.DisputeStatusEscalated, escalated.Status)
	require.Equal(t, enums.DisputePriorityCritical, escalated.Priority)

	rejected, err := h.disputes.Resolve(ctx, disputes.ResolveInput{DisputeID: dispute.ID, Actor: h.admin, Outcome: enums.DisputeStatusRejected})
	require.NoError(t, err)
	require.False(t, rejected.RefundAmount.Valid)

	full, err := h.disputes.Get(ctx, dispute.ID)
	require.NoError(t, err)
	require.Len(t, full.Evidence, 1)

	timeline, err := h.disputes.Timeline(ctx, dispute.ID)
	require.NoError(t, err)
	actions := make([]string, 0, len(timeline))
	for i, entry := range timeline {
		require.EqualValues(t, i+1, entry.Sequence)
		actions = append(actions, entry.Action)
	}
	require.Equal(t, []string{
		disputes.ActionCreated,
		disputes.ActionAssigned,
		disputes.ActionEvidenceAdded,
		disputes.ActionEscalated,
		disputes.ActionResolved,
	}, actions)

	stored, err := h.orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.False(t, stored.HasActiveDispute)
	require.False(t, stored.RefundRequired)
}

func TestResolveIssueWithoutDispute(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.deliveredOrder(t, "1000")
	issue := h.report(t, order.ID, "missing")

	_, err := h.issues.Resolve(ctx, ResolveInput{IssueID: issue.ID, Actor: types.Actor{ID: uuid.New(), Type: enums.ActorBuyer}, Resolution: "x"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	resolved, err := h.issues.Resolve(ctx, ResolveInput{IssueID: issue.ID, Actor: h.vendor, Resolution: "missing bags sent"})
	require.NoError(t, err)
	require.Equal(t, enums.IssueStatusResolved, resolved.Status)

	_, err = h.issues.Resolve(ctx, ResolveInput{IssueID: issue.ID, Actor: h.vendor, Resolution: "again"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

	_, err = h.issues.Escalate(ctx, EscalateInput{IssueID: issue.ID, Actor: h.buyer, DisputedAmount: decimal.RequireFromString("10")})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
}
