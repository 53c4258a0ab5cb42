package biz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"usage-billing-service/internal/constants"
)

// 内存版 repo 实现，行为与数据层约定一致（找不到返回 (nil, nil)、
// 条件迁移、唯一冲突返回 ErrCycleConflict）

type fakePlanRepo struct {
	plans map[string]*Plan
}

func newFakePlanRepo(plans ...*Plan) *fakePlanRepo {
	r := &fakePlanRepo{plans: make(map[string]*Plan)}
	for _, p := range plans {
		r.plans[p.ID] = p
	}
	return r
}

func (r *fakePlanRepo) GetPlan(ctx context.Context, planID string) (*Plan, error) {
	return r.plans[planID], nil
}

func (r *fakePlanRepo) GetPlanByName(ctx context.Context, name string) (*Plan, error) {
	for _, p := range r.plans {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, nil
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*Order
}

func newFakeOrderRepo(orders ...*Order) *fakeOrderRepo {
	r := &fakeOrderRepo{orders: make(map[string]*Order)}
	for _, o := range orders {
		r.orders[o.ID] = o
	}
	return r
}

func (r *fakeOrderRepo) CreateOrder(ctx context.Context, order *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) GetOrderByID(ctx context.Context, orderID string) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) GetOrderByGatewayID(ctx context.Context, gatewayOrderID string) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.GatewayOrderID == gatewayOrderID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeOrderRepo) MarkOrderPaid(ctx context.Context, orderID string, paidAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok || o.Status != constants.OrderStatusPending {
		return false, nil
	}
	o.Status = constants.OrderStatusPaid
	o.PaidAt = &paidAt
	return true, nil
}

func (r *fakeOrderRepo) MarkOrderFailed(ctx context.Context, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[orderID]; ok && o.Status == constants.OrderStatusPending {
		o.Status = constants.OrderStatusFailed
	}
	return nil
}

type fakeCycleRepo struct {
	mu            sync.Mutex
	active        map[string]*BillingCycle
	activateCalls int
	// conflictNext 模拟并发对端先提交：下一次 ActivateCycle 返回冲突
	conflictNext bool
}

func newFakeCycleRepo() *fakeCycleRepo {
	return &fakeCycleRepo{active: make(map[string]*BillingCycle)}
}

func (r *fakeCycleRepo) GetActiveCycle(ctx context.Context, customerID string) (*BillingCycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.active[customerID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCycleRepo) ActivateCycle(ctx context.Context, next *BillingCycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activateCalls++
	if r.conflictNext {
		r.conflictNext = false
		return ErrCycleConflict
	}
	cp := *next
	r.active[next.CustomerID] = &cp
	return nil
}

func (r *fakeCycleRepo) ExpireOverdueCycles(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for customerID, c := range r.active {
		if !c.ExpiresAt.After(now) {
			delete(r.active, customerID)
			n++
		}
	}
	return n, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*AuditLog
}

func (r *fakeAuditRepo) CreateAuditLog(ctx context.Context, entry *AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

type fakeWorkEventRepo struct {
	events []*TaskWorkEvent
}

func (r *fakeWorkEventRepo) ListWorkEvents(ctx context.Context, customerID string, from, to time.Time) ([]*TaskWorkEvent, error) {
	var out []*TaskWorkEvent
	for _, e := range r.events {
		if !e.At.Before(from) && !e.At.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeWorkEventRepo) CreateWorkEvents(ctx context.Context, events []*IngestWorkEvent) error {
	return nil
}

type fakeGateway struct {
	mu       sync.Mutex
	requests []*CreateGatewayOrderRequest
	seq      int
}

func (g *fakeGateway) CreateOrder(ctx context.Context, req *CreateGatewayOrderRequest) (*CreateGatewayOrderReply, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	g.requests = append(g.requests, req)
	return &CreateGatewayOrderReply{GatewayOrderID: fmt.Sprintf("gw_order_%d", g.seq)}, nil
}

type fakeLimiter struct {
	allow bool
}

func (l *fakeLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return l.allow, nil
}
