package data

import (
	"context"
	"errors"
	"testing"
	"time"

	"usage-billing-service/internal/biz"
	"usage-billing-service/internal/constants"
	"usage-billing-service/internal/data/model"

	"github.com/glebarez/sqlite"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestData(t *testing.T) *Data {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.Plan{},
		&model.Order{},
		&model.CustomerPlan{},
		&model.Task{},
		&model.TaskWorkLog{},
		&model.AuditLog{},
	))

	return &Data{db: db}
}

func testCycle(customerID, planID string) *biz.BillingCycle {
	now := time.Now()
	return &biz.BillingCycle{
		ID:                      "cycle_" + planID + "_" + customerID,
		CustomerID:              customerID,
		PlanID:                  planID,
		Status:                  constants.CycleStatusActive,
		StartedAt:               now,
		ExpiresAt:               now.AddDate(0, 1, 0),
		IncludedHours:           20,
		RolloverPercentSnapshot: 25,
		AddlHourlyRateSnapshot:  12,
	}
}

func TestBillingCycleRepo_ActivateCycle(t *testing.T) {
	ctx := context.Background()

	t.Run("first activation", func(t *testing.T) {
		d := newTestData(t)
		repo := NewBillingCycleRepo(d, log.DefaultLogger)

		require.NoError(t, repo.ActivateCycle(ctx, testCycle("cust_1", "plan_a")))

		got, err := repo.GetActiveCycle(ctx, "cust_1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "plan_a", got.PlanID)
		assert.Equal(t, constants.CycleStatusActive, got.Status)
	})

	t.Run("renewal cancels the previous cycle", func(t *testing.T) {
		d := newTestData(t)
		repo := NewBillingCycleRepo(d, log.DefaultLogger)

		require.NoError(t, repo.ActivateCycle(ctx, testCycle("cust_1", "plan_a")))
		require.NoError(t, repo.ActivateCycle(ctx, testCycle("cust_1", "plan_b")))

		got, err := repo.GetActiveCycle(ctx, "cust_1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "plan_b", got.PlanID)

		var old model.CustomerPlan
		require.NoError(t, d.db.Where("plan_id = ?", "plan_a").First(&old).Error)
		assert.Equal(t, constants.CycleStatusCancelled, old.Status)
		assert.Nil(t, old.ActiveKey)
		assert.NotNil(t, old.EndedAt)
	})

	t.Run("concurrent activation loses to the committed winner", func(t *testing.T) {
		d := newTestData(t)
		repo := NewBillingCycleRepo(d, log.DefaultLogger)

		// 模拟并发对端已提交：唯一位被占住，但本事务的 SELECT 快照里
		// 看不到可取消的生效账期
		activeKey := "cust_1"
		require.NoError(t, d.db.Create(&model.CustomerPlan{
			ID:         "winner",
			CustomerID: "cust_1",
			PlanID:     "plan_a",
			Status:     constants.CycleStatusCancelled,
			ActiveKey:  &activeKey,
			StartedAt:  time.Now(),
			ExpiresAt:  time.Now().AddDate(0, 1, 0),
		}).Error)

		err := repo.ActivateCycle(ctx, testCycle("cust_1", "plan_b"))
		assert.True(t, errors.Is(err, biz.ErrCycleConflict))
	})

	t.Run("customers do not conflict with each other", func(t *testing.T) {
		d := newTestData(t)
		repo := NewBillingCycleRepo(d, log.DefaultLogger)

		require.NoError(t, repo.ActivateCycle(ctx, testCycle("cust_1", "plan_a")))
		require.NoError(t, repo.ActivateCycle(ctx, testCycle("cust_2", "plan_a")))
	})
}

func TestBillingCycleRepo_ExpireOverdueCycles(t *testing.T) {
	ctx := context.Background()
	d := newTestData(t)
	repo := NewBillingCycleRepo(d, log.DefaultLogger)

	overdue := testCycle("cust_1", "plan_a")
	overdue.ExpiresAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.ActivateCycle(ctx, overdue))
	require.NoError(t, repo.ActivateCycle(ctx, testCycle("cust_2", "plan_a")))

	affected, err := repo.ExpireOverdueCycles(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	got, err := repo.GetActiveCycle(ctx, "cust_1")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.GetActiveCycle(ctx, "cust_2")
	require.NoError(t, err)
	assert.NotNil(t, got, "non-overdue cycle stays active")
}

func TestOrderRepo_MarkOrderPaid(t *testing.T) {
	ctx := context.Background()
	d := newTestData(t)
	repo := NewOrderRepo(d, log.DefaultLogger)

	order := &biz.Order{
		ID:             "order_1",
		CustomerID:     "cust_1",
		PlanID:         "plan_a",
		GatewayOrderID: "gw_order_1",
		Amount:         149900,
		Currency:       "INR",
		Status:         constants.OrderStatusPending,
		Purpose:        constants.OrderPurposePlan,
	}
	require.NoError(t, repo.CreateOrder(ctx, order))

	transitioned, err := repo.MarkOrderPaid(ctx, "order_1", time.Now())
	require.NoError(t, err)
	assert.True(t, transitioned, "first confirmation wins the transition")

	transitioned, err = repo.MarkOrderPaid(ctx, "order_1", time.Now())
	require.NoError(t, err)
	assert.False(t, transitioned, "second confirmation must not transition again")

	got, err := repo.GetOrderByID(ctx, "order_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, constants.OrderStatusPaid, got.Status)
	assert.NotNil(t, got.PaidAt)

	// 已支付订单不会被标记为失败
	require.NoError(t, repo.MarkOrderFailed(ctx, "order_1"))
	got, err = repo.GetOrderByID(ctx, "order_1")
	require.NoError(t, err)
	assert.Equal(t, constants.OrderStatusPaid, got.Status)
}

func TestWorkEventRepo(t *testing.T) {
	ctx := context.Background()
	d := newTestData(t)
	repo := NewWorkEventRepo(d, log.DefaultLogger)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	events := []*biz.IngestWorkEvent{
		{TaskID: "task_b", CustomerID: "cust_1", Action: constants.WorkActionStart, At: base.Add(2 * time.Hour)},
		{TaskID: "task_a", CustomerID: "cust_1", Action: constants.WorkActionStart, At: base},
		{TaskID: "task_a", CustomerID: "cust_1", Action: constants.WorkActionPause, At: base.Add(time.Hour)},
		{TaskID: "task_x", CustomerID: "cust_2", Action: constants.WorkActionStart, At: base},
	}
	require.NoError(t, repo.CreateWorkEvents(ctx, events))

	// 重复投递已存在任务的事件不报错（任务行 upsert）
	require.NoError(t, repo.CreateWorkEvents(ctx, events[3:]))

	got, err := repo.ListWorkEvents(ctx, "cust_1", base.Add(-time.Hour), base.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 3, "other customers' events are excluded")

	// (task_id, at) 升序
	assert.Equal(t, "task_a", got[0].TaskID)
	assert.Equal(t, constants.WorkActionStart, got[0].Action)
	assert.Equal(t, "task_a", got[1].TaskID)
	assert.Equal(t, constants.WorkActionPause, got[1].Action)
	assert.Equal(t, "task_b", got[2].TaskID)

	// 窗口过滤
	got, err = repo.ListWorkEvents(ctx, "cust_1", base.Add(90*time.Minute), base.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "task_b", got[0].TaskID)
}
