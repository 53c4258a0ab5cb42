package biz

import (
	"context"
	"testing"
	"time"

	"usage-billing-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var windowStart = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func at(d time.Duration) time.Time {
	return windowStart.Add(d)
}

func ev(taskID, action string, d time.Duration) *TaskWorkEvent {
	return &TaskWorkEvent{TaskID: taskID, Action: action, At: at(d)}
}

func TestAccumulateSeconds(t *testing.T) {
	windowEnd := at(30 * 24 * time.Hour)

	t.Run("closed interval", func(t *testing.T) {
		events := []*TaskWorkEvent{
			ev("t1", constants.WorkActionStart, 0),
			ev("t1", constants.WorkActionPause, time.Hour),
		}
		assert.Equal(t, 3600.0, AccumulateSeconds(events, windowStart, windowEnd))
	})

	t.Run("pause and resume", func(t *testing.T) {
		events := []*TaskWorkEvent{
			ev("t1", constants.WorkActionStart, 0),
			ev("t1", constants.WorkActionPause, time.Hour),
			ev("t1", constants.WorkActionResume, 2*time.Hour),
			ev("t1", constants.WorkActionComplete, 3*time.Hour),
		}
		assert.Equal(t, 7200.0, AccumulateSeconds(events, windowStart, windowEnd))
	})

	t.Run("open interval flushes at window end", func(t *testing.T) {
		events := []*TaskWorkEvent{
			ev("t1", constants.WorkActionStart, 0),
		}
		// 仍在进行中的任务计到查询时刻为止
		assert.Equal(t, 2*3600.0, AccumulateSeconds(events, windowStart, at(2*time.Hour)))
	})

	t.Run("task switch flushes the open interval", func(t *testing.T) {
		events := []*TaskWorkEvent{
			ev("t1", constants.WorkActionStart, 0),
			ev("t2", constants.WorkActionStart, time.Hour),
			ev("t2", constants.WorkActionComplete, 2*time.Hour),
		}
		// t1 没有关区间事件，在窗口末端冲销；t2 正常关区间。
		// 窗口取 3 小时：t1 计 3 小时（0→窗口末端），t2 计 1 小时
		total := AccumulateSeconds(events, windowStart, at(3*time.Hour))
		assert.Equal(t, 4*3600.0, total)
	})

	t.Run("start before window is clamped", func(t *testing.T) {
		events := []*TaskWorkEvent{
			ev("t1", constants.WorkActionStart, -2*time.Hour),
			ev("t1", constants.WorkActionPause, time.Hour),
		}
		// 窗口前的部分不计
		assert.Equal(t, 3600.0, AccumulateSeconds(events, windowStart, windowEnd))
	})

	t.Run("close after window is clamped", func(t *testing.T) {
		events := []*TaskWorkEvent{
			ev("t1", constants.WorkActionStart, time.Hour),
			ev("t1", constants.WorkActionComplete, 5*time.Hour),
		}
		assert.Equal(t, 3600.0, AccumulateSeconds(events, windowStart, at(2*time.Hour)))
	})

	t.Run("start after window end contributes nothing", func(t *testing.T) {
		events := []*TaskWorkEvent{
			ev("t1", constants.WorkActionStart, 3*time.Hour),
			ev("t1", constants.WorkActionComplete, 4*time.Hour),
		}
		assert.Equal(t, 0.0, AccumulateSeconds(events, windowStart, at(2*time.Hour)))
	})

	t.Run("duplicate start does not reopen", func(t *testing.T) {
		events := []*TaskWorkEvent{
			ev("t1", constants.WorkActionStart, 0),
			ev("t1", constants.WorkActionStart, 30*time.Minute),
			ev("t1", constants.WorkActionPause, time.Hour),
		}
		assert.Equal(t, 3600.0, AccumulateSeconds(events, windowStart, windowEnd))
	})

	t.Run("pause without start is ignored", func(t *testing.T) {
		events := []*TaskWorkEvent{
			ev("t1", constants.WorkActionPause, time.Hour),
			ev("t1", constants.WorkActionComplete, 2*time.Hour),
		}
		assert.Equal(t, 0.0, AccumulateSeconds(events, windowStart, windowEnd))
	})

	t.Run("no events", func(t *testing.T) {
		assert.Equal(t, 0.0, AccumulateSeconds(nil, windowStart, windowEnd))
	})

	t.Run("multiple tasks accumulate independently", func(t *testing.T) {
		events := []*TaskWorkEvent{
			ev("t1", constants.WorkActionStart, 0),
			ev("t1", constants.WorkActionComplete, time.Hour),
			ev("t2", constants.WorkActionStart, 0),
			ev("t2", constants.WorkActionPause, 90*time.Minute),
		}
		assert.Equal(t, 3600.0+5400.0, AccumulateSeconds(events, windowStart, windowEnd))
	})
}

func TestSummarizeUsage(t *testing.T) {
	t.Run("within the pool", func(t *testing.T) {
		f := SummarizeUsage(8, 20, 5, 12)
		assert.Equal(t, 8.0, f.UsedHours)
		assert.Equal(t, 17.0, f.RemainingHours)
		assert.Equal(t, 0.0, f.OverageHours)
		assert.Equal(t, 0.0, f.OverageCost)
	})

	t.Run("exactly exhausted", func(t *testing.T) {
		f := SummarizeUsage(25, 20, 5, 12)
		assert.Equal(t, 0.0, f.RemainingHours)
		assert.Equal(t, 0.0, f.OverageHours)
		assert.Equal(t, 0.0, f.OverageCost)
	})

	t.Run("overage is billed at the additional rate", func(t *testing.T) {
		f := SummarizeUsage(27.5, 20, 5, 12)
		assert.Equal(t, 0.0, f.RemainingHours)
		assert.InDelta(t, 2.5, f.OverageHours, 1e-9)
		assert.InDelta(t, 30.0, f.OverageCost, 1e-9)
	})

	t.Run("rollover extends the pool", func(t *testing.T) {
		noRollover := SummarizeUsage(22, 20, 0, 12)
		withRollover := SummarizeUsage(22, 20, 5, 12)
		assert.InDelta(t, 2.0, noRollover.OverageHours, 1e-9)
		assert.Equal(t, 0.0, withRollover.OverageHours)
		assert.Equal(t, 3.0, withRollover.RemainingHours)
	})

	t.Run("zero usage", func(t *testing.T) {
		f := SummarizeUsage(0, 20, 5, 12)
		assert.Equal(t, 25.0, f.RemainingHours)
		assert.Equal(t, 0.0, f.OverageHours)
	})
}

func newUsageTestEnv(t *testing.T) (*UsageUseCase, *fakeCycleRepo, *fakeWorkEventRepo, *fakeLimiter) {
	t.Helper()
	conf := &BillingConfig{Currency: "INR", CycleMonths: 1}
	cycles := newFakeCycleRepo()
	events := &fakeWorkEventRepo{}
	limiter := &fakeLimiter{allow: true}
	uc := NewUsageUseCase(events, cycles, limiter, conf, log.DefaultLogger)
	return uc, cycles, events, limiter
}

func TestUsageSummary(t *testing.T) {
	ctx := context.Background()

	seedCycle := func(cycles *fakeCycleRepo, started time.Time) {
		cycles.active["cust_1"] = &BillingCycle{
			ID:                     "cycle_1",
			CustomerID:             "cust_1",
			PlanID:                 "plan_starter",
			Status:                 constants.CycleStatusActive,
			StartedAt:              started,
			ExpiresAt:              started.AddDate(0, 1, 0),
			IncludedHours:          20,
			RolloverHoursApplied:   5,
			AddlHourlyRateSnapshot: 90,
		}
	}

	t.Run("usage within the pool", func(t *testing.T) {
		uc, cycles, events, _ := newUsageTestEnv(t)
		started := time.Now().Add(-10 * 24 * time.Hour)
		seedCycle(cycles, started)
		events.events = []*TaskWorkEvent{
			{TaskID: "t1", Action: constants.WorkActionStart, At: started.Add(time.Hour)},
			{TaskID: "t1", Action: constants.WorkActionComplete, At: started.Add(9 * time.Hour)},
		}

		summary, err := uc.Summary(ctx, "cust_1")
		require.NoError(t, err)
		assert.Equal(t, 8.0, summary.UsedHours)
		assert.Equal(t, 17.0, summary.RemainingHours)
		assert.Equal(t, 0.0, summary.OverageHours)
		assert.Equal(t, 5.0, summary.RolloverHoursApplied)
		assert.Equal(t, 90.0, summary.AddlHourlyRate)
		// 30/31 天的账期还剩约 20 天
		assert.Greater(t, summary.DaysLeft, 15)
	})

	t.Run("open interval counts up to now", func(t *testing.T) {
		uc, cycles, events, _ := newUsageTestEnv(t)
		started := time.Now().Add(-10 * 24 * time.Hour)
		seedCycle(cycles, started)
		events.events = []*TaskWorkEvent{
			{TaskID: "t1", Action: constants.WorkActionStart, At: time.Now().Add(-2 * time.Hour)},
		}

		summary, err := uc.Summary(ctx, "cust_1")
		require.NoError(t, err)
		assert.InDelta(t, 2.0, summary.UsedHours, 0.01)
	})

	t.Run("overage is priced", func(t *testing.T) {
		uc, cycles, events, _ := newUsageTestEnv(t)
		started := time.Now().Add(-20 * 24 * time.Hour)
		seedCycle(cycles, started)
		events.events = []*TaskWorkEvent{
			{TaskID: "t1", Action: constants.WorkActionStart, At: started.Add(time.Hour)},
			{TaskID: "t1", Action: constants.WorkActionComplete, At: started.Add(29 * time.Hour)},
		}

		summary, err := uc.Summary(ctx, "cust_1")
		require.NoError(t, err)
		assert.Equal(t, 28.0, summary.UsedHours)
		assert.Equal(t, 0.0, summary.RemainingHours)
		assert.Equal(t, 3.0, summary.OverageHours)
		assert.Equal(t, 270.0, summary.OverageCost)
	})

	t.Run("no active cycle", func(t *testing.T) {
		uc, _, _, _ := newUsageTestEnv(t)
		_, err := uc.Summary(ctx, "cust_1")
		assert.Error(t, err)
	})

	t.Run("rate limited", func(t *testing.T) {
		uc, cycles, _, limiter := newUsageTestEnv(t)
		seedCycle(cycles, time.Now().Add(-24*time.Hour))
		limiter.allow = false

		_, err := uc.Summary(ctx, "cust_1")
		assert.Error(t, err)
	})
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.23, Round2(1.2345))
	assert.Equal(t, 1.24, Round2(1.236))
	assert.Equal(t, 0.0, Round2(0.004))
	assert.Equal(t, 2.0, Round2(1.999))
}
