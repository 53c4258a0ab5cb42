package biz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func prevCycle(included, rolloverApplied, percent float64) *BillingCycle {
	return &BillingCycle{
		IncludedHours:           included,
		RolloverHoursApplied:    rolloverApplied,
		RolloverPercentSnapshot: percent,
	}
}

func TestComputeRollover(t *testing.T) {
	t.Run("no previous cycle", func(t *testing.T) {
		assert.Equal(t, 0.0, ComputeRollover(nil, 0))
	})

	t.Run("remaining below the cap carries in full", func(t *testing.T) {
		// 池 20h，用 17h，剩 3h；上限 floor(20*25/100)=5h
		assert.Equal(t, 3.0, ComputeRollover(prevCycle(20, 0, 25), 17))
	})

	t.Run("remaining above the cap is clipped", func(t *testing.T) {
		// 池 20h，用 5h，剩 15h；上限 5h
		assert.Equal(t, 5.0, ComputeRollover(prevCycle(20, 0, 25), 5))
	})

	t.Run("cap is floored", func(t *testing.T) {
		// floor(10*25/100) = floor(2.5) = 2
		assert.Equal(t, 2.0, ComputeRollover(prevCycle(10, 0, 25), 0))
	})

	t.Run("overused cycle carries nothing", func(t *testing.T) {
		assert.Equal(t, 0.0, ComputeRollover(prevCycle(20, 0, 25), 26))
	})

	t.Run("zero percent carries nothing", func(t *testing.T) {
		assert.Equal(t, 0.0, ComputeRollover(prevCycle(20, 0, 0), 0))
	})

	t.Run("cap ignores inherited rollover", func(t *testing.T) {
		// 上限按上期自身的包含工时算，上期继承来的结转不抬高上限；
		// 但继承的结转计入剩余池
		// 池 20+5=25h，用 21h，剩 4h；上限 floor(20*25/100)=5h
		assert.Equal(t, 4.0, ComputeRollover(prevCycle(20, 5, 25), 21))

		// 剩余 25h 全在，仍只能带走 5h，不是 5+5
		assert.Equal(t, 5.0, ComputeRollover(prevCycle(20, 5, 25), 0))
	})

	t.Run("consecutive light cycles do not stack rollover", func(t *testing.T) {
		// 连续空转的账期每期都只能带上限值，结转不会无限累积
		carry := 0.0
		for i := 0; i < 4; i++ {
			carry = ComputeRollover(prevCycle(20, carry, 25), 0)
		}
		assert.Equal(t, 5.0, carry)
	})
}
