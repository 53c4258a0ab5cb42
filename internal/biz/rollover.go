package biz

import "math"

// ComputeRollover 计算上一账期可结转到新账期的工时数
//
// 上限为 floor(上期包含工时 * 结转百分比 / 100)，未用完的池子再多也不能超过该上限；
// 没有上一账期（新客户）时结转为 0
func ComputeRollover(prev *BillingCycle, usedHoursPrev float64) float64 {
	if prev == nil {
		return 0
	}
	poolPrev := prev.IncludedHours + prev.RolloverHoursApplied
	remainingPrev := math.Max(0, poolPrev-usedHoursPrev)
	maxCarry := math.Floor(prev.IncludedHours * prev.RolloverPercentSnapshot / 100)
	return math.Min(remainingPrev, maxCarry)
}

// resolveRolloverPercent 解析套餐的结转百分比
//
// 套餐 features 里的显式字段优先；按套餐名查配置表仅作为遗留回退。
// 两者同时存在且不一致时记录告警（套餐改名后配置表可能失真），仍以显式字段为准
func (uc *CycleUseCase) resolveRolloverPercent(plan *Plan) float64 {
	tablePercent, inTable := uc.conf.RolloverPercents[plan.Name]
	if plan.Features.RolloverPercent != nil {
		explicit := *plan.Features.RolloverPercent
		if inTable && tablePercent != explicit {
			uc.log.Warnf("rollover percent divergence for plan %s: features=%v table=%v, using features",
				plan.Name, explicit, tablePercent)
		}
		return explicit
	}
	if inTable {
		return tablePercent
	}
	return 0
}
