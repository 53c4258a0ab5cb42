package data

import (
	"context"
	"time"

	"usage-billing-service/internal/biz"
	"usage-billing-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm/clause"
)

type workEventRepo struct {
	data *Data
	log  *log.Helper
}

// NewWorkEventRepo 创建工时事件数据层
func NewWorkEventRepo(data *Data, logger log.Logger) biz.WorkEventRepo {
	return &workEventRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// ListWorkEvents 客户在时间窗口内的工时事件
//
// 事件表只带 task_id，客户维度通过 tasks 表关联。
// ORDER BY (task_id, at) 是重放算法的前置条件，排序责任在这里不在业务层。
// 窗口查询放宽到 [from, to]：早于 from 的 start 由重放算法在窗口起点截断，
// 但窗口内的 pause/complete 需要能配对到窗口前打开的区间，
// 因此额外取 from 之前每个任务最后一条事件代价太高，约定任务服务在
// 账期边界不留跨窗口的长区间（事件按自然工作节奏产生，单区间远小于账期）
func (r *workEventRepo) ListWorkEvents(ctx context.Context, customerID string, from, to time.Time) ([]*biz.TaskWorkEvent, error) {
	var rows []model.TaskWorkLog
	err := r.data.db.WithContext(ctx).
		Table("task_work_logs").
		Joins("JOIN tasks ON tasks.id = task_work_logs.task_id").
		Where("tasks.customer_id = ? AND task_work_logs.at >= ? AND task_work_logs.at <= ?", customerID, from, to).
		Order("task_work_logs.task_id ASC, task_work_logs.at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	events := make([]*biz.TaskWorkEvent, 0, len(rows))
	for i := range rows {
		events = append(events, &biz.TaskWorkEvent{
			TaskID: rows[i].TaskID,
			Action: rows[i].Action,
			At:     rows[i].At,
		})
	}
	return events, nil
}

// CreateWorkEvents 批量写入 MQ 投递的工时事件
// 任务归属行按 (id, customer_id) upsert，重复投递不报错
func (r *workEventRepo) CreateWorkEvents(ctx context.Context, events []*biz.IngestWorkEvent) error {
	if len(events) == 0 {
		return nil
	}

	tasks := make([]model.Task, 0, len(events))
	seen := make(map[string]struct{}, len(events))
	logs := make([]model.TaskWorkLog, 0, len(events))
	for _, e := range events {
		if _, ok := seen[e.TaskID]; !ok {
			seen[e.TaskID] = struct{}{}
			tasks = append(tasks, model.Task{ID: e.TaskID, CustomerID: e.CustomerID})
		}
		logs = append(logs, model.TaskWorkLog{
			TaskID: e.TaskID,
			Action: e.Action,
			At:     e.At,
		})
	}

	if err := r.data.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&tasks).Error; err != nil {
		return err
	}
	return r.data.db.WithContext(ctx).Create(&logs).Error
}
