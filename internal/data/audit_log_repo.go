package data

import (
	"context"
	"encoding/json"

	"usage-billing-service/internal/biz"
	"usage-billing-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
)

type auditLogRepo struct {
	data *Data
	log  *log.Helper
}

// NewAuditLogRepo 创建审计日志数据层
func NewAuditLogRepo(data *Data, logger log.Logger) biz.AuditLogRepo {
	return &auditLogRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// CreateAuditLog 写一条审计日志
func (r *auditLogRepo) CreateAuditLog(ctx context.Context, entry *biz.AuditLog) error {
	m := &model.AuditLog{
		ActorID:    entry.ActorID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
	}
	if entry.Meta != nil {
		raw, err := json.Marshal(entry.Meta)
		if err != nil {
			return err
		}
		m.Meta = raw
	}
	return r.data.db.WithContext(ctx).Create(m).Error
}
