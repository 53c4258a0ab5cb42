package data

import (
	"context"
	"errors"
	"time"

	"usage-billing-service/internal/biz"
	"usage-billing-service/internal/constants"
	"usage-billing-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

type orderRepo struct {
	data *Data
	log  *log.Helper
}

// NewOrderRepo 创建订单数据层
func NewOrderRepo(data *Data, logger log.Logger) biz.OrderRepo {
	return &orderRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// CreateOrder 落一条 pending 订单
func (r *orderRepo) CreateOrder(ctx context.Context, order *biz.Order) error {
	m := &model.Order{
		ID:             order.ID,
		CustomerID:     order.CustomerID,
		PlanID:         order.PlanID,
		GatewayOrderID: order.GatewayOrderID,
		Amount:         order.Amount,
		Currency:       order.Currency,
		Status:         order.Status,
		Purpose:        order.Purpose,
		TopupHours:     order.TopupHours,
	}
	return r.data.db.WithContext(ctx).Create(m).Error
}

// GetOrderByID 按内部订单ID查询，不存在返回 (nil, nil)
func (r *orderRepo) GetOrderByID(ctx context.Context, orderID string) (*biz.Order, error) {
	var m model.Order
	if err := r.data.db.WithContext(ctx).Where("id = ?", orderID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toOrder(&m), nil
}

// GetOrderByGatewayID 按网关订单ID查询（webhook 路径），不存在返回 (nil, nil)
func (r *orderRepo) GetOrderByGatewayID(ctx context.Context, gatewayOrderID string) (*biz.Order, error) {
	var m model.Order
	if err := r.data.db.WithContext(ctx).Where("gateway_order_id = ?", gatewayOrderID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toOrder(&m), nil
}

// MarkOrderPaid 条件更新 pending->paid
//
// WHERE status='pending' 让并发确认（webhook 与客户端轮询同时到达）只有
// 一方发生迁移，RowsAffected 区分胜负。返回 false 表示别人已经迁移过
func (r *orderRepo) MarkOrderPaid(ctx context.Context, orderID string, paidAt time.Time) (bool, error) {
	result := r.data.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, constants.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":  constants.OrderStatusPaid,
			"paid_at": paidAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkOrderFailed 条件更新 pending->failed，已终态的订单不动
func (r *orderRepo) MarkOrderFailed(ctx context.Context, orderID string) error {
	return r.data.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, constants.OrderStatusPending).
		Update("status", constants.OrderStatusFailed).Error
}

func toOrder(m *model.Order) *biz.Order {
	return &biz.Order{
		ID:             m.ID,
		CustomerID:     m.CustomerID,
		PlanID:         m.PlanID,
		GatewayOrderID: m.GatewayOrderID,
		Amount:         m.Amount,
		Currency:       m.Currency,
		Status:         m.Status,
		Purpose:        m.Purpose,
		TopupHours:     m.TopupHours,
		PaidAt:         m.PaidAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
