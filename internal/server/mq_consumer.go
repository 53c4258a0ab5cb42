package server

import (
	"context"
	"encoding/json"

	"usage-billing-service/internal/biz"
	"usage-billing-service/internal/conf"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/go-kratos/kratos/v2/log"
)

// MQConsumerServer 消费任务服务投递的工时事件
type MQConsumerServer struct {
	c       rocketmq.PushConsumer
	repo    biz.WorkEventRepo
	conf    *conf.Data
	log     *log.Helper
	enabled bool
}

// NewMQConsumerServer 创建 RocketMQ 消费者
func NewMQConsumerServer(c *conf.Bootstrap, repo biz.WorkEventRepo, logger log.Logger) *MQConsumerServer {
	if c.Data == nil || c.Data.Rocketmq == nil || !c.Data.Rocketmq.Enabled {
		return &MQConsumerServer{enabled: false, log: log.NewHelper(logger)}
	}

	r, err := rocketmq.NewPushConsumer(
		consumer.WithNsResolver(primitive.NewPassthroughResolver(c.Data.Rocketmq.NameServers)),
		consumer.WithGroupName(c.Data.Rocketmq.GroupName),
		consumer.WithRetry(int(c.Data.Rocketmq.RetryTimes)),
		consumer.WithConsumeMessageBatchMaxSize(100),
	)
	if err != nil {
		log.NewHelper(logger).Errorf("init consumer error: %v", err)
		return &MQConsumerServer{enabled: false, log: log.NewHelper(logger)}
	}

	return &MQConsumerServer{
		c:       r,
		repo:    repo,
		conf:    c.Data,
		log:     log.NewHelper(logger),
		enabled: true,
	}
}

// Start 启动消费者
func (s *MQConsumerServer) Start(ctx context.Context) error {
	if !s.enabled {
		s.log.Infof("MQConsumerServer is disabled, skipping startup")
		return nil
	}

	s.log.Infof("Starting MQConsumerServer, topic: %s", s.conf.Rocketmq.Topic)

	err := s.c.Subscribe(s.conf.Rocketmq.Topic, consumer.MessageSelector{}, s.handler)
	if err != nil {
		s.log.Errorf("Failed to subscribe to topic %s: %v", s.conf.Rocketmq.Topic, err)
		// 不返回错误，避免导致整个应用启动失败
		// 在开发环境中，RocketMQ 可能不可用
		return nil
	}

	if err := s.c.Start(); err != nil {
		s.log.Errorf("Failed to start RocketMQ consumer: %v", err)
		return nil
	}

	return nil
}

// Stop 停止消费者
func (s *MQConsumerServer) Stop(ctx context.Context) error {
	if !s.enabled || s.c == nil {
		return nil
	}
	s.log.Info("Stopping MQConsumerServer")
	return s.c.Shutdown()
}

func (s *MQConsumerServer) handler(ctx context.Context, msgs ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
	if len(msgs) == 0 {
		return consumer.ConsumeSuccess, nil
	}

	var events []*biz.IngestWorkEvent
	for _, msg := range msgs {
		var event biz.IngestWorkEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			// 解析失败的消息重试也不会成功，跳过并留日志
			s.log.Errorf("Unmarshal work event failed: %v, body: %s", err, string(msg.Body))
			continue
		}
		if event.TaskID == "" || event.CustomerID == "" || event.Action == "" {
			s.log.Errorf("Work event missing required fields, body: %s", string(msg.Body))
			continue
		}
		events = append(events, &event)
	}

	if len(events) > 0 {
		if err := s.repo.CreateWorkEvents(ctx, events); err != nil {
			s.log.Errorf("CreateWorkEvents failed: %v", err)
			return consumer.ConsumeRetryLater, nil
		}
	}
	return consumer.ConsumeSuccess, nil
}
