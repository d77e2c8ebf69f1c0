package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	xerrors "taskpad/internal/errors"
)

// RabbitMQConfig 描述变更事件发布所需的 RabbitMQ 连接参数。
type RabbitMQConfig struct {
	URL        string
	Queue      string
	Durable    bool
	AutoDelete bool
}

type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQNotifier 将任务变更事件以 JSON 形式投递到 RabbitMQ 队列。
type RabbitMQNotifier struct {
	conn  *amqp.Connection
	ch    amqpPublisher
	queue string
}

// NewRabbitMQNotifier 建立连接并声明事件队列。
func NewRabbitMQNotifier(cfg RabbitMQConfig) (*RabbitMQNotifier, error) {
	if cfg.URL == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "RabbitMQ URL 不能为空")
	}
	queue := cfg.Queue
	if queue == "" {
		queue = "taskpad.events"
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeNotifyFailure, err, "连接 RabbitMQ 失败")
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, xerrors.Wrap(xerrors.CodeNotifyFailure, err, "创建 RabbitMQ channel 失败")
	}
	if _, err := ch.QueueDeclare(queue, cfg.Durable, cfg.AutoDelete, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, xerrors.Wrap(xerrors.CodeNotifyFailure, err, "声明 RabbitMQ 队列失败")
	}
	return &RabbitMQNotifier{conn: conn, ch: ch, queue: queue}, nil
}

// Notify 发布一条持久化消息。
func (n *RabbitMQNotifier) Notify(ctx context.Context, event ChangeEvent) error {
	if n == nil || n.ch == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "RabbitMQ 通知器未初始化")
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("编码任务事件失败: %w", err)
	}
	err = n.ch.PublishWithContext(ctx, "", n.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         string(event.Kind),
		MessageId:    event.TaskID + "-" + string(event.Kind) + "-" + fmt.Sprint(event.At),
		Timestamp:    time.Unix(event.At, 0),
		Body:         body,
	})
	if err != nil {
		return xerrors.Wrap(xerrors.CodeNotifyFailure, err, "发布任务事件失败")
	}
	return nil
}

// Close 关闭 channel 与连接。
func (n *RabbitMQNotifier) Close() error {
	if n == nil {
		return nil
	}
	var err error
	if n.ch != nil {
		err = errors.Join(err, n.ch.Close())
	}
	if n.conn != nil {
		err = errors.Join(err, n.conn.Close())
	}
	return err
}

var _ Notifier = (*RabbitMQNotifier)(nil)
