package services

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"gorm.io/datatypes"

	"startuppush/internal/db"
	"startuppush/internal/logger"
	"startuppush/internal/metrics"
	"startuppush/internal/models"
)

// Event 一条待投递的通知
type Event struct {
	ID          string                  `json:"id"`
	Type        models.NotificationType `json:"type"`
	RecipientID uint                    `json:"recipient_id"`
	ActorID     uint                    `json:"actor_id,omitempty"` // 0 表示系统
	ProductID   uint                    `json:"product_id,omitempty"`
	CommentID   uint                    `json:"comment_id,omitempty"`
	Title       string                  `json:"title"`
	Message     string                  `json:"message"`
	Payload     map[string]interface{}  `json:"payload,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}

// Emitter 通知发送接口，调用方不关心结果
type Emitter interface {
	Emit(ctx context.Context, ev Event)
}

type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, Event) {}

// Sink 批量投递目标
type Sink interface {
	Name() string
	Deliver(ctx context.Context, events []Event) error
}

const (
	dispatchQueueSize = 1000
	dispatchBatchSize = 50
	dispatchInterval  = 500 * time.Millisecond
	deliverTimeout    = 5 * time.Second
)

// Dispatcher 有界队列 + 后台 worker 批量投递，Emit 永不阻塞
type Dispatcher struct {
	queue chan Event
	sinks []Sink
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(sinks ...Sink) *Dispatcher {
	d := &Dispatcher{
		queue: make(chan Event, dispatchQueueSize),
		sinks: sinks,
		done:  make(chan struct{}),
	}
	go d.worker()
	return d
}

func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	// 不通知用户自己的操作
	if ev.RecipientID == 0 || (ev.ActorID != 0 && ev.ActorID == ev.RecipientID) {
		metrics.NotificationsDispatched.WithLabelValues("suppressed").Inc()
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.NotificationsDispatched.WithLabelValues("dropped").Inc()
		return
	}

	select {
	case d.queue <- ev:
		metrics.NotificationsDispatched.WithLabelValues("queued").Inc()
	default:
		metrics.NotificationsDispatched.WithLabelValues("dropped").Inc()
		logger.Ctx(ctx).Warn().Str("type", string(ev.Type)).Uint("recipient", ev.RecipientID).Msg("notification queue full, dropping event")
	}
}

func (d *Dispatcher) worker() {
	defer close(d.done)

	batch := make([]Event, 0, dispatchBatchSize)
	ticker := time.NewTicker(dispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-d.queue:
			if !ok {
				d.deliver(batch)
				return
			}
			batch = append(batch, ev)
			if len(batch) >= dispatchBatchSize {
				d.deliver(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				d.deliver(batch)
				batch = batch[:0]
			}
		}
	}
}

func (d *Dispatcher) deliver(batch []Event) {
	if len(batch) == 0 {
		return
	}
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
		err := sink.Deliver(ctx, batch)
		cancel()
		if err != nil {
			metrics.NotificationsDispatched.WithLabelValues("failed").Add(float64(len(batch)))
			log.Warn().Err(err).Str("sink", sink.Name()).Int("events", len(batch)).Msg("notification delivery failed")
			continue
		}
		metrics.NotificationsDispatched.WithLabelValues("delivered").Add(float64(len(batch)))
	}
}

// Close 停止接收新事件，并等待队列中剩余事件投递完
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
}

// StoreSink 写入通知表，站内信拉取模式读取
type StoreSink struct {
	store db.Store
}

func NewStoreSink(store db.Store) *StoreSink {
	return &StoreSink{store: store}
}

func (s *StoreSink) Name() string { return "store" }

func (s *StoreSink) Deliver(ctx context.Context, events []Event) error {
	rows := make([]models.Notification, 0, len(events))
	for _, ev := range events {
		rows = append(rows, toNotification(ev))
	}
	if err := s.store.CreateNotifications(ctx, rows); err == nil {
		return nil
	}

	// 整批失败时逐条重试，避免一条坏数据 (如接收者已删除) 拖累整批
	var failed int
	var lastErr error
	for _, ev := range events {
		n := toNotification(ev)
		if err := s.store.CreateNotifications(ctx, []models.Notification{n}); err != nil {
			failed++
			lastErr = err
		}
	}
	if failed > 0 {
		return errors.Wrapf(lastErr, "%d of %d notifications not stored", failed, len(events))
	}
	return nil
}

func toNotification(ev Event) models.Notification {
	n := models.Notification{
		UserID:    ev.RecipientID,
		Type:      ev.Type,
		Title:     ev.Title,
		Message:   ev.Message,
		CreatedAt: ev.CreatedAt,
	}
	if ev.ActorID != 0 {
		actor := ev.ActorID
		n.ActorID = &actor
	}
	if ev.ProductID != 0 {
		pid := ev.ProductID
		n.ProductID = &pid
	}
	if ev.CommentID != 0 {
		cid := ev.CommentID
		n.CommentID = &cid
	}
	if len(ev.Payload) > 0 {
		n.Payload = datatypes.JSONMap(ev.Payload)
	}
	return n
}

// KafkaSink 把通知事件发到 Kafka，供推送/邮件等下游服务消费
type KafkaSink struct {
	writer messageWriter
}

// messageWriter 由 *kafka.Writer 实现
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return newKafkaSink(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	})
}

func newKafkaSink(w messageWriter) *KafkaSink {
	return &KafkaSink{writer: w}
}

func (k *KafkaSink) Name() string { return "kafka" }

func (k *KafkaSink) Deliver(ctx context.Context, events []Event) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		value, err := json.Marshal(ev)
		if err != nil {
			return errors.Wrap(err, "marshal notification event")
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(strconv.FormatUint(uint64(ev.RecipientID), 10)),
			Value: value,
		})
	}
	return errors.Wrap(k.writer.WriteMessages(ctx, msgs...), "write kafka messages")
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
