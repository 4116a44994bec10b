package event

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrQueueFull = errors.New("事件队列已满，事件被丢弃")
	ErrClosed    = errors.New("事件分发器已关闭")
)

// deliverTimeout 单个 sink 单次投递的超时
const deliverTimeout = 10 * time.Second

// Dispatcher 异步事件分发器：有界队列 + 单个后台 worker 顺序投递到各 sink。
// Publish 从不阻塞调用方；队列满时丢弃并返回 ErrQueueFull。
type Dispatcher struct {
	queue  chan Event
	sinks  []Sink
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewDispatcher 创建并启动分发器，nil sink 会被忽略
func NewDispatcher(logger *zap.Logger, bufferSize int, sinks ...Sink) *Dispatcher {
	active := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			active = append(active, s)
		}
	}
	if bufferSize <= 0 {
		bufferSize = 1
	}

	d := &Dispatcher{
		queue:  make(chan Event, bufferSize),
		sinks:  active,
		logger: logger.With(zap.String("component", "event_dispatcher")),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) Publish(_ context.Context, events ...Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrClosed
	}

	for i, ev := range events {
		select {
		case d.queue <- ev:
		default:
			d.logger.Warn("事件队列已满，丢弃事件",
				zap.String("kind", string(ev.Kind)),
				zap.Int("dropped", len(events)-i),
			)
			return ErrQueueFull
		}
	}
	return nil
}

// Close 停止接收新事件，并等待队列中剩余事件投递完成或 ctx 结束
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for ev := range d.queue {
		for _, s := range d.sinks {
			d.deliver(s, ev)
		}
	}
}

func (d *Dispatcher) deliver(s Sink, ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("事件投递 panic",
				zap.String("sink", s.Name()),
				zap.String("kind", string(ev.Kind)),
				zap.Any("panic", r),
			)
		}
	}()

	if err := s.Deliver(ctx, ev); err != nil {
		logDeliverError(d.logger, err, s.Name(), ev)
	}
}

func logDeliverError(logger *zap.Logger, err error, sink string, ev Event) {
	fields := []zap.Field{
		zap.Error(err),
		zap.String("sink", sink),
		zap.String("kind", string(ev.Kind)),
		zap.String("channel", ev.Channel()),
	}
	if ev.Notification != nil {
		fields = append(fields, zap.String("notification_id", ev.Notification.NotificationID))
	}
	if ev.Submission != nil {
		fields = append(fields, zap.String("submission_id", ev.Submission.SubmissionID))
	}
	logger.Warn("事件投递失败", fields...)
}
