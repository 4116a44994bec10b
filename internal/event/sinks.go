package event

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"

	"formflow/backend/internal/model"
	"formflow/backend/internal/workflow"
	"formflow/backend/pkg/mailer"
)

// ── Redis 发布订阅 ──

// ChannelPublisher 由 pkg/redis.Client 实现
type ChannelPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) (int64, error)
}

// envelope 广播消息格式
type envelope struct {
	Event      Kind        `json:"event"`
	Channel    string      `json:"channel"`
	Data       interface{} `json:"data"`
	OccurredAt int64       `json:"occurred_at"` // Unix 毫秒
}

// RedisSink 将事件以 JSON 发布到 <prefix>:<channel>
type RedisSink struct {
	pub    ChannelPublisher
	prefix string
}

func NewRedisSink(pub ChannelPublisher, prefix string) *RedisSink {
	return &RedisSink{pub: pub, prefix: prefix}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Deliver(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(envelope{
		Event:      ev.Kind,
		Channel:    ev.Channel(),
		Data:       ev.Payload(),
		OccurredAt: ev.OccurredAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}
	_, err = s.pub.Publish(ctx, s.topic(ev.Channel()), payload)
	return err
}

func (s *RedisSink) topic(channel string) string {
	if s.prefix == "" {
		return channel
	}
	return s.prefix + ":" + channel
}

// ── 邮件 ──

// RecipientLookup 按用户 ID 查询收件人，由 repository.UserRepository 实现
type RecipientLookup interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// MailSink 分配人通知变为未读时给本人发邮件；审核人待办通知只走站内信
type MailSink struct {
	sender    mailer.Sender
	users     RecipientLookup
	portalURL string
}

func NewMailSink(sender mailer.Sender, users RecipientLookup, portalURL string) *MailSink {
	return &MailSink{sender: sender, users: users, portalURL: strings.TrimRight(portalURL, "/")}
}

func (s *MailSink) Name() string { return "mail" }

func (s *MailSink) Deliver(ctx context.Context, ev Event) error {
	n := ev.Notification
	if n == nil || !n.Type.IsAssignment() || n.Status != workflow.NotifUnread {
		return nil
	}

	user, err := s.users.GetByID(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("查询收件人失败: %w", err)
	}
	if strings.TrimSpace(user.Email) == "" {
		return nil
	}

	return s.sender.Send(mailer.Message{
		To:      []string{user.Email},
		Subject: "[FormFlow] " + n.Title,
		HTML:    s.render(user, n),
	})
}

func (s *MailSink) render(user *model.User, n *model.Notification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>%s，您好：</p>", html.EscapeString(user.Name))
	fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(n.Message))
	if s.portalURL != "" {
		link := fmt.Sprintf("%s/forms/%s", s.portalURL, n.FormID)
		fmt.Fprintf(&b, `<p><a href="%s">查看表单</a></p>`, html.EscapeString(link))
	}
	return b.String()
}

// ── 日志 ──

// LogSink 将事件写入日志，便于排查投递链路
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(_ context.Context, ev Event) error {
	fields := []zap.Field{
		zap.String("kind", string(ev.Kind)),
		zap.String("channel", ev.Channel()),
	}
	switch {
	case ev.Notification != nil:
		fields = append(fields,
			zap.String("notification_id", ev.Notification.NotificationID),
			zap.String("user_id", ev.Notification.UserID),
			zap.String("type", string(ev.Notification.Type)),
		)
	case ev.Submission != nil:
		fields = append(fields,
			zap.String("submission_id", ev.Submission.SubmissionID),
			zap.String("status", string(ev.Submission.Status)),
		)
	default:
		fields = append(fields, zap.String("submission_id", ev.SubmissionID))
	}
	s.logger.Debug("领域事件", fields...)
	return nil
}
