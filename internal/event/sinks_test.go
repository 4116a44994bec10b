package event

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"formflow/backend/internal/model"
	"formflow/backend/internal/workflow"
	"formflow/backend/pkg/mailer"
)

type fakeChannelPublisher struct {
	channel string
	payload []byte
}

func (p *fakeChannelPublisher) Publish(_ context.Context, channel string, payload []byte) (int64, error) {
	p.channel = channel
	p.payload = payload
	return 1, nil
}

func TestRedisSink_PublishesEnvelope(t *testing.T) {
	pub := &fakeChannelPublisher{}
	sink := NewRedisSink(pub, "formflow")

	n := &model.Notification{NotificationID: "n1", UserID: "u1", Type: workflow.NotifFormRejected}
	if err := sink.Deliver(context.Background(), NotificationUpdated(n)); err != nil {
		t.Fatalf("Deliver 失败: %v", err)
	}

	if pub.channel != "formflow:notifications" {
		t.Errorf("期望频道 formflow:notifications，实际 %s", pub.channel)
	}
	var msg struct {
		Event string `json:"event"`
		Data  struct {
			NotificationID string `json:"notification_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(pub.payload, &msg); err != nil {
		t.Fatalf("消息不是合法 JSON: %v", err)
	}
	if msg.Event != string(KindNotificationUpdated) || msg.Data.NotificationID != "n1" {
		t.Errorf("消息内容不符合预期: %s", pub.payload)
	}
}

func TestRedisSink_DeletedPayload(t *testing.T) {
	pub := &fakeChannelPublisher{}
	sink := NewRedisSink(pub, "")

	_ = sink.Deliver(context.Background(), SubmissionDeleted("s9"))
	if pub.channel != "submissions" {
		t.Errorf("无前缀时期望频道 submissions，实际 %s", pub.channel)
	}
	if !strings.Contains(string(pub.payload), `"submission_id":"s9"`) {
		t.Errorf("删除事件应携带 submission_id: %s", pub.payload)
	}
}

type fakeSender struct {
	sent []mailer.Message
	err  error
}

func (s *fakeSender) Send(msg mailer.Message) error {
	s.sent = append(s.sent, msg)
	return s.err
}

type fakeLookup map[string]*model.User

func (l fakeLookup) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := l[id]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

func TestMailSink_SendsOnlyUnreadAssignmentNotifications(t *testing.T) {
	sender := &fakeSender{}
	users := fakeLookup{"u1": {UserID: "u1", Name: "<张三>", Email: "zs@example.com"}}
	sink := NewMailSink(sender, users, "https://portal.example.com/")
	ctx := context.Background()

	cases := []struct {
		name string
		n    *model.Notification
		want bool
	}{
		{"未读驳回", &model.Notification{UserID: "u1", FormID: "f1", Type: workflow.NotifFormRejected, Status: workflow.NotifUnread, Title: "表单被驳回"}, true},
		{"已读处理中", &model.Notification{UserID: "u1", Type: workflow.NotifFormAssigned, Status: workflow.NotifRead}, false},
		{"审核人待办", &model.Notification{UserID: "u1", Type: workflow.NotifSubmissionPending, Status: workflow.NotifUnread}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := len(sender.sent)
			if err := sink.Deliver(ctx, NotificationUpdated(tc.n)); err != nil {
				t.Fatalf("Deliver 失败: %v", err)
			}
			if got := len(sender.sent) > before; got != tc.want {
				t.Errorf("期望发送=%v，实际=%v", tc.want, got)
			}
		})
	}

	msg := sender.sent[0]
	if msg.To[0] != "zs@example.com" || msg.Subject != "[FormFlow] 表单被驳回" {
		t.Errorf("邮件头不符合预期: %+v", msg)
	}
	if strings.Contains(msg.HTML, "<张三>") {
		t.Error("用户名应做 HTML 转义")
	}
	if !strings.Contains(msg.HTML, "https://portal.example.com/forms/f1") {
		t.Errorf("邮件应包含表单链接: %s", msg.HTML)
	}
	if ev := SubmissionCreated(sampleSubmission()); sink.Deliver(ctx, ev) != nil {
		t.Error("提交事件应被忽略")
	}
}

func TestMailSink_LookupFailure(t *testing.T) {
	sink := NewMailSink(&fakeSender{}, fakeLookup{}, "")
	n := &model.Notification{UserID: "missing", Type: workflow.NotifFormCompleted, Status: workflow.NotifUnread}
	if err := sink.Deliver(context.Background(), NotificationCreated(n)); err == nil {
		t.Error("收件人查询失败应返回错误（由分发器记录日志）")
	}
}
