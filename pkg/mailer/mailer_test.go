package mailer

import (
	"errors"
	"testing"

	"formflow/backend/config"
)

func TestNewSMTPMailer_NotConfigured(t *testing.T) {
	_, err := NewSMTPMailer(&config.MailConfig{SMTPPort: 587})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("期望 ErrNotConfigured，实际 %v", err)
	}
}

func TestSend_NoRecipients(t *testing.T) {
	m, err := NewSMTPMailer(&config.MailConfig{SMTPHost: "smtp.example.com", SMTPPort: 587, From: "noreply@example.com"})
	if err != nil {
		t.Fatalf("NewSMTPMailer 失败: %v", err)
	}
	// 无收件人时直接返回，不建立连接
	if err := m.Send(Message{Subject: "s", HTML: "<p>x</p>"}); err != nil {
		t.Errorf("期望无收件人时返回 nil，实际 %v", err)
	}
}
