package mailer

import (
	"crypto/tls"
	"errors"

	mail "github.com/go-mail/mail/v2"

	"formflow/backend/config"
)

var ErrNotConfigured = errors.New("SMTP 未配置")

// Message 待发送邮件
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Sender 邮件发送接口
type Sender interface {
	Send(msg Message) error
}

// SMTPMailer 基于 go-mail 的 SMTP 发送器
type SMTPMailer struct {
	from   string
	dialer *mail.Dialer
}

// NewSMTPMailer 根据配置创建 SMTP 发送器
func NewSMTPMailer(cfg *config.MailConfig) (*SMTPMailer, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}

	d := mail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.SMTPHost,
		InsecureSkipVerify: cfg.SkipTLSVerify, // 仅开发环境
	}

	return &SMTPMailer{from: cfg.From, dialer: d}, nil
}

func (m *SMTPMailer) Send(msg Message) error {
	if len(msg.To) == 0 {
		return nil
	}

	mm := mail.NewMessage()
	mm.SetHeader("From", m.from)
	mm.SetHeader("To", msg.To...)
	mm.SetHeader("Subject", msg.Subject)
	mm.SetBody("text/html", msg.HTML)

	return m.dialer.DialAndSend(mm)
}
