package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/app/config"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
	"gopkg.in/gomail.v2"
)

type Message struct {
	To       []string
	Subject  string
	BodyHTML string
	BodyText string
}

type EmailSender interface {
	Send(ctx context.Context, msg Message) error
}

type smtpSender struct {
	cfg config.SMTPConfig
	log logger.Logger
	d   *gomail.Dialer
}

func NewSMTPSender(cfg config.SMTPConfig, log logger.Logger) (EmailSender, error) {
	if cfg.Host == "" || cfg.Port == 0 || cfg.SenderEmail == "" {
		return nil, fmt.Errorf("SMTP host, port, and sender email must be configured")
	}

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)

	serverName := cfg.ServerName
	if serverName == "" {
		serverName = cfg.Host
	}

	switch strings.ToLower(cfg.Encryption) {
	case "ssl":
		dialer.SSL = true
		dialer.TLSConfig = &tls.Config{ServerName: serverName, MinVersion: tls.VersionTLS12}
	case "tls", "starttls":
		dialer.TLSConfig = &tls.Config{ServerName: serverName, MinVersion: tls.VersionTLS12}
	}

	return &smtpSender{
		cfg: cfg,
		log: log,
		d:   dialer,
	}, nil
}

func buildMessage(from string, msg Message) (*gomail.Message, error) {
	if len(msg.To) == 0 {
		return nil, fmt.Errorf("no recipients provided for email")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)

	switch {
	case msg.BodyHTML != "":
		m.SetBody("text/html", msg.BodyHTML)
		if msg.BodyText != "" {
			m.AddAlternative("text/plain", msg.BodyText)
		}
	case msg.BodyText != "":
		m.SetBody("text/plain", msg.BodyText)
	default:
		return nil, fmt.Errorf("email body (HTML or Text) must be provided")
	}
	return m, nil
}

func (s *smtpSender) Send(ctx context.Context, msg Message) error {
	m, err := buildMessage(s.cfg.SenderEmail, msg)
	if err != nil {
		return err
	}

	if s.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.WriteTimeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- s.d.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		s.log.Warnf("Email sending to %v (subject: %s) cancelled or timed out: %v", msg.To, msg.Subject, ctx.Err())
		return fmt.Errorf("email sending cancelled or timed out: %w", ctx.Err())
	case err = <-done:
		if err != nil {
			s.log.Errorf("Failed to send email to %v, subject '%s': %v", msg.To, msg.Subject, err)
			return fmt.Errorf("failed to send email: %w", err)
		}
	}

	s.log.Infof("Email sent successfully to %v, subject: %s", msg.To, msg.Subject)
	return nil
}
