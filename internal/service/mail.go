// Package service holds the pieces of business logic shared between handlers
package service

import (
	"fmt"

	"meshvault/model-api/internal/model"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Mailer sends account mails over SMTP. With no mail.host configured it runs
// in dev mode and only logs the verification links.
type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func NewMailer() *Mailer {
	return &Mailer{
		Host:     viper.GetString("mail.host"),
		Port:     viper.GetInt("mail.port"),
		Username: viper.GetString("mail.username"),
		Password: viper.GetString("mail.password"),
		From:     viper.GetString("mail.from"),
	}
}

// SendVerificationMail mails the signup confirmation link for a pending
// registration.
func (m *Mailer) SendVerificationMail(p *model.PendingRegistration) error {
	verifLink := fmt.Sprintf("%s/verify-email?token=%s",
		viper.GetString("host.frontend_url"), p.VerificationToken)

	if m.Host == "" {
		zap.L().Info("Mail disabled, logging verification link instead",
			zap.String("email", p.Email),
			zap.String("link", verifLink),
		)
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", p.Email)
	msg.SetHeader("Subject", "Verify your email to start uploading models")
	msg.SetBody("text/html", fmt.Sprintf(
		"Hi %s,<br><br>Click <a href='%s'>here</a> to verify your account.<br><br>This link will expire in 24 hours.",
		p.Username, verifLink))

	d := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)

	if err := d.DialAndSend(msg); err != nil {
		return err
	}

	return nil
}
