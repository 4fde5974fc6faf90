package services

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type EmailService interface {
	SendWelcomeEmail(email, username string) error
	SendInvitation(email, fromName, subtaskName string) error
}

type emailService struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) EmailService {
	dialer := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword)
	return &emailService{
		dialer: dialer,
		from:   fromEmail,
	}
}

func (s *emailService) SendWelcomeEmail(email, username string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Welcome to EagleTask!")

	body := fmt.Sprintf(`
		<h2>Welcome to EagleTask, %s!</h2>
		<p>Your account has been created and your Canvas assignments will now be
		mirrored into Todoist on every sync.</p>
		<p>Best regards,<br>The EagleTask Team</p>
	`, username)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}

	return nil
}

func (s *emailService) SendInvitation(email, fromName, subtaskName string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", fmt.Sprintf("%s shared a task with you", fromName))

	body := fmt.Sprintf(`
		<h3>You have a new shared task invitation</h3>
		<p><strong>%s</strong> wants to share the task <strong>%s</strong> with you.</p>
		<p>Log in to EagleTask to accept or decline the invitation.</p>
	`, fromName, subtaskName)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send invitation email: %w", err)
	}

	return nil
}
