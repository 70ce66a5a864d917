// Package sender consumes queued notifications and delivers them by email.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/osoriolabs/lawdesk/internal/lib/sl"
	"github.com/osoriolabs/lawdesk/internal/lib/smtp"
	"github.com/osoriolabs/lawdesk/internal/models"
)

type SenderService struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

func New(log *slog.Logger, transport smtp.TransportInterface) *SenderService {
	return &SenderService{
		transport: transport,
		log:       log,
	}
}

// SendDeadlineReminder delivers a reminder for a deadline due tomorrow.
func (s *SenderService) SendDeadlineReminder(body []byte) error {
	var message models.DeadlineReminder
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal reminder", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	to := []string{message.Email}
	subject := fmt.Sprintf("Deadline tomorrow: %s", message.Title)
	bodyText := fmt.Sprintf("Hello %s,\n\nThe deadline %q in matter %q is due on %s.\n\nPlease make sure everything is filed in time.",
		message.Username, message.Title, message.MatterTitle, message.DueDate.Format("Monday, 2 January 2006"))

	return s.sendEmail(to, subject, bodyText)
}

// SendWelcome delivers the welcome email after a completed checkout.
func (s *SenderService) SendWelcome(body []byte) error {
	var message models.WelcomeNotification
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal welcome notification", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	to := []string{message.Email}
	subject := "Welcome to Lawdesk"
	bodyText := fmt.Sprintf("Hello %s,\n\nYour subscription is now active. Thank you for choosing Lawdesk.",
		message.Username)
	if message.Plan != "" {
		bodyText = fmt.Sprintf("Hello %s,\n\nYour %s subscription is now active. Thank you for choosing Lawdesk.",
			message.Username, message.Plan)
	}

	return s.sendEmail(to, subject, bodyText)
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", "from", s.transport.GetSMTPUser(), sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", "recipient", addr, sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to open data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP session", sl.Err(err))
		return err
	}

	s.log.Info("email sent", "to", to)
	return nil
}
