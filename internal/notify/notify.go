// Package notify delivers result notifications to students.
package notify

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Message is a single plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender is the email transport. A failed Send affects one recipient only.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// LogSender logs messages instead of sending them. It is used when no SMTP
// credentials are configured.
type LogSender struct {
	log logrus.FieldLogger
}

func NewLogSender(log logrus.FieldLogger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"to": m.To, "subject": m.Subject}).Info("email not sent: smtp disabled")
	return nil
}

// ResultsMessage builds the release notification for one attempt.
func ResultsMessage(to, examName string, score float64, correct, total int) Message {
	return Message{
		To:      to,
		Subject: "Exam Results Available - " + examName,
		Body: fmt.Sprintf("Your results for %s are now available.\n\nScore: %.2f%%\nCorrect answers: %d out of %d\n",
			examName, score, correct, total),
	}
}
