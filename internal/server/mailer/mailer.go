// Package mailer hands password-reset messages to whatever delivers mail.
// The server only publishes; sending the email is somebody else's job.
package mailer

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/linkkeeper/internal/logging"
)

// PurposePasswordReset tags reset messages on the queue.
const PurposePasswordReset = "password_reset"

// Message is the JSON body published for the mail sender.
type Message struct {
	Email     string    `json:"email"`
	Link      string    `json:"link"`
	Purpose   string    `json:"purpose"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Publisher delivers messages out of band.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// LogPublisher writes messages to the log instead of a broker. Meant for
// development setups without RabbitMQ.
type LogPublisher struct {
	logger logging.Logger
}

func NewLogPublisher(logger logging.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish records the message at info level with the token cut out of the
// link. The usable link is only written at debug level.
func (p *LogPublisher) Publish(ctx context.Context, msg Message) error {
	p.logger.Info(ctx, "mail delivery disabled, message logged",
		"purpose", msg.Purpose, "email", msg.Email, "link", redactLink(msg.Link), "expires_at", msg.ExpiresAt)
	p.logger.Debug(ctx, "reset link", "email", msg.Email, "link", msg.Link)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// redactLink replaces the last path segment, which carries the token.
func redactLink(link string) string {
	i := strings.LastIndex(link, "/")
	if i < 0 || i == len(link)-1 {
		return link
	}
	return link[:i+1] + "REDACTED"
}
