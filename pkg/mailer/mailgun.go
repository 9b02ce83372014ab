package mailer

import (
	"context"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

const sendTimeout = 10 * time.Second

// Sender delivers a rendered email.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Mailgun sends through one configured Mailgun domain.
type Mailgun struct {
	client *mg.MailgunImpl
	sender string
	tags   []string
}

type Option func(*Mailgun)

// WithAPIBase points the client at another region, e.g. mg.APIBaseEU.
func WithAPIBase(url string) Option {
	return func(m *Mailgun) {
		if url != "" {
			m.client.SetAPIBase(url)
		}
	}
}

// WithTags labels every message for Mailgun analytics.
func WithTags(tags ...string) Option {
	return func(m *Mailgun) { m.tags = append(m.tags, tags...) }
}

func NewMailgun(domain, apiKey, sender string, opts ...Option) *Mailgun {
	m := &Mailgun{client: mg.NewMailgun(domain, apiKey), sender: sender}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Send delivers one message. html is optional.
func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) error {
	msg := m.client.NewMessage(m.sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	if len(m.tags) > 0 {
		if err := msg.AddTag(m.tags...); err != nil {
			return err
		}
	}
	c, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	_, _, err := m.client.Send(c, msg)
	return err
}
