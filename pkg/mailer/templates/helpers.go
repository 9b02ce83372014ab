package templates

import (
	"strings"
	"time"
)

// Option pattern
type Option func(*EmailData)

func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		if t.IsZero() {
			t = time.Now()
		}
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04 MST")
	}
}

func WithCompany(name, supportURL string) Option {
	return func(d *EmailData) {
		d.CompanyName = strings.TrimSpace(name)
		d.SupportURL = strings.TrimSpace(supportURL)
	}
}

func WithLoginURL(url string) Option { return func(d *EmailData) { d.LoginURL = url } }

// NewAccountEventData builds the template data for an account lifecycle email.
func NewAccountEventData(eventType, name, email string, opts ...Option) map[string]any {
	d := EmailData{
		Name:           name,
		Email:          email,
		RecipientEmail: email,
		Type:           eventType,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return ToMap(d)
}
