package application

import (
	"context"
	"time"

	"github.com/oksasatya/go-ddd-blog/pkg/mailer"
	mailtpl "github.com/oksasatya/go-ddd-blog/pkg/mailer/templates"
)

// Account lifecycle events announced to the notification queue.
const (
	EventRegistered      = mailtpl.AccountRegistered
	EventPasswordChanged = mailtpl.PasswordChanged
	EventDeactivated     = mailtpl.AccountDeactivated
	EventDeleted         = mailtpl.AccountDeleted
)

type AccountEvent struct {
	Type     string
	UserID   string
	Email    string
	Username string
	Name     string
	At       time.Time
}

// Notifier delivers account events. Failures never abort the lifecycle operation.
type Notifier interface {
	Notify(ctx context.Context, ev AccountEvent) error
}

// Publisher is the subset of the queue client the notifier needs.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// QueueNotifier turns account events into email jobs on the queue.
type QueueNotifier struct {
	Pub      Publisher
	Company  string
	Support  string
	LoginURL string
}

func NewQueueNotifier(pub Publisher, company, support, loginURL string) *QueueNotifier {
	return &QueueNotifier{Pub: pub, Company: company, Support: support, LoginURL: loginURL}
}

func (n *QueueNotifier) Notify(ctx context.Context, ev AccountEvent) error {
	name := ev.Name
	if name == "" {
		name = ev.Username
	}
	data := mailtpl.NewAccountEventData(ev.Type, name, ev.Email,
		mailtpl.WithCompany(n.Company, n.Support),
		mailtpl.WithLoginURL(n.LoginURL),
		mailtpl.WithTime(ev.At),
	)
	job := mailer.EmailJob{To: ev.Email, Template: mailtpl.AccountEventTemplate, Data: data}
	return n.Pub.PublishJSON(ctx, job)
}
