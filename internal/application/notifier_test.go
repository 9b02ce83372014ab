package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-blog/pkg/mailer"
	mailtpl "github.com/oksasatya/go-ddd-blog/pkg/mailer/templates"
)

func TestQueueNotifier_PublishesEmailJob(t *testing.T) {
	pub := &fakePublisher{}
	n := NewQueueNotifier(pub, "Blog", "https://blog.example.com/support", "https://blog.example.com/login")
	at := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

	err := n.Notify(context.Background(), AccountEvent{
		Type:     EventPasswordChanged,
		UserID:   "u1",
		Email:    "ada@example.com",
		Username: "ada",
		At:       at,
	})
	require.NoError(t, err)
	require.Len(t, pub.bodies, 1)

	job, ok := pub.bodies[0].(mailer.EmailJob)
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", job.To)
	assert.Equal(t, mailtpl.AccountEventTemplate, job.Template)
	assert.Equal(t, EventPasswordChanged, job.Data["Type"])
	assert.Equal(t, "ada", job.Data["Name"], "falls back to username")
	assert.Equal(t, "Blog", job.Data["CompanyName"])
	assert.Equal(t, "01 May 2024, 10:30 UTC", job.Data["Time"])
}

func TestAccountService_NotifyFailureDoesNotFail(t *testing.T) {
	f := newAccountFixture(t)
	f.svc.Notifier = NewQueueNotifier(&fakePublisher{err: errors.New("broker down")}, "", "", "")

	res := f.register(t, "ada", "ada@example.com")
	assert.NotEmpty(t, res.Tokens.AccessToken)
}
