package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mailtpl "github.com/oksasatya/go-ddd-blog/pkg/mailer/templates"
)

// EmailJob is the JSON payload queued for the notification worker.
// Either Template (+ Data) or Subject with Text/HTML is set.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// ErrBadJob marks a message that can never be delivered and must not be requeued.
var ErrBadJob = errors.New("bad email job")

// Dispatch decodes one queued job, renders its template and hands it to s.
// Errors wrapping ErrBadJob are permanent; anything else is worth a retry.
func Dispatch(ctx context.Context, s Sender, body []byte) error {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("%w: %v", ErrBadJob, err)
	}
	if strings.TrimSpace(job.To) == "" {
		return fmt.Errorf("%w: missing recipient", ErrBadJob)
	}

	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		if job.Data == nil {
			job.Data = map[string]any{}
		}
		if _, ok := job.Data["RecipientEmail"]; !ok {
			job.Data["RecipientEmail"] = job.To
		}
		s, t, h, err := mailtpl.Render(job.Template, job.Data)
		if err != nil {
			return fmt.Errorf("%w: render %s: %v", ErrBadJob, job.Template, err)
		}
		subject, text, html = s, t, h
	}
	if subject == "" || (text == "" && html == "") {
		return fmt.Errorf("%w: empty message", ErrBadJob)
	}

	c, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return s.Send(c, job.To, subject, text, html)
}
