package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	htmpl "html/template"
	"reflect"
	"strings"
	texttpl "text/template"
	"time"
)

//go:embed *.tmpl
var FS embed.FS

// EmailData defines standard fields for email templates.
type EmailData struct {
	Name           string `json:"Name"`
	Email          string `json:"Email"`
	RecipientEmail string `json:"RecipientEmail"`
	Type           string `json:"Type"`

	CompanyName string `json:"CompanyName"`
	SupportURL  string `json:"SupportURL"`
	LoginURL    string `json:"LoginURL"`

	Time   string    `json:"Time"`
	TimeAt time.Time `json:"TimeAt"`
}

// ToMap converts EmailData to a map[string]any for EmailJob.Data
func ToMap(d EmailData) map[string]any {
	b, _ := json.Marshal(d)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// defaultFn supports pipe usage: {{ .Value | default "Fallback" }}
func defaultFn(fallback any, value any) any {
	switch x := value.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return fallback
		}
		return x
	case nil:
		return fallback
	default:
		rv := reflect.ValueOf(value)
		if !rv.IsValid() {
			return fallback
		}
		if rv.IsZero() {
			return fallback
		}
		return value
	}
}

func baseFuncs() map[string]any {
	return map[string]any{
		"upper":   strings.ToUpper,
		"default": defaultFn,
		"eq":      func(a, b any) bool { return fmt.Sprint(a) == fmt.Sprint(b) },
	}
}

var (
	htmlFuncMap = htmpl.FuncMap(baseFuncs())
	textFuncMap = texttpl.FuncMap(baseFuncs())
)

// AccountEventTemplate renders every account lifecycle email; Data["Type"] picks the wording.
const AccountEventTemplate = "account_event"

// Account event types.
const (
	AccountRegistered  = "account_registered"
	PasswordChanged    = "password_changed"
	AccountDeactivated = "account_deactivated"
	AccountDeleted     = "account_deleted"
)

// Subject returns the subject line for an account event type.
func Subject(eventType string) string {
	switch strings.ToLower(eventType) {
	case AccountRegistered:
		return "Welcome aboard"
	case PasswordChanged:
		return "Your password was changed"
	case AccountDeactivated:
		return "Your account has been deactivated"
	case AccountDeleted:
		return "Your account has been deleted"
	default:
		return "Account notification"
	}
}

// renderFile loads and renders a single template file from the embedded FS.
func renderFile(filename string, isHTML bool, data any) (string, error) {
	var (
		buf bytes.Buffer
		err error
	)

	if isHTML {
		tpl, e := htmpl.New(filename).Funcs(htmlFuncMap).ParseFS(FS, filename)
		if e != nil {
			return "", fmt.Errorf("parse html %q: %w", filename, e)
		}
		err = tpl.Execute(&buf, data)
	} else {
		tpl, e := texttpl.New(filename).Funcs(textFuncMap).ParseFS(FS, filename)
		if e != nil {
			return "", fmt.Errorf("parse text %q: %w", filename, e)
		}
		err = tpl.Execute(&buf, data)
	}
	if err != nil {
		return "", fmt.Errorf("exec %q: %w", filename, err)
	}
	return buf.String(), nil
}

// Render renders the text and html bodies for name and derives the subject from data["Type"].
// Expects: <name>.text.tmpl, <name>.html.tmpl
func Render(name string, data map[string]any) (subject string, text string, html string, err error) {
	text, err = renderFile(name+".text.tmpl", false, data)
	if err != nil {
		return "", "", "", err
	}
	html, err = renderFile(name+".html.tmpl", true, data)
	if err != nil {
		return "", "", "", err
	}
	return Subject(fmt.Sprint(data["Type"])), text, html, nil
}
