package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	passwordvalidator "github.com/wagslane/go-password-validator"
)

var validate = validator.New()

// PasswordPolicy is the complexity rule set applied on registration and password change.
type PasswordPolicy struct {
	MinLength  int
	MaxLength  int
	MinEntropy float64
}

func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: 8, MaxLength: 128, MinEntropy: 50}
}

// PolicyError lists every rule a password broke, in a stable order.
type PolicyError struct {
	Reasons []string
}

func (e *PolicyError) Error() string {
	return strings.Join(e.Reasons, " ")
}

// Validate checks password against the policy. attrs maps attribute names
// (username, email, first name...) to the account values the password must not resemble.
func (p PasswordPolicy) Validate(password string, attrs map[string]string) error {
	var reasons []string

	if err := validate.Var(password, fmt.Sprintf("min=%d", p.MinLength)); err != nil {
		reasons = append(reasons, fmt.Sprintf("This password is too short. It must contain at least %d characters.", p.MinLength))
	}
	if p.MaxLength > 0 {
		if err := validate.Var(password, fmt.Sprintf("max=%d", p.MaxLength)); err != nil {
			reasons = append(reasons, fmt.Sprintf("This password is too long. It must contain at most %d characters.", p.MaxLength))
		}
	}
	if password != "" && validate.Var(password, "numeric") == nil {
		reasons = append(reasons, "This password is entirely numeric.")
	}
	if attr, ok := similarAttribute(password, attrs); ok {
		reasons = append(reasons, fmt.Sprintf("The password is too similar to the %s.", attr))
	}
	if p.MinEntropy > 0 {
		if err := passwordvalidator.Validate(password, p.MinEntropy); err != nil {
			reasons = append(reasons, "This password is too weak: "+err.Error()+".")
		}
	}

	if len(reasons) == 0 {
		return nil
	}
	return &PolicyError{Reasons: reasons}
}

func similarAttribute(password string, attrs map[string]string) (string, bool) {
	pw := strings.ToLower(password)
	if len(pw) < 3 {
		return "", false
	}
	for _, name := range []string{"username", "email", "first name", "last name"} {
		value := strings.ToLower(strings.TrimSpace(attrs[name]))
		if name == "email" {
			value, _, _ = strings.Cut(value, "@")
		}
		if len(value) < 3 {
			continue
		}
		if strings.Contains(pw, value) || strings.Contains(value, pw) {
			return name, true
		}
	}
	return "", false
}
