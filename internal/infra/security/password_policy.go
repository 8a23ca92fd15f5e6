package security

import (
	"fmt"
	"unicode/utf8"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

const (
	DefaultMinPasswordLength = 8
	DefaultMinPasswordScore  = 2
)

// PasswordValidationError represents a single password policy violation.
type PasswordValidationError struct {
	Code    string
	Message string
}

// Error implements error for PasswordValidationError.
func (e *PasswordValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// PasswordPolicy enforces a minimum length and a minimum zxcvbn strength score.
type PasswordPolicy struct {
	minLength int
	minScore  int
}

// NewPasswordPolicy builds a policy. Non-positive values disable the matching check; scores above 4 are clamped.
func NewPasswordPolicy(minLength, minScore int) *PasswordPolicy {
	if minScore > 4 {
		minScore = 4
	}
	return &PasswordPolicy{minLength: minLength, minScore: minScore}
}

// DefaultPasswordPolicy returns the policy applied to new accounts.
func DefaultPasswordPolicy() *PasswordPolicy {
	return NewPasswordPolicy(DefaultMinPasswordLength, DefaultMinPasswordScore)
}

// Validate checks password. userInputs (username, names, phone) are penalised by the strength estimator.
func (p *PasswordPolicy) Validate(password string, userInputs ...string) error {
	if p == nil {
		return fmt.Errorf("password policy not configured")
	}

	if p.minLength > 0 && utf8.RuneCountInString(password) < p.minLength {
		return &PasswordValidationError{
			Code:    "min_length",
			Message: fmt.Sprintf("password must be at least %d characters long", p.minLength),
		}
	}

	if p.minScore > 0 {
		inputs := make([]string, 0, len(userInputs))
		for _, input := range userInputs {
			if input != "" {
				inputs = append(inputs, input)
			}
		}
		if result := zxcvbn.PasswordStrength(password, inputs); result.Score < p.minScore {
			return &PasswordValidationError{
				Code:    "weak_password",
				Message: "password is too weak; choose a more complex value",
			}
		}
	}

	return nil
}
