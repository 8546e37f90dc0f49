package auth

import (
	"fmt"
	"unicode"

	"github.com/spec-kit/identity-service/internal/config"
)

// PasswordPolicy enforces configurable complexity rules at registration.
type PasswordPolicy struct {
	cfg config.PasswordPolicyConfig
}

// NewPasswordPolicy builds a policy from configuration.
func NewPasswordPolicy(cfg config.PasswordPolicyConfig) *PasswordPolicy {
	return &PasswordPolicy{cfg: cfg}
}

// Violations returns every rule the password fails, in a stable order.
// An empty slice means the password satisfies the policy.
func (p *PasswordPolicy) Violations(password string) []string {
	var violations []string

	if p.cfg.MinLength > 0 && len(password) < p.cfg.MinLength {
		violations = append(violations, fmt.Sprintf("password must be at least %d characters long", p.cfg.MinLength))
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	if p.cfg.RequireUpper && !hasUpper {
		violations = append(violations, "password must contain an uppercase letter")
	}
	if p.cfg.RequireLower && !hasLower {
		violations = append(violations, "password must contain a lowercase letter")
	}
	if p.cfg.RequireDigit && !hasDigit {
		violations = append(violations, "password must contain a digit")
	}
	if p.cfg.RequireSymbol && !hasSymbol {
		violations = append(violations, "password must contain a symbol")
	}

	return violations
}
