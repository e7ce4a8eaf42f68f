package model

import (
	"fmt"
	"strings"
	"unicode"
)

// PasswordRules are the strength rules a new password must meet before the history check.
type PasswordRules struct {
	MinLength           int      `json:"min_length" mapstructure:"min_length"`
	RequireUppercase    bool     `json:"require_uppercase" mapstructure:"require_uppercase"`
	RequireLowercase    bool     `json:"require_lowercase" mapstructure:"require_lowercase"`
	RequireNumbers      bool     `json:"require_numbers" mapstructure:"require_numbers"`
	RequireSpecialChars bool     `json:"require_special_chars" mapstructure:"require_special_chars"`
	BlockedPasswords    []string `json:"blocked_passwords" mapstructure:"blocked_passwords"` // Common/weak passwords to block
}

// Check returns one message per broken rule.
func (r PasswordRules) Check(password string) []string {
	var problems []string
	if len(password) < r.MinLength {
		problems = append(problems, fmt.Sprintf("must be at least %d characters", r.MinLength))
	}

	var upper, lower, digit, special bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			upper = true
		case unicode.IsLower(c):
			lower = true
		case unicode.IsDigit(c):
			digit = true
		case unicode.IsPunct(c) || unicode.IsSymbol(c):
			special = true
		}
	}
	if r.RequireUppercase && !upper {
		problems = append(problems, "must contain an uppercase letter")
	}
	if r.RequireLowercase && !lower {
		problems = append(problems, "must contain a lowercase letter")
	}
	if r.RequireNumbers && !digit {
		problems = append(problems, "must contain a number")
	}
	if r.RequireSpecialChars && !special {
		problems = append(problems, "must contain a special character")
	}
	for _, b := range r.BlockedPasswords {
		if strings.EqualFold(password, b) {
			problems = append(problems, "is too common")
			break
		}
	}
	return problems
}
