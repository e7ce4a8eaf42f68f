package model

import (
	"github.com/google/uuid"
)

// User status constants
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
	UserStatusLocked   = "locked"
)

// User represents a system user
type User struct {
	Base
	PasswordState
	Email             string `json:"email" db:"email"`
	Name              string `json:"name" db:"name"`
	Status            string `json:"status" db:"status"`
	PreferredLanguage string `json:"preferred_language" db:"preferred_language"`
}

func NewUser(email, name, passwordHash string) *User {
	u := &User{Email: email, Name: name, Status: UserStatusActive, PreferredLanguage: "en"}
	u.ID = uuid.New()
	u.PasswordHash = passwordHash
	return u
}

func (u *User) AccountType() string { return AccountTypeUser }
func (u *User) AccountID() string { return u.ID.String() }
func (u *User) EmailAddress() string { return u.Email }
func (u *User) DisplayName() string { return u.Name }
func (u *User) Locale() string { return u.PreferredLanguage }
