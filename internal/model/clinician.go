package model

import (
	"github.com/google/uuid"
)

// Clinician is a second account type with its own password policy.
type Clinician struct {
	Base
	PasswordState
	Email         string `db:"email" json:"email"`
	Name          string `db:"name" json:"name"`
	LicenseNumber string `db:"license_number" json:"license_number"`
	Status        string `db:"status" json:"status"`
}

func NewClinician(email, name, license, passwordHash string) *Clinician {
	c := &Clinician{Email: email, Name: name, LicenseNumber: license, Status: UserStatusActive}
	c.ID = uuid.New()
	c.PasswordHash = passwordHash
	return c
}

func (c *Clinician) AccountType() string { return AccountTypeClinician }
func (c *Clinician) AccountID() string { return c.ID.String() }
func (c *Clinician) EmailAddress() string { return c.Email }
func (c *Clinician) DisplayName() string { return c.Name }
func (c *Clinician) Locale() string { return "en" }
