package models

import (
	"time"

	"bloodlink/internal/trust"
	"bloodlink/pkg/domain"
)

// AccountStatus gates login. Registration always lands in pending; only an
// admin decision or an approved identity document activates an account.
type AccountStatus string

const (
	AccountPending   AccountStatus = "pending"
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
	AccountRejected  AccountStatus = "rejected"
)

func (s AccountStatus) IsValid() bool {
	switch s {
	case AccountPending, AccountActive, AccountSuspended, AccountRejected:
		return true
	}
	return false
}

// TrustStatus records the screening outcome and any later manual override.
type TrustStatus string

const (
	TrustPending        TrustStatus = "pending"
	TrustAutoApproved   TrustStatus = "auto_approved"
	TrustFlagged        TrustStatus = "flagged"
	TrustManualApproved TrustStatus = "manual_approved"
	TrustRejected       TrustStatus = "rejected"
)

// Profile holds the role-specific attributes captured at registration.
// Unused fields stay empty for the other roles.
type Profile struct {
	BloodGroup     domain.BloodGroup `json:"blood_group,omitempty"`
	ContactPerson  string            `json:"contact_person,omitempty"`
	Address        string            `json:"address,omitempty"`
	City           string            `json:"city,omitempty"`
	State          string            `json:"state,omitempty"`
	LicenseID      string            `json:"license_id,omitempty"`
	RegistrationID string            `json:"registration_id,omitempty"`
	OperatingHours string            `json:"operating_hours,omitempty"`
	Capacity       string            `json:"capacity,omitempty"`
	HospitalType   string            `json:"hospital_type,omitempty"`
}

// Account is a registered participant: donor, hospital, blood bank, or admin.
type Account struct {
	ID           domain.AccountID
	Handle       string
	Email        string
	Phone        string
	PasswordHash string
	Role         domain.Role
	Status       AccountStatus
	Profile      Profile

	TrustStatus TrustStatus
	TrustScore  int
	Findings    []trust.Finding

	VerifiedAt *time.Time
	VerifiedBy *domain.AccountID
	CreatedAt  time.Time
}

// CanLogin reports whether the account has cleared verification.
func (a *Account) CanLogin() bool {
	return a.Status == AccountActive
}

// DocumentStatus tracks review of an uploaded identity document.
type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "pending"
	DocumentApproved DocumentStatus = "approved"
	DocumentRejected DocumentStatus = "rejected"
)

// SupportingDocument is identity evidence a donor submits to clear a
// flagged or pending registration.
type SupportingDocument struct {
	ID         domain.DocumentID
	AccountID  domain.AccountID
	Kind       string
	FileName   string
	Status     DocumentStatus
	Note       string
	UploadedAt time.Time
	ReviewedAt *time.Time
	ReviewedBy *domain.AccountID
}
