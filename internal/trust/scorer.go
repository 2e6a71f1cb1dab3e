// Package trust holds the registration-screening rules. It scores a
// submission's plausibility so admins can triage reviews; it is a triage
// aid, not a security control. Storage and HTTP concerns live in other
// layers; this stays pure.
package trust

import (
	"fmt"
	"time"

	"bloodlink/pkg/domain"
)

// Status is the screening outcome communicated to the reviewer.
type Status string

const (
	StatusAutoApproved Status = "auto_approved"
	StatusFlagged      Status = "flagged"
)

// autoApproveThreshold is the minimum score for auto-approval.
const autoApproveThreshold = 80

// Submission is the structured registration data the scorer evaluates.
// All fields are raw caller input; absent fields are empty strings.
type Submission struct {
	Handle     string
	Email      string
	Phone      string
	BloodGroup string

	ContactPerson  string
	Address        string
	City           string
	State          string
	LicenseID      string
	RegistrationID string
	OperatingHours string
	Capacity       string
	HospitalType   string
}

// Finding records one violated rule.
type Finding struct {
	Reason    string    `json:"reason"`
	Penalty   int       `json:"penalty"`
	Timestamp time.Time `json:"timestamp"`
}

// Result is an immutable screening outcome. A fresh Result is produced per
// evaluation; the scorer keeps no state between calls.
type Result struct {
	Status   Status
	Score    int
	Findings []Finding
}

type evaluation struct {
	now      time.Time
	score    int
	findings []Finding
}

func (e *evaluation) flag(reason string, penalty int) {
	e.findings = append(e.findings, Finding{Reason: reason, Penalty: penalty, Timestamp: e.now})
	e.score -= penalty
	if e.score < 0 {
		e.score = 0
	}
}

// Score evaluates a submission for the given role. The score starts at 100
// and each violated rule subtracts its fixed penalty, floored at zero.
// Checks run in a fixed order (email, phone, handle, role-specific) and
// findings are appended in that order.
func Score(sub Submission, role domain.Role, now time.Time) Result {
	e := &evaluation{now: now, score: 100}

	e.checkEmail(sub.Email)
	e.checkPhone(sub.Phone)
	e.checkHandle(sub.Handle)

	switch role {
	case domain.RoleDonor:
		e.checkDonor(sub)
	case domain.RoleHospital:
		e.checkHospital(sub)
	case domain.RoleBank:
		e.checkBank(sub)
	}

	status := StatusFlagged
	if e.score >= autoApproveThreshold {
		status = StatusAutoApproved
	}
	return Result{Status: status, Score: e.score, Findings: e.findings}
}

func (e *evaluation) checkDonor(sub Submission) {
	if sub.BloodGroup == "" {
		e.flag("Missing blood group", 15)
	} else if !domain.BloodGroup(sub.BloodGroup).IsValid() {
		e.flag(fmt.Sprintf("Invalid blood group: %s", sub.BloodGroup), 25)
	}
	if sub.Address == "" {
		e.flag("Missing address", 10)
	}
	if sub.City == "" {
		e.flag("Missing city", 10)
	}
	if sub.State == "" {
		e.flag("Missing state", 10)
	}
}

func (e *evaluation) checkHospital(sub Submission) {
	if sub.RegistrationID == "" {
		e.flag("Missing hospital registration ID", 25)
	}
	e.checkHospitalType(sub.HospitalType)
	if sub.ContactPerson == "" {
		e.flag("Missing contact person name", 15)
	}
	if sub.Address == "" {
		e.flag("Missing address", 15)
	}
	if sub.City == "" {
		e.flag("Missing city", 15)
	}
	e.checkCapacity(sub.Capacity, 10, 10000, "hospital")
}

func (e *evaluation) checkBank(sub Submission) {
	if sub.LicenseID == "" {
		e.flag("Missing blood bank license ID", 30)
	}
	if sub.OperatingHours == "" {
		e.flag("Missing operating hours", 10)
	}
	if sub.ContactPerson == "" {
		e.flag("Missing contact person name", 15)
	}
	if sub.Address == "" {
		e.flag("Missing address", 15)
	}
	if sub.City == "" {
		e.flag("Missing city", 15)
	}
	e.checkCapacity(sub.Capacity, 50, 50000, "blood bank")
}
