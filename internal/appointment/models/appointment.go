package models

import (
	"time"

	"bloodlink/pkg/domain"
)

// Status is the appointment lifecycle.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// eligibilityGap is the minimum rest period between completed donations.
const eligibilityGap = 90 * 24 * time.Hour

// Appointment is a donor's booked donation slot, either at a campaign or
// directly with a bank. Exactly one of CampaignID and BankID is set.
type Appointment struct {
	ID         domain.AppointmentID
	DonorID    domain.AccountID
	CampaignID *domain.CampaignID
	BankID     *domain.AccountID
	Date       time.Time
	TimeSlot   string
	Status     Status
	CreatedAt  time.Time
}

// DonorStats summarizes a donor's completed donations. LivesSaved uses the
// three-recipients-per-donation estimate.
type DonorStats struct {
	Donations    int
	LivesSaved   int
	NextEligible *time.Time
	// DaysUntilEligible is zero once the rest period has passed.
	DaysUntilEligible int
}

// StatsFrom derives donor stats from completed appointments.
func StatsFrom(appointments []*Appointment, now time.Time) DonorStats {
	var stats DonorStats
	var last time.Time
	for _, a := range appointments {
		if a.Status != StatusCompleted {
			continue
		}
		stats.Donations++
		if a.Date.After(last) {
			last = a.Date
		}
	}
	stats.LivesSaved = stats.Donations * 3
	if stats.Donations > 0 {
		eligible := last.Add(eligibilityGap)
		stats.NextEligible = &eligible
		// Calendar days, so a donation this morning still counts a full gap.
		remaining := eligible.Truncate(24 * time.Hour).Sub(now.Truncate(24 * time.Hour))
		if days := int(remaining / (24 * time.Hour)); days > 0 {
			stats.DaysUntilEligible = days
		}
	}
	return stats
}
