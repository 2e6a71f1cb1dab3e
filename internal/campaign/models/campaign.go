package models

import (
	"time"

	"bloodlink/pkg/domain"
)

// Status is the lifecycle of a donation drive.
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

// Campaign is a donation drive organized by a blood bank. Emergency
// requests spawn draft campaigns automatically; organizers refine or cancel
// them afterwards.
type Campaign struct {
	ID           domain.CampaignID
	OrganizerID  domain.AccountID
	Title        string
	Description  string
	Location     string
	ScheduledFor time.Time
	TargetGroups []domain.BloodGroup
	Status       Status
	CreatedAt    time.Time
}
