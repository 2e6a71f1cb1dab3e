package models

import (
	"time"

	"bloodlink/pkg/domain"
)

// Type tags a notification for display and deduplication.
type Type string

const (
	TypeEmergency Type = "emergency"
	TypeUrgent    Type = "urgent"
	TypeWarning   Type = "warning"
	TypeExpiry    Type = "expiry"
	TypeInfo      Type = "info"
	TypeSuccess   Type = "success"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeEmergency, TypeUrgent, TypeWarning, TypeExpiry, TypeInfo, TypeSuccess:
		return true
	}
	return false
}

// Notification is one message addressed to one account.
//
// Subject is a stable key for the entity the notification is about
// (e.g. "shortage:A+", "expiry:<lot id>"). Deduplication works on
// (account, type, subject) while an unread instance exists, so wording or
// quantity drift in Message cannot defeat it.
type Notification struct {
	ID        domain.NotificationID
	AccountID domain.AccountID
	Message   string
	Type      Type
	Subject   string
	Read      bool
	CreatedAt time.Time
}
