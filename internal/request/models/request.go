package models

import (
	"time"

	"bloodlink/pkg/domain"
)

// Priority orders how urgently a request must be served. Emergency requests
// additionally fan out to every active bank.
type Priority string

const (
	PriorityRoutine   Priority = "routine"
	PriorityUrgent    Priority = "urgent"
	PriorityEmergency Priority = "emergency"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityRoutine, PriorityUrgent, PriorityEmergency:
		return true
	}
	return false
}

// Status is the request lifecycle. Completed is reserved for fulfilment
// confirmation by the hospital.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// Request is a hospital's ask for blood units. BankID is nil for unrouted
// requests, which any bank may pick up; approving one claims it.
type Request struct {
	ID          domain.RequestID
	HospitalID  domain.AccountID
	BankID      *domain.AccountID
	PatientName string
	PatientRef  string
	BloodGroup  domain.BloodGroup
	Units       int
	Priority    Priority
	Status      Status
	Reason      string
	// DecisionNote carries the bank's explanation when deciding.
	DecisionNote string
	DecidedAt    *time.Time
	DecidedBy    *domain.AccountID
	CreatedAt    time.Time
}

// Stats summarizes one hospital's request history. The monthly figures
// count approvals decided in the current calendar month.
type Stats struct {
	Total              int
	Pending            int
	Approved           int
	Rejected           int
	FulfilledThisMonth int
	UnitsThisMonth     int
}
