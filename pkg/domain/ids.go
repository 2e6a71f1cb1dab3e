package domain

import (
	"github.com/google/uuid"

	dErrors "bloodlink/pkg/domain-errors"
)

// Typed IDs prevent cross-entity assignment at compile time. All IDs are
// UUIDs; parsing rejects empty, malformed, and nil values at trust
// boundaries.
type (
	AccountID      uuid.UUID
	LotID          uuid.UUID
	RequestID      uuid.UUID
	NotificationID uuid.UUID
	CampaignID     uuid.UUID
	DocumentID     uuid.UUID
	AppointmentID  uuid.UUID
)

func NewAccountID() AccountID           { return AccountID(uuid.New()) }
func NewLotID() LotID                   { return LotID(uuid.New()) }
func NewRequestID() RequestID           { return RequestID(uuid.New()) }
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }
func NewCampaignID() CampaignID         { return CampaignID(uuid.New()) }
func NewDocumentID() DocumentID         { return DocumentID(uuid.New()) }
func NewAppointmentID() AppointmentID   { return AppointmentID(uuid.New()) }

func (id AccountID) String() string      { return uuid.UUID(id).String() }
func (id LotID) String() string          { return uuid.UUID(id).String() }
func (id RequestID) String() string      { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }
func (id CampaignID) String() string     { return uuid.UUID(id).String() }
func (id DocumentID) String() string     { return uuid.UUID(id).String() }
func (id AppointmentID) String() string  { return uuid.UUID(id).String() }

func (id AccountID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id LotID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id CampaignID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id AppointmentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must not be the nil UUID")
	}
	return parsed, nil
}

func ParseAccountID(raw string) (AccountID, error) {
	u, err := parseUUID(raw)
	return AccountID(u), err
}

func ParseLotID(raw string) (LotID, error) {
	u, err := parseUUID(raw)
	return LotID(u), err
}

func ParseRequestID(raw string) (RequestID, error) {
	u, err := parseUUID(raw)
	return RequestID(u), err
}

func ParseCampaignID(raw string) (CampaignID, error) {
	u, err := parseUUID(raw)
	return CampaignID(u), err
}

func ParseDocumentID(raw string) (DocumentID, error) {
	u, err := parseUUID(raw)
	return DocumentID(u), err
}

func ParseAppointmentID(raw string) (AppointmentID, error) {
	u, err := parseUUID(raw)
	return AppointmentID(u), err
}
