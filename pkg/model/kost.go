package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
)

type (
	KostID   string
	RoomID   string
	TenantID string
	VisitID  string
	TicketID string
)

// DefaultKostID is used when only a single property is managed
const DefaultKostID KostID = "1"

type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomOccupied    RoomStatus = "occupied"
	RoomMaintenance RoomStatus = "maintenance"
)

type RoomType string

const (
	RoomSingle  RoomType = "single"
	RoomSharing RoomType = "sharing"
)

type PaymentStatus string

const (
	PaymentPaid   PaymentStatus = "paid"
	PaymentUnpaid PaymentStatus = "unpaid"
)

type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketOnProgress TicketStatus = "on_progress"
	TicketDone       TicketStatus = "done"
)

type VisitStatus string

const (
	VisitPending VisitStatus = "pending"
)

type Room struct {
	ID         RoomID         `json:"id" yaml:"id" firestore:"-"`
	Code       string         `json:"code" yaml:"code" firestore:"code"`
	Type       RoomType       `json:"type" yaml:"type" firestore:"type"`
	Price      int64          `json:"price" yaml:"price" firestore:"price"`
	Facilities map[string]any `json:"facilities,omitempty" yaml:"facilities" firestore:"facilities"`
	Status     RoomStatus     `json:"status" yaml:"status" firestore:"status"`
	KostID     KostID         `json:"kost_id,omitempty" yaml:"kost_id" firestore:"kost_id"`
}

// Validate checks if the room can be stored
func (r *Room) Validate() error {
	if r.Code == "" {
		return goerr.Wrap(ErrInvalidArgument, "room code is empty")
	}
	switch r.Status {
	case RoomAvailable, RoomOccupied, RoomMaintenance:
	default:
		return goerr.Wrap(ErrInvalidArgument, "invalid room status", goerr.V("status", r.Status))
	}
	if r.Price < 0 {
		return goerr.Wrap(ErrInvalidArgument, "negative room price", goerr.V("price", r.Price))
	}
	return nil
}

type Tenant struct {
	ID        TenantID  `json:"id" yaml:"id" firestore:"-"`
	Name      string    `json:"name" yaml:"name" firestore:"name"`
	Phone     string    `json:"phone" yaml:"phone" firestore:"phone"`
	RoomCode  string    `json:"room_code" yaml:"room_code" firestore:"room_code"`
	StartDate time.Time `json:"start_date" yaml:"start_date" firestore:"start_date"`
}

type Payment struct {
	TenantID TenantID      `json:"tenant_id" yaml:"tenant_id" firestore:"tenant_id"`
	Month    time.Time     `json:"month" yaml:"month" firestore:"month"`
	Amount   int64         `json:"amount" yaml:"amount" firestore:"amount"`
	Status   PaymentStatus `json:"status" yaml:"status" firestore:"status"`
	PaidAt   *time.Time    `json:"paid_at,omitempty" yaml:"paid_at" firestore:"paid_at"`
}

type Ticket struct {
	ID          TicketID     `json:"id" firestore:"-"`
	RoomID      RoomID       `json:"room_id" firestore:"room_id"`
	RoomCode    string       `json:"room_code" firestore:"room_code"`
	Description string       `json:"description" firestore:"description"`
	Status      TicketStatus `json:"status" firestore:"status"`
	CreatedAt   time.Time    `json:"created_at" firestore:"created_at"`
}

type Visit struct {
	ID            VisitID     `json:"id" firestore:"-"`
	Name          string      `json:"name" firestore:"name"`
	Phone         string      `json:"phone" firestore:"phone"`
	PreferredDate time.Time   `json:"preferred_date" firestore:"preferred_date"`
	Status        VisitStatus `json:"status" firestore:"status"`
	CreatedAt     time.Time   `json:"created_at" firestore:"created_at"`
}

// DateLayout is the ISO calendar date format accepted from users and tools
const DateLayout = "2006-01-02"

// ParseDate parses an ISO calendar date (YYYY-MM-DD)
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, goerr.Wrap(ErrInvalidArgument, "preferred_date must be YYYY-MM-DD", goerr.V("value", s))
	}
	return d, nil
}
