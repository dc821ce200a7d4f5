package interfaces

import (
	"context"

	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
)

// Gateway is the data access boundary of the kost records. Lookups that match
// nothing return model.ErrNotFound; any other error is a storage failure.
type Gateway interface {
	// ListAvailableRooms returns available rooms ordered by ascending price.
	// A nil roomType means no type filter.
	ListAvailableRooms(ctx context.Context, roomType *model.RoomType) ([]*model.Room, error)

	// FindRoomByCode looks up a room by its code such as "A1"
	FindRoomByCode(ctx context.Context, code string) (*model.Room, error)

	// CreateVisit stores a visit request and assigns its ID
	CreateVisit(ctx context.Context, visit *model.Visit) error

	// CreateTicket stores a maintenance ticket and assigns its ID
	CreateTicket(ctx context.Context, ticket *model.Ticket) error

	// FindTenantByPhone looks up a tenant by phone number
	FindTenantByPhone(ctx context.Context, phone string) (*model.Tenant, error)

	// ListUnpaidPayments returns unpaid payments of a tenant ordered by month
	ListUnpaidPayments(ctx context.Context, tenantID model.TenantID) ([]*model.Payment, error)

	// FetchContext assembles the records relevant to a guardrail topic
	FetchContext(ctx context.Context, topic model.Topic, kostID model.KostID) (*model.ContextBundle, error)
}
