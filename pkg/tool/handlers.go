package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sabrinaskaa/chatbot-binara/pkg/interfaces"
	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
	"github.com/sabrinaskaa/chatbot-binara/pkg/utils/logging"
)

// MaxListedRooms caps the number of rooms in a listing
const MaxListedRooms = 10

// Reply texts
const (
	msgNoRooms          = "Saat ini belum ada kamar kosong."
	msgRoomsHeader      = "Kamar kosong yang tersedia:\n"
	msgVisitCreated     = "Oke, visit request kamu dibuat (ID %s) untuk %s. Admin bakal konfirmasi."
	msgRoomNotFound     = "Kamar %s nggak ketemu. Pastikan formatnya bener (A1, B2, dll)."
	msgTicketCreated    = "Ticket dibuat (ID %s) untuk kamar %s. Status: open."
	msgTenantNotFound   = "Nomor itu belum terdaftar sebagai penghuni."
	msgNoArrears        = "%s aman, tidak ada tunggakan."
	msgArrearsHeader    = "Tunggakan %s:\n"
	msgMissingRequester = "name and phone are required"
	msgMissingRoomCode  = "room_code is required"
	msgMissingPhone     = "phone is required"
)

func dataAccess(ctx context.Context, tool Name, err error) Result {
	logging.From(ctx).Warn("tool failed to access data", "tool", tool, "error", err)
	return Fail(tool, KindDataAccess, err.Error())
}

func wrongCall(tool Name, call Call) Result {
	return Fail(tool, KindInvalidArgument, fmt.Sprintf("unexpected call %s", call.Tool()))
}

// FormatRooms renders a room listing, capped at MaxListedRooms
func FormatRooms(rooms []*model.Room) string {
	if len(rooms) == 0 {
		return msgNoRooms
	}
	if len(rooms) > MaxListedRooms {
		rooms = rooms[:MaxListedRooms]
	}

	lines := make([]string, 0, len(rooms))
	for _, r := range rooms {
		lines = append(lines, fmt.Sprintf("- %s (%s) Rp%d/bulan", r.Code, r.Type, r.Price))
	}
	return msgRoomsHeader + strings.Join(lines, "\n")
}

type listRooms struct {
	gateway interfaces.Gateway
}

func (h *listRooms) Name() Name { return NameListAvailableRooms }

func (h *listRooms) Execute(ctx context.Context, call Call) Result {
	c, ok := call.(ListAvailableRoomsCall)
	if !ok {
		return wrongCall(h.Name(), call)
	}

	rooms, err := h.gateway.ListAvailableRooms(ctx, c.RoomType)
	if err != nil {
		return dataAccess(ctx, h.Name(), err)
	}
	return Ok(h.Name(), FormatRooms(rooms))
}

type createVisit struct {
	gateway interfaces.Gateway
	now     func() time.Time
}

func (h *createVisit) Name() Name { return NameCreateVisit }

func (h *createVisit) Execute(ctx context.Context, call Call) Result {
	c, ok := call.(CreateVisitCall)
	if !ok {
		return wrongCall(h.Name(), call)
	}

	name, phone := strings.TrimSpace(c.Name), strings.TrimSpace(c.Phone)
	if name == "" || phone == "" {
		return Fail(h.Name(), KindInvalidArgument, msgMissingRequester)
	}
	date, err := model.ParseDate(strings.TrimSpace(c.PreferredDate))
	if err != nil {
		return Fail(h.Name(), KindInvalidArgument, "preferred_date must be YYYY-MM-DD")
	}

	visit := &model.Visit{
		Name:          name,
		Phone:         phone,
		PreferredDate: date,
		Status:        model.VisitPending,
		CreatedAt:     h.now(),
	}
	if err := h.gateway.CreateVisit(ctx, visit); err != nil {
		return dataAccess(ctx, h.Name(), err)
	}

	return Ok(h.Name(), fmt.Sprintf(msgVisitCreated, visit.ID, date.Format(model.DateLayout)))
}

type createTicket struct {
	gateway interfaces.Gateway
	now     func() time.Time
}

func (h *createTicket) Name() Name { return NameCreateTicket }

func (h *createTicket) Execute(ctx context.Context, call Call) Result {
	c, ok := call.(CreateTicketCall)
	if !ok {
		return wrongCall(h.Name(), call)
	}

	code := strings.ToUpper(strings.TrimSpace(c.RoomCode))
	if code == "" {
		return Fail(h.Name(), KindInvalidArgument, msgMissingRoomCode)
	}

	room, err := h.gateway.FindRoomByCode(ctx, code)
	if errors.Is(err, model.ErrNotFound) {
		return Ok(h.Name(), fmt.Sprintf(msgRoomNotFound, code))
	}
	if err != nil {
		return dataAccess(ctx, h.Name(), err)
	}

	ticket := &model.Ticket{
		RoomID:      room.ID,
		RoomCode:    room.Code,
		Description: strings.TrimSpace(c.Description),
		Status:      model.TicketOpen,
		CreatedAt:   h.now(),
	}
	if err := h.gateway.CreateTicket(ctx, ticket); err != nil {
		return dataAccess(ctx, h.Name(), err)
	}

	return Ok(h.Name(), fmt.Sprintf(msgTicketCreated, ticket.ID, room.Code))
}

type checkUnpaid struct {
	gateway interfaces.Gateway
}

func (h *checkUnpaid) Name() Name { return NameCheckUnpaid }

func (h *checkUnpaid) Execute(ctx context.Context, call Call) Result {
	c, ok := call.(CheckUnpaidCall)
	if !ok {
		return wrongCall(h.Name(), call)
	}

	phone := strings.TrimSpace(c.Phone)
	if phone == "" {
		return Fail(h.Name(), KindInvalidArgument, msgMissingPhone)
	}

	tenant, err := h.gateway.FindTenantByPhone(ctx, phone)
	if errors.Is(err, model.ErrNotFound) {
		return Ok(h.Name(), msgTenantNotFound)
	}
	if err != nil {
		return dataAccess(ctx, h.Name(), err)
	}

	payments, err := h.gateway.ListUnpaidPayments(ctx, tenant.ID)
	if err != nil {
		return dataAccess(ctx, h.Name(), err)
	}
	if len(payments) == 0 {
		return Ok(h.Name(), fmt.Sprintf(msgNoArrears, tenant.Name))
	}

	lines := make([]string, 0, len(payments))
	for _, p := range payments {
		lines = append(lines, fmt.Sprintf("- %s Rp%d", p.Month.Format(model.DateLayout), p.Amount))
	}
	return Ok(h.Name(), fmt.Sprintf(msgArrearsHeader, tenant.Name)+strings.Join(lines, "\n"))
}
