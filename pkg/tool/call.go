package tool

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
)

// Name is the tag of a tool call on the wire
type Name string

const (
	NameNone               Name = "none"
	NameListAvailableRooms Name = "list_available_rooms"
	NameCreateVisit        Name = "create_visit"
	NameCreateTicket       Name = "create_ticket"
	NameCheckUnpaid        Name = "check_unpaid"
)

// DefaultAnswer is used when a tool call cannot be understood at all
const DefaultAnswer = "Aku belum paham. Coba ulangin ya."

// Call is one of NoneCall, ListAvailableRoomsCall, CreateVisitCall,
// CreateTicketCall or CheckUnpaidCall
type Call interface {
	Tool() Name
	call()
}

// NoneCall means no tool is needed and Answer is the reply
type NoneCall struct {
	Answer string
}

// ListAvailableRoomsCall lists available rooms. A nil RoomType means any type.
type ListAvailableRoomsCall struct {
	RoomType *model.RoomType
}

// CreateVisitCall requests a visit. PreferredDate is validated at dispatch.
type CreateVisitCall struct {
	Name          string
	Phone         string
	PreferredDate string
}

type CreateTicketCall struct {
	RoomCode    string
	Description string
}

type CheckUnpaidCall struct {
	Phone string
}

func (NoneCall) Tool() Name               { return NameNone }
func (ListAvailableRoomsCall) Tool() Name { return NameListAvailableRooms }
func (CreateVisitCall) Tool() Name        { return NameCreateVisit }
func (CreateTicketCall) Tool() Name       { return NameCreateTicket }
func (CheckUnpaidCall) Tool() Name        { return NameCheckUnpaid }

func (NoneCall) call()               {}
func (ListAvailableRoomsCall) call() {}
func (CreateVisitCall) call()        {}
func (CreateTicketCall) call()       {}
func (CheckUnpaidCall) call()        {}

// ParseRoomType maps a wire room type to a filter. Empty, "null" and unknown
// values mean no filter.
func ParseRoomType(s string) *model.RoomType {
	switch rt := model.RoomType(strings.ToLower(strings.TrimSpace(s))); rt {
	case model.RoomSingle, model.RoomSharing:
		return &rt
	default:
		return nil
	}
}

// Parse converts backend output into a Call. The output must be exactly one
// JSON object without markdown. Anything else becomes a NoneCall whose answer
// is the "answer" field, the raw text when it is not JSON at all, or
// DefaultAnswer.
func Parse(raw string) Call {
	text := strings.TrimSpace(raw)
	if text == "" {
		return NoneCall{Answer: DefaultAnswer}
	}
	if !strings.HasPrefix(text, "{") {
		// Fenced JSON is rejected, plain prose is passed through
		if strings.HasPrefix(text, "```") || strings.Contains(text, `"tool"`) {
			return NoneCall{Answer: DefaultAnswer}
		}
		return NoneCall{Answer: text}
	}

	fields, ok := decodeObject(text)
	if !ok {
		return NoneCall{Answer: DefaultAnswer}
	}

	fallback := NoneCall{Answer: DefaultAnswer}
	if answer, ok := stringField(fields, "answer"); ok && strings.TrimSpace(answer) != "" {
		fallback.Answer = answer
	}

	tag, ok := stringField(fields, "tool")
	if !ok {
		return fallback
	}

	switch Name(tag) {
	case NameNone:
		return fallback

	case NameListAvailableRooms:
		raw, present := fields["room_type"]
		if !present || isNull(raw) {
			return ListAvailableRoomsCall{}
		}
		roomType, ok := stringField(fields, "room_type")
		if !ok {
			return fallback
		}
		return ListAvailableRoomsCall{RoomType: ParseRoomType(roomType)}

	case NameCreateVisit:
		values, ok := requiredStrings(fields, "name", "phone", "preferred_date")
		if !ok {
			return fallback
		}
		return CreateVisitCall{Name: values[0], Phone: values[1], PreferredDate: values[2]}

	case NameCreateTicket:
		values, ok := requiredStrings(fields, "room_code", "description")
		if !ok {
			return fallback
		}
		return CreateTicketCall{RoomCode: values[0], Description: values[1]}

	case NameCheckUnpaid:
		values, ok := requiredStrings(fields, "phone")
		if !ok {
			return fallback
		}
		return CheckUnpaidCall{Phone: values[0]}

	default:
		return fallback
	}
}

// decodeObject decodes exactly one JSON object and rejects trailing data
func decodeObject(text string) (map[string]json.RawMessage, bool) {
	dec := json.NewDecoder(strings.NewReader(text))
	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return nil, false
	}
	if rest := strings.TrimSpace(text[dec.InputOffset():]); rest != "" {
		return nil, false
	}
	return fields, true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func requiredStrings(fields map[string]json.RawMessage, keys ...string) ([]string, bool) {
	values := make([]string, len(keys))
	for i, key := range keys {
		s, ok := stringField(fields, key)
		if !ok {
			return nil, false
		}
		values[i] = strings.TrimSpace(s)
	}
	return values, true
}
