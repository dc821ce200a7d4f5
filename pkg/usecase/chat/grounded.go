package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
	"github.com/sabrinaskaa/chatbot-binara/pkg/tool"
)

const (
	// AvailabilityThreshold is the minimum confidence to answer availability from records
	AvailabilityThreshold = 0.35

	// PriceThreshold is the minimum confidence to answer price from records
	PriceThreshold = 0.55
)

// grounded answers intents that records can answer directly. ok is false
// when the intent is not grounded or its confidence is too low.
func (o *Orchestrator) grounded(ctx context.Context, result model.IntentResult) (string, bool) {
	switch {
	case result.Label == model.IntentCheckAvailability && result.Confidence >= AvailabilityThreshold:
		return o.router.Dispatch(ctx, tool.ListAvailableRoomsCall{}).Text(), true

	case result.Label == model.IntentAskPrice && result.Confidence >= PriceThreshold:
		rooms, err := o.gateway.ListAvailableRooms(ctx, nil)
		if err != nil {
			return tool.Fail(tool.NameListAvailableRooms, tool.KindDataAccess, err.Error()).Text(), true
		}
		return priceRange(rooms), true
	}

	return "", false
}

// priceRange summarizes prices of available rooms per type
func priceRange(rooms []*model.Room) string {
	if len(rooms) == 0 {
		return PriceHintReply
	}

	lowest, highest := rooms[0].Price, rooms[0].Price
	byType := make(map[model.RoomType]int64)
	for _, r := range rooms {
		if r.Price < lowest {
			lowest = r.Price
		}
		if r.Price > highest {
			highest = r.Price
		}
		if p, ok := byType[r.Type]; !ok || r.Price < p {
			byType[r.Type] = r.Price
		}
	}

	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, string(t))
	}
	sort.Strings(types)

	var b strings.Builder
	if lowest == highest {
		fmt.Fprintf(&b, "Harga kamar yang tersedia Rp%d/bulan.", lowest)
	} else {
		fmt.Fprintf(&b, "Harga kamar yang tersedia mulai Rp%d sampai Rp%d/bulan.", lowest, highest)
	}
	for _, t := range types {
		fmt.Fprintf(&b, "\n- %s: mulai Rp%d/bulan", t, byType[model.RoomType(t)])
	}
	return b.String()
}
