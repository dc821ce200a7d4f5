package chat_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
	"github.com/sabrinaskaa/chatbot-binara/pkg/usecase/chat"
)

func TestRenderContextEmpty(t *testing.T) {
	gt.Equal(t, chat.RenderContext(nil), chat.NoContextReply)
	gt.Equal(t, chat.RenderContext(&model.ContextBundle{}), chat.NoContextReply)
}

func TestRenderContext(t *testing.T) {
	distance := int64(150)
	bundle := &model.ContextBundle{
		Kost: &model.Kost{
			Name:     "Kost Binara",
			Address:  "Jl. Kaliurang KM 5",
			WhatsApp: "0812",
		},
		Rooms: []model.Room{
			{
				Code:       "A1",
				Type:       model.RoomSingle,
				Price:      900000,
				Status:     model.RoomAvailable,
				Facilities: map[string]any{"bathroom": "inside", "ac": true, "wifi": false},
			},
			{Code: "A2", Type: model.RoomSingle, Price: 850000, Status: model.RoomOccupied},
		},
		Rules: []model.Rule{{Title: "Jam malam", Description: "22.00"}},
		NearbyPlaces: []model.NearbyPlace{
			{Name: "Laundry Bersih", DistanceM: &distance},
			{Name: "Laundry Kilat"},
		},
	}

	want := "**Kost Binara**\nAlamat: Jl. Kaliurang KM 5\nWhatsApp: 0812" +
		"\n\nKamar:\n- A1 (single): Tersedia, Rp900000/bulan, ac, bathroom inside\n- A2 (single): Penuh, Rp850000/bulan" +
		"\n\nAturan:\n- Jam malam: 22.00" +
		"\n\nLaundry terdekat:\n- Laundry Bersih, 150 m\n- Laundry Kilat"
	gt.Equal(t, chat.RenderContext(bundle), want)
}

func TestRenderContextWithoutKost(t *testing.T) {
	bundle := &model.ContextBundle{
		PaymentSchemes: []model.PaymentScheme{{Scheme: "Bulanan", Description: "tanggal 5"}},
	}
	gt.Equal(t, chat.RenderContext(bundle), "Pembayaran:\n- Bulanan: tanggal 5")
}
