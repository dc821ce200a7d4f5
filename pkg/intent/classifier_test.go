package intent_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/sabrinaskaa/chatbot-binara/pkg/intent"
	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
)

func TestClassifyRules(t *testing.T) {
	c, err := intent.New()
	gt.NoError(t, err)

	testCases := []struct {
		text       string
		label      string
		confidence float64
	}{
		{"Kamar kosong dong", model.IntentCheckAvailability, 0.8},
		{"masih ada KAMAR yang tersedia?", model.IntentCheckAvailability, 0.8},
		{"is any room available", model.IntentCheckAvailability, 0.8},
		{"berapa harga sewanya", model.IntentAskPrice, 0.7},
		{"biaya sewa per bulan", model.IntentAskPrice, 0.7},
		{"mau booking survey", model.IntentBookVisit, 0.7},
		{"kran kamar mandi bocor", model.IntentCreateTicket, 0.7},
		{"saya ada tunggakan?", model.IntentCheckUnpaid, 0.7},
		{"ada wifi?", model.IntentAskFacilities, 0.7},
		{"alamatnya di mana", model.IntentAskLocation, 0.7},
		{"halo", model.IntentGeneral, 0.2},
		{"", model.IntentUnknown, 0},
		{"   ", model.IntentUnknown, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			got := c.Classify(tc.text)
			gt.Equal(t, got.Label, tc.label)
			gt.Equal(t, got.Confidence, tc.confidence)
		})
	}
}

func TestClassifyRuleOrder(t *testing.T) {
	c, err := intent.New()
	gt.NoError(t, err)

	// Availability is listed before price
	got := c.Classify("harga kamar kosong berapa")
	gt.Equal(t, got.Label, model.IntentCheckAvailability)
}

func TestRulesWinOverModel(t *testing.T) {
	m, err := intent.Train(intent.Dataset{
		"ask_price":   {"kamar kosong mahal", "kamar kosong berapa"},
		"book_visit":  {"mau datang"},
		"general":     {"halo"},
		"create_note": {"catat"},
	})
	gt.NoError(t, err)

	c, err := intent.New(intent.WithModel(m))
	gt.NoError(t, err)
	gt.True(t, c.HasModel())

	got := c.Classify("kamar kosong dong")
	gt.Equal(t, got.Label, model.IntentCheckAvailability)
	gt.Equal(t, got.Confidence, 0.8)
}

func TestClassifyWithModel(t *testing.T) {
	m, err := intent.Train(intent.DefaultDataset())
	gt.NoError(t, err)

	c, err := intent.New(intent.WithModel(m))
	gt.NoError(t, err)

	got := c.Classify("ac saya nggak dingin tolong dibenerin")
	gt.Equal(t, got.Label, model.IntentCreateTicket)
	gt.True(t, got.Confidence > 0 && got.Confidence <= 1)

	got = c.Classify("terima kasih kak")
	gt.Equal(t, got.Label, model.IntentGeneral)
}

func TestModelSaveAndLoad(t *testing.T) {
	m, err := intent.Train(intent.DefaultDataset())
	gt.NoError(t, err)

	path := filepath.Join(t.TempDir(), "artifacts", "intent.json")
	gt.NoError(t, m.Save(path))

	c, err := intent.New(intent.WithModelPath(path))
	gt.NoError(t, err)
	gt.True(t, c.HasModel())

	label, _ := m.Predict("cek tagihan saya dong")
	gt.Equal(t, c.Classify("cek tagihan saya dong").Label, label)
}

func TestModelPathMissing(t *testing.T) {
	_, err := intent.New(intent.WithModelPath(filepath.Join(t.TempDir(), "none.json")))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrConfiguration))
}

func TestReadModelCorrupt(t *testing.T) {
	_, err := intent.ReadModel(bytes.NewBufferString("{not json"))
	gt.True(t, errors.Is(err, model.ErrConfiguration))

	_, err = intent.ReadModel(bytes.NewBufferString(`{"version": 99}`))
	gt.True(t, errors.Is(err, model.ErrConfiguration))
}

func TestReadDataset(t *testing.T) {
	ds, err := intent.ReadDataset(bytes.NewBufferString("ask_price:\n  - berapa\n"))
	gt.NoError(t, err)
	gt.A(t, ds["ask_price"]).Length(1)

	_, err = intent.ReadDataset(bytes.NewBufferString("ask_price: []\n"))
	gt.True(t, errors.Is(err, model.ErrInvalidArgument))
}

func TestCustomRulesMatchIgnoringCase(t *testing.T) {
	c, err := intent.New(intent.WithRules([]intent.Rule{
		{Label: model.IntentCheckAvailability, Confidence: 0.9, AnyOf: [][]string{{"Kamar", "KOSONG"}}},
	}))
	gt.NoError(t, err)

	got := c.Classify("Masih ada kamar kosong?")
	gt.Equal(t, got.Label, model.IntentCheckAvailability)
	gt.Equal(t, got.Confidence, 0.9)
}
