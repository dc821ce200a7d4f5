package intent

import (
	"strings"

	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
)

// Rule assigns Label with a fixed Confidence when any keyword group matches.
// A group matches when every keyword is a substring of the lowercased text.
type Rule struct {
	Label      string
	Confidence float64
	AnyOf      [][]string
}

func (r Rule) match(lowered string) bool {
	for _, group := range r.AnyOf {
		if len(group) == 0 {
			continue
		}
		hit := true
		for _, kw := range group {
			if !strings.Contains(lowered, kw) {
				hit = false
				break
			}
		}
		if hit {
			return true
		}
	}
	return false
}

// lowerRules returns a copy of rules with every keyword lowercased, since
// input text is lowercased before matching
func lowerRules(rules []Rule) []Rule {
	out := make([]Rule, len(rules))
	for i, r := range rules {
		groups := make([][]string, len(r.AnyOf))
		for j, group := range r.AnyOf {
			groups[j] = make([]string, len(group))
			for k, kw := range group {
				groups[j][k] = strings.ToLower(kw)
			}
		}
		out[i] = Rule{Label: r.Label, Confidence: r.Confidence, AnyOf: groups}
	}
	return out
}

// DefaultRules returns the keyword rules evaluated before the statistical model.
// The order matters: the first matching rule wins.
func DefaultRules() []Rule {
	return []Rule{
		{
			Label:      model.IntentCheckAvailability,
			Confidence: 0.8,
			AnyOf:      [][]string{{"kamar", "kosong"}, {"kamar", "tersedia"}, {"available"}},
		},
		{
			Label:      model.IntentAskPrice,
			Confidence: 0.7,
			AnyOf:      [][]string{{"harga"}, {"price"}, {"biaya sewa"}},
		},
		{
			Label:      model.IntentBookVisit,
			Confidence: 0.7,
			AnyOf:      [][]string{{"booking"}, {"survey"}, {"lihat kamar"}, {"visit"}, {"kunjungan"}},
		},
		{
			Label:      model.IntentCreateTicket,
			Confidence: 0.7,
			AnyOf:      [][]string{{"komplain"}, {"rusak"}, {"bocor"}, {"mati lampu"}},
		},
		{
			Label:      model.IntentCheckUnpaid,
			Confidence: 0.7,
			AnyOf:      [][]string{{"tunggakan"}, {"belum bayar"}, {"unpaid"}},
		},
		{
			Label:      model.IntentAskFacilities,
			Confidence: 0.7,
			AnyOf:      [][]string{{"fasilitas"}, {"wifi"}},
		},
		{
			Label:      model.IntentAskLocation,
			Confidence: 0.7,
			AnyOf:      [][]string{{"lokasi"}, {"alamat"}},
		},
	}
}
