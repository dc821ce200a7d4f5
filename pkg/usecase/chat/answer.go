package chat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
)

// maxRenderedItems caps rooms, rules and payment schemes in a rendered context
const maxRenderedItems = 6

// RenderContext writes a bundle as a plain reply. It is used when the
// generative backend cannot answer a question that has records behind it.
func RenderContext(bundle *model.ContextBundle) string {
	if bundle.IsEmpty() {
		return NoContextReply
	}

	var sections []string

	if k := bundle.Kost; k != nil {
		lines := []string{"**" + k.Name + "**"}
		if k.Address != "" {
			lines = append(lines, "Alamat: "+k.Address)
		}
		if k.WhatsApp != "" {
			lines = append(lines, "WhatsApp: "+k.WhatsApp)
		}
		if k.GoogleMapsURL != "" {
			lines = append(lines, "Maps: "+k.GoogleMapsURL)
		}
		if k.VisitingHours != "" {
			lines = append(lines, "Jam kunjungan: "+k.VisitingHours)
		}
		if k.KostType != "" {
			lines = append(lines, "Tipe kost: "+k.KostType)
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	if len(bundle.Rooms) > 0 {
		lines := []string{"Kamar:"}
		for _, r := range head(bundle.Rooms, maxRenderedItems) {
			status := "Penuh"
			if r.Status == model.RoomAvailable {
				status = "Tersedia"
			}
			line := fmt.Sprintf("- %s (%s): %s, Rp%d/bulan", r.Code, r.Type, status, r.Price)
			if f := facilities(r.Facilities); f != "" {
				line += ", " + f
			}
			lines = append(lines, line)
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	if len(bundle.Rules) > 0 {
		lines := []string{"Aturan:"}
		for _, r := range head(bundle.Rules, maxRenderedItems) {
			lines = append(lines, fmt.Sprintf("- %s: %s", r.Title, r.Description))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	if len(bundle.PaymentSchemes) > 0 {
		lines := []string{"Pembayaran:"}
		for _, p := range head(bundle.PaymentSchemes, maxRenderedItems) {
			lines = append(lines, fmt.Sprintf("- %s: %s", p.Scheme, p.Description))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	if len(bundle.NearbyPlaces) > 0 {
		lines := []string{"Laundry terdekat:"}
		for _, p := range head(bundle.NearbyPlaces, model.NearbyLimit) {
			parts := []string{p.Name}
			if p.DistanceM != nil {
				parts = append(parts, fmt.Sprintf("%d m", *p.DistanceM))
			}
			if p.Address != "" {
				parts = append(parts, p.Address)
			}
			if p.Note != "" {
				parts = append(parts, p.Note)
			}
			lines = append(lines, "- "+strings.Join(parts, ", "))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	return strings.Join(sections, "\n\n")
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// facilities lists enabled facilities in key order
func facilities(f map[string]any) string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		switch v := f[k].(type) {
		case bool:
			if v {
				parts = append(parts, k)
			}
		case nil:
		default:
			parts = append(parts, fmt.Sprintf("%s %v", k, v))
		}
	}
	return strings.Join(parts, ", ")
}
