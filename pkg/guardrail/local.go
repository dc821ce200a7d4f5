package guardrail

import (
	"strings"

	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
)

var denyKeywords = []string{
	"politik", "presiden", "drakor", "minecraft", "tugas", "koding", "python",
	"nextjs", "skripsi", "matematika", "crypto", "game", "film", "banjir",
}

type topicKeywords struct {
	topic    model.Topic
	keywords []string
}

// topicTable is evaluated in order. Laundry comes first so that a laundry
// question mentioning the kost address is still routed to nearby places.
var topicTable = []topicKeywords{
	{model.TopicLaundry, []string{"laundry", "cuci baju", "londri"}},
	{model.TopicAddress, []string{"alamat", "lokasi", "dimana", "di mana", "maps", "jalan"}},
	{model.TopicContact, []string{"whatsapp", "kontak", "nomor", "telp", "telepon", "hubungi"}},
	{model.TopicAvailability, []string{"kamar", "tersedia", "kosong"}},
	{model.TopicPrice, []string{"harga", "biaya", "sewa", "berapa"}},
	{model.TopicFacility, []string{"fasilitas", "wifi", "kasur", "parkir", "dapur"}},
	{model.TopicRules, []string{"aturan", "peraturan", "jam malam", "tamu", "rokok"}},
	{model.TopicPayment, []string{"bayar", "bulanan", "tahunan", "deposit", "transfer"}},
	{model.TopicExtraFee, []string{"tambahan", "denda", "listrik"}},
	{model.TopicKostType, []string{"putra", "putri", "campur", "tipe kost", "jenis kost"}},
}

// LocalClassify decides scope from keywords only. It is a pure function of
// question and is used when the generative backend is unavailable.
func LocalClassify(question string) model.GuardrailResult {
	s := strings.ToLower(question)

	for _, kw := range denyKeywords {
		if strings.Contains(s, kw) {
			return model.GuardrailResult{InScope: false, Intent: model.TopicOther}
		}
	}

	for _, entry := range topicTable {
		for _, kw := range entry.keywords {
			if strings.Contains(s, kw) {
				return model.GuardrailResult{InScope: true, Intent: entry.topic}
			}
		}
	}

	return model.GuardrailResult{InScope: true, Intent: model.TopicOther}
}
