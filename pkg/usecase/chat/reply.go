package chat

// Fixed replies
const (
	// RedirectReply answers out of scope questions
	RedirectReply = "Maaf, aku cuma bisa bantu pertanyaan seputar kost ini: alamat, kamar tersedia, harga, fasilitas, aturan, pembayaran, biaya tambahan, kontak, tipe kost, dan laundry terdekat."

	// NotUnderstoodReply is used when the generative tiers are disabled
	NotUnderstoodReply = "Aku belum paham. Coba tanya tentang kamar kosong, harga, booking survey, atau komplain ya."

	// PriceHintReply answers price questions when no room is available
	PriceHintReply = "Harga tergantung tipe: single biasanya lebih murah dari sharing. Tulis: 'kamar kosong sharing' biar aku list plus harganya."

	// ApologyReply is used when the generative backend fails
	ApologyReply = "Maaf, aku lagi nggak bisa jawab sekarang. Coba lagi sebentar lagi ya."

	// NoContextReply is the deterministic answer when no data is stored
	NoContextReply = "Data kost belum tersedia. Silakan hubungi pemilik kost ya."
)

// Tiers reported in logs and metrics
const (
	TierGuardrail  = "guardrail"
	TierGrounded   = "grounded"
	TierTool       = "tool"
	TierGenerative = "generative"
	TierDefault    = "default"
)

// Reply is the answer to one message
type Reply struct {
	Intent string `json:"intent"`
	Reply  string `json:"reply"`
}
