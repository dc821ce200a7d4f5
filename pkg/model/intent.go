package model

// Intent labels produced by the intent classifier
const (
	IntentCheckAvailability = "check_availability"
	IntentAskPrice          = "ask_price"
	IntentBookVisit         = "book_visit"
	IntentCreateTicket      = "create_ticket"
	IntentCheckUnpaid       = "check_unpaid"
	IntentAskFacilities     = "ask_facilities"
	IntentAskLocation       = "ask_location"
	IntentGeneral           = "general"
	IntentUnknown           = "unknown"
	IntentOutOfScope        = "out_of_scope"
)

// IntentResult is the top label of the intent classifier with its confidence in [0, 1]
type IntentResult struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}
