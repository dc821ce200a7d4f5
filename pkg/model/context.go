package model

// Kost is the general information of a boarding house
type Kost struct {
	ID            KostID `json:"id" yaml:"id" firestore:"-"`
	Name          string `json:"name" yaml:"name" firestore:"name"`
	Address       string `json:"address,omitempty" yaml:"address" firestore:"address"`
	WhatsApp      string `json:"whatsapp,omitempty" yaml:"whatsapp" firestore:"whatsapp"`
	GoogleMapsURL string `json:"google_maps_url,omitempty" yaml:"google_maps_url" firestore:"google_maps_url"`
	VisitingHours string `json:"visiting_hours,omitempty" yaml:"visiting_hours" firestore:"visiting_hours"`
	KostType      string `json:"kost_type,omitempty" yaml:"kost_type" firestore:"kost_type"`
}

type Rule struct {
	Title       string `json:"title" yaml:"title" firestore:"title"`
	Description string `json:"description" yaml:"description" firestore:"description"`
}

type PaymentScheme struct {
	Scheme      string `json:"scheme" yaml:"scheme" firestore:"scheme"`
	Description string `json:"description" yaml:"description" firestore:"description"`
}

type NearbyPlace struct {
	Name      string `json:"name" yaml:"name" firestore:"name"`
	Category  string `json:"category" yaml:"category" firestore:"category"`
	Address   string `json:"address,omitempty" yaml:"address" firestore:"address"`
	DistanceM *int64 `json:"distance_m,omitempty" yaml:"distance_m" firestore:"distance_m"`
	MapsURL   string `json:"maps_url,omitempty" yaml:"maps_url" firestore:"maps_url"`
	Note      string `json:"note,omitempty" yaml:"note" firestore:"note"`
}

// ContextBundle is a read-only snapshot of records relevant to one topic.
// It is assembled by the gateway and dropped once the reply is generated.
type ContextBundle struct {
	Kost           *Kost           `json:"kost"`
	Rooms          []Room          `json:"rooms"`
	Rules          []Rule          `json:"rules"`
	PaymentSchemes []PaymentScheme `json:"payment_schemes"`
	NearbyPlaces   []NearbyPlace   `json:"nearby_places"`
}

// IsEmpty reports whether the bundle carries no data at all
func (b *ContextBundle) IsEmpty() bool {
	if b == nil {
		return true
	}
	return b.Kost == nil && len(b.Rooms) == 0 && len(b.Rules) == 0 &&
		len(b.PaymentSchemes) == 0 && len(b.NearbyPlaces) == 0
}

// CategoryLaundry is the nearby place category used for laundry questions
const CategoryLaundry = "laundry"

// NearbyLimit caps nearby places in a bundle
const NearbyLimit = 5

// TopicNeedsRooms reports whether the context for a topic includes rooms
func TopicNeedsRooms(t Topic) bool {
	switch t {
	case TopicAvailability, TopicPrice, TopicFacility, TopicExtraFee:
		return true
	}
	return false
}

// TopicHasContext reports whether a topic can be answered from a context bundle
func TopicHasContext(t Topic) bool {
	return t != TopicOther && t != ""
}
