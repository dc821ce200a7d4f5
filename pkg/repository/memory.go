package repository

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
)

// Memory keeps every record in process memory. It is used when no database is
// configured and in tests.
type Memory struct {
	mu       sync.RWMutex
	kosts    map[model.KostID]*model.Kost
	rooms    []*model.Room
	rules    map[model.KostID][]model.Rule
	schemes  map[model.KostID][]model.PaymentScheme
	nearby   map[model.KostID][]model.NearbyPlace
	tenants  []*model.Tenant
	payments []*model.Payment
	visits   []*model.Visit
	tickets  []*model.Ticket
	seq      int64
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		kosts:   make(map[model.KostID]*model.Kost),
		rules:   make(map[model.KostID][]model.Rule),
		schemes: make(map[model.KostID][]model.PaymentScheme),
		nearby:  make(map[model.KostID][]model.NearbyPlace),
		now:     time.Now,
	}
}

func (m *Memory) nextID() string {
	m.seq++
	return strconv.FormatInt(m.seq, 10)
}

func (m *Memory) Seed(ctx context.Context, s *Seed) error {
	if err := s.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range s.Kosts {
		k := k
		m.kosts[k.ID] = &k
	}

	byCode := make(map[string]int, len(m.rooms))
	for i, r := range m.rooms {
		byCode[r.Code] = i
	}
	for _, r := range s.Rooms {
		r := r
		if i, ok := byCode[r.Code]; ok {
			r.ID = m.rooms[i].ID
			m.rooms[i] = &r
			continue
		}
		if r.ID == "" {
			r.ID = model.RoomID(m.nextID())
		}
		byCode[r.Code] = len(m.rooms)
		m.rooms = append(m.rooms, &r)
	}

	for _, r := range s.Rules {
		m.rules[r.KostID] = upsert(m.rules[r.KostID], r.Rule, func(v model.Rule) bool {
			return v.Title == r.Title
		})
	}
	for _, p := range s.PaymentSchemes {
		m.schemes[p.KostID] = upsert(m.schemes[p.KostID], p.PaymentScheme, func(v model.PaymentScheme) bool {
			return v.Scheme == p.Scheme
		})
	}
	for _, p := range s.NearbyPlaces {
		m.nearby[p.KostID] = upsert(m.nearby[p.KostID], p.NearbyPlace, func(v model.NearbyPlace) bool {
			return v.Name == p.Name
		})
	}

	for _, t := range s.Tenants {
		t := t
		m.tenants = upsert(m.tenants, &t, func(v *model.Tenant) bool {
			return v.ID == t.ID
		})
	}
	for _, p := range s.Payments {
		p := p
		m.payments = upsert(m.payments, &p, func(v *model.Payment) bool {
			return v.TenantID == p.TenantID && v.Month.Equal(p.Month)
		})
	}

	return nil
}

func (m *Memory) ListAvailableRooms(ctx context.Context, roomType *model.RoomType) ([]*model.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rooms []*model.Room
	for _, r := range m.rooms {
		if r.Status != model.RoomAvailable {
			continue
		}
		if roomType != nil && r.Type != *roomType {
			continue
		}
		copied := *r
		rooms = append(rooms, &copied)
	}

	sort.SliceStable(rooms, func(i, j int) bool {
		return rooms[i].Price < rooms[j].Price
	})
	return rooms, nil
}

func (m *Memory) FindRoomByCode(ctx context.Context, code string) (*model.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.rooms {
		if r.Code == code {
			copied := *r
			return &copied, nil
		}
	}
	return nil, goerr.Wrap(model.ErrNotFound, "room not found", goerr.V("code", code))
}

func (m *Memory) CreateVisit(ctx context.Context, visit *model.Visit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	visit.ID = model.VisitID(m.nextID())
	if visit.CreatedAt.IsZero() {
		visit.CreatedAt = m.now()
	}
	copied := *visit
	m.visits = append(m.visits, &copied)
	return nil
}

func (m *Memory) CreateTicket(ctx context.Context, ticket *model.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ticket.ID = model.TicketID(m.nextID())
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = m.now()
	}
	copied := *ticket
	m.tickets = append(m.tickets, &copied)
	return nil
}

func (m *Memory) FindTenantByPhone(ctx context.Context, phone string) (*model.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.tenants {
		if t.Phone == phone {
			copied := *t
			return &copied, nil
		}
	}
	return nil, goerr.Wrap(model.ErrNotFound, "tenant not found", goerr.V("phone", phone))
}

func (m *Memory) ListUnpaidPayments(ctx context.Context, tenantID model.TenantID) ([]*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var payments []*model.Payment
	for _, p := range m.payments {
		if p.TenantID == tenantID && p.Status == model.PaymentUnpaid {
			copied := *p
			payments = append(payments, &copied)
		}
	}

	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].Month.Before(payments[j].Month)
	})
	return payments, nil
}

func (m *Memory) FetchContext(ctx context.Context, topic model.Topic, kostID model.KostID) (*model.ContextBundle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bundle := &model.ContextBundle{}
	if k, ok := m.kosts[kostID]; ok {
		copied := *k
		bundle.Kost = &copied
	}

	switch {
	case model.TopicNeedsRooms(topic):
		for _, r := range m.rooms {
			if r.KostID == kostID {
				bundle.Rooms = append(bundle.Rooms, *r)
			}
		}
		sortContextRooms(bundle.Rooms)

	case topic == model.TopicRules:
		bundle.Rules = append(bundle.Rules, m.rules[kostID]...)

	case topic == model.TopicPayment:
		bundle.PaymentSchemes = append(bundle.PaymentSchemes, m.schemes[kostID]...)

	case topic == model.TopicLaundry:
		var places []model.NearbyPlace
		for _, p := range m.nearby[kostID] {
			if p.Category == model.CategoryLaundry {
				places = append(places, p)
			}
		}
		bundle.NearbyPlaces = nearestPlaces(places)
	}

	return bundle, nil
}

// Visits returns a copy of stored visit requests
func (m *Memory) Visits() []model.Visit {
	m.mu.RLock()
	defer m.mu.RUnlock()

	visits := make([]model.Visit, len(m.visits))
	for i, v := range m.visits {
		visits[i] = *v
	}
	return visits
}

// Tickets returns a copy of stored tickets
func (m *Memory) Tickets() []model.Ticket {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tickets := make([]model.Ticket, len(m.tickets))
	for i, t := range m.tickets {
		tickets[i] = *t
	}
	return tickets
}

func (m *Memory) Close() error {
	return nil
}

// upsert replaces the first element matching same with v, or appends v
func upsert[T any](list []T, v T, same func(T) bool) []T {
	for i := range list {
		if same(list[i]) {
			list[i] = v
			return list
		}
	}
	return append(list, v)
}

// sortContextRooms puts available rooms first, then orders by code
func sortContextRooms(rooms []model.Room) {
	sort.SliceStable(rooms, func(i, j int) bool {
		ai := rooms[i].Status == model.RoomAvailable
		aj := rooms[j].Status == model.RoomAvailable
		if ai != aj {
			return ai
		}
		return rooms[i].Code < rooms[j].Code
	})
}

// nearestPlaces orders places by distance with unknown distances last and
// keeps at most model.NearbyLimit of them
func nearestPlaces(places []model.NearbyPlace) []model.NearbyPlace {
	sort.SliceStable(places, func(i, j int) bool {
		di, dj := places[i].DistanceM, places[j].DistanceM
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return *di < *dj
		}
	})
	if len(places) > model.NearbyLimit {
		places = places[:model.NearbyLimit]
	}
	return places
}
