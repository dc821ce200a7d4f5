package repository

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collectionKosts          = "kosts"
	collectionRooms          = "rooms"
	collectionRules          = "rules"
	collectionPaymentSchemes = "payment_schemes"
	collectionNearbyPlaces   = "nearby_places"
	collectionTenants        = "tenants"
	collectionPayments       = "payments"
	collectionTickets        = "tickets"
	collectionVisits         = "visits"
)

// Firestore stores records in Cloud Firestore. Rules, payment schemes and
// nearby places are subcollections of their kost document and payments are a
// subcollection of the tenant document.
type Firestore struct {
	client *firestore.Client
	now    func() time.Time
}

// NewFirestore creates a new Firestore repository
func NewFirestore(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(model.ErrConfiguration, "failed to create firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID),
			goerr.V("error", err.Error()))
	}

	return &Firestore{client: client, now: time.Now}, nil
}

func (r *Firestore) Close() error {
	return r.client.Close()
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func (r *Firestore) rooms(ctx context.Context, q firestore.Query) ([]*model.Room, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	var rooms []*model.Room
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate rooms")
		}

		var room model.Room
		if err := doc.DataTo(&room); err != nil {
			return nil, goerr.Wrap(err, "failed to decode room", goerr.V("doc_id", doc.Ref.ID))
		}
		room.ID = model.RoomID(doc.Ref.ID)
		rooms = append(rooms, &room)
	}
	return rooms, nil
}

func (r *Firestore) ListAvailableRooms(ctx context.Context, roomType *model.RoomType) ([]*model.Room, error) {
	q := r.client.Collection(collectionRooms).Where("status", "==", string(model.RoomAvailable))
	if roomType != nil {
		q = q.Where("type", "==", string(*roomType))
	}
	return r.rooms(ctx, q.OrderBy("price", firestore.Asc))
}

func (r *Firestore) FindRoomByCode(ctx context.Context, code string) (*model.Room, error) {
	rooms, err := r.rooms(ctx, r.client.Collection(collectionRooms).Where("code", "==", code).Limit(1))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query room", goerr.V("code", code))
	}
	if len(rooms) == 0 {
		return nil, goerr.Wrap(model.ErrNotFound, "room not found", goerr.V("code", code))
	}
	return rooms[0], nil
}

func (r *Firestore) CreateVisit(ctx context.Context, visit *model.Visit) error {
	if visit.CreatedAt.IsZero() {
		visit.CreatedAt = r.now()
	}

	ref := r.client.Collection(collectionVisits).NewDoc()
	if _, err := ref.Create(ctx, visit); err != nil {
		return goerr.Wrap(err, "failed to create visit request", goerr.V("phone", visit.Phone))
	}
	visit.ID = model.VisitID(ref.ID)
	return nil
}

func (r *Firestore) CreateTicket(ctx context.Context, ticket *model.Ticket) error {
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = r.now()
	}

	ref := r.client.Collection(collectionTickets).NewDoc()
	if _, err := ref.Create(ctx, ticket); err != nil {
		return goerr.Wrap(err, "failed to create ticket", goerr.V("room_code", ticket.RoomCode))
	}
	ticket.ID = model.TicketID(ref.ID)
	return nil
}

func (r *Firestore) FindTenantByPhone(ctx context.Context, phone string) (*model.Tenant, error) {
	iter := r.client.Collection(collectionTenants).Where("phone", "==", phone).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, goerr.Wrap(model.ErrNotFound, "tenant not found", goerr.V("phone", phone))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query tenant", goerr.V("phone", phone))
	}

	var tenant model.Tenant
	if err := doc.DataTo(&tenant); err != nil {
		return nil, goerr.Wrap(err, "failed to decode tenant", goerr.V("doc_id", doc.Ref.ID))
	}
	tenant.ID = model.TenantID(doc.Ref.ID)
	return &tenant, nil
}

func (r *Firestore) ListUnpaidPayments(ctx context.Context, tenantID model.TenantID) ([]*model.Payment, error) {
	iter := r.client.Collection(collectionTenants).Doc(string(tenantID)).Collection(collectionPayments).
		Where("status", "==", string(model.PaymentUnpaid)).
		OrderBy("month", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var payments []*model.Payment
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate payments", goerr.V("tenant_id", tenantID))
		}

		var p model.Payment
		if err := doc.DataTo(&p); err != nil {
			return nil, goerr.Wrap(err, "failed to decode payment", goerr.V("doc_id", doc.Ref.ID))
		}
		payments = append(payments, &p)
	}
	return payments, nil
}

func (r *Firestore) FetchContext(ctx context.Context, topic model.Topic, kostID model.KostID) (*model.ContextBundle, error) {
	bundle := &model.ContextBundle{}
	kostRef := r.client.Collection(collectionKosts).Doc(string(kostID))

	doc, err := kostRef.Get(ctx)
	switch {
	case isNotFound(err):
	case err != nil:
		return nil, goerr.Wrap(err, "failed to get kost", goerr.V("kost_id", kostID))
	default:
		var k model.Kost
		if err := doc.DataTo(&k); err != nil {
			return nil, goerr.Wrap(err, "failed to decode kost", goerr.V("kost_id", kostID))
		}
		k.ID = kostID
		bundle.Kost = &k
	}

	switch {
	case model.TopicNeedsRooms(topic):
		rooms, err := r.rooms(ctx, r.client.Collection(collectionRooms).Where("kost_id", "==", string(kostID)))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to query rooms", goerr.V("kost_id", kostID))
		}
		for _, room := range rooms {
			bundle.Rooms = append(bundle.Rooms, *room)
		}
		sortContextRooms(bundle.Rooms)

	case topic == model.TopicRules:
		if err := collect(ctx, kostRef.Collection(collectionRules).OrderBy("title", firestore.Asc), &bundle.Rules); err != nil {
			return nil, goerr.Wrap(err, "failed to query rules", goerr.V("kost_id", kostID))
		}

	case topic == model.TopicPayment:
		if err := collect(ctx, kostRef.Collection(collectionPaymentSchemes).OrderBy("scheme", firestore.Asc), &bundle.PaymentSchemes); err != nil {
			return nil, goerr.Wrap(err, "failed to query payment schemes", goerr.V("kost_id", kostID))
		}

	case topic == model.TopicLaundry:
		var places []model.NearbyPlace
		if err := collect(ctx, kostRef.Collection(collectionNearbyPlaces).Where("category", "==", model.CategoryLaundry), &places); err != nil {
			return nil, goerr.Wrap(err, "failed to query nearby places", goerr.V("kost_id", kostID))
		}
		bundle.NearbyPlaces = nearestPlaces(places)
	}

	return bundle, nil
}

// collect decodes every document of q into out
func collect[T any](ctx context.Context, q firestore.Query, out *[]T) error {
	iter := q.Documents(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}

		var v T
		if err := doc.DataTo(&v); err != nil {
			return goerr.Wrap(err, "failed to decode document", goerr.V("doc_id", doc.Ref.ID))
		}
		*out = append(*out, v)
	}
}

func (r *Firestore) Seed(ctx context.Context, seed *Seed) error {
	if err := seed.Validate(); err != nil {
		return err
	}

	for _, k := range seed.Kosts {
		if _, err := r.client.Collection(collectionKosts).Doc(string(k.ID)).Set(ctx, k); err != nil {
			return goerr.Wrap(err, "failed to seed kost", goerr.V("kost_id", k.ID))
		}
	}

	for _, room := range seed.Rooms {
		// Room documents are keyed by code so reseeding replaces them
		if _, err := r.client.Collection(collectionRooms).Doc(room.Code).Set(ctx, room); err != nil {
			return goerr.Wrap(err, "failed to seed room", goerr.V("code", room.Code))
		}
	}

	for _, rule := range seed.Rules {
		ref := r.client.Collection(collectionKosts).Doc(string(rule.KostID)).Collection(collectionRules).Doc(rule.Title)
		if _, err := ref.Set(ctx, rule.Rule); err != nil {
			return goerr.Wrap(err, "failed to seed rule", goerr.V("title", rule.Title))
		}
	}

	for _, p := range seed.PaymentSchemes {
		ref := r.client.Collection(collectionKosts).Doc(string(p.KostID)).Collection(collectionPaymentSchemes).Doc(p.Scheme)
		if _, err := ref.Set(ctx, p.PaymentScheme); err != nil {
			return goerr.Wrap(err, "failed to seed payment scheme", goerr.V("scheme", p.Scheme))
		}
	}

	for _, p := range seed.NearbyPlaces {
		ref := r.client.Collection(collectionKosts).Doc(string(p.KostID)).Collection(collectionNearbyPlaces).Doc(p.Name)
		if _, err := ref.Set(ctx, p.NearbyPlace); err != nil {
			return goerr.Wrap(err, "failed to seed nearby place", goerr.V("name", p.Name))
		}
	}

	for _, t := range seed.Tenants {
		if _, err := r.client.Collection(collectionTenants).Doc(string(t.ID)).Set(ctx, t); err != nil {
			return goerr.Wrap(err, "failed to seed tenant", goerr.V("tenant_id", t.ID))
		}
	}

	for _, p := range seed.Payments {
		ref := r.client.Collection(collectionTenants).Doc(string(p.TenantID)).Collection(collectionPayments).Doc(p.Month.Format(model.DateLayout))
		if _, err := ref.Set(ctx, p); err != nil {
			return goerr.Wrap(err, "failed to seed payment", goerr.V("tenant_id", p.TenantID))
		}
	}

	return nil
}
