package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/m-mizutani/goerr/v2"
	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

var (
	//go:embed schema/sqlite.sql
	sqliteSchema string

	//go:embed schema/postgres.sql
	postgresSchema string
)

// SQL stores records in SQLite or PostgreSQL through database/sql
type SQL struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// NewSQL opens the database and applies the schema
func NewSQL(ctx context.Context, driver, dsn string) (*SQL, error) {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = sqliteSchema
	case DriverPostgres:
		schema = postgresSchema
	default:
		return nil, goerr.Wrap(model.ErrConfiguration, "unsupported SQL driver", goerr.V("driver", driver))
	}
	if dsn == "" {
		return nil, goerr.Wrap(model.ErrConfiguration, "database DSN is empty", goerr.V("driver", driver))
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open database", goerr.V("driver", driver))
	}
	if driver == DriverSQLite {
		// SQLite allows a single writer
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(model.ErrConfiguration, "failed to connect database", goerr.V("driver", driver), goerr.V("error", err.Error()))
	}

	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, goerr.Wrap(err, "failed to apply schema", goerr.V("driver", driver))
		}
	}

	return &SQL{db: db, driver: driver, now: time.Now}, nil
}

// rebind converts ? placeholders to $n for PostgreSQL
func (s *SQL) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (s *SQL) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

func (s *SQL) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

func (s *SQL) Close() error {
	return s.db.Close()
}

const roomColumns = "id, kost_id, code, type, price, facilities, status"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (*model.Room, error) {
	var (
		room       model.Room
		id         int64
		facilities string
	)
	if err := row.Scan(&id, &room.KostID, &room.Code, &room.Type, &room.Price, &facilities, &room.Status); err != nil {
		return nil, err
	}
	room.ID = model.RoomID(strconv.FormatInt(id, 10))
	if facilities != "" {
		if err := json.Unmarshal([]byte(facilities), &room.Facilities); err != nil {
			return nil, goerr.Wrap(err, "invalid room facilities", goerr.V("code", room.Code))
		}
	}
	return &room, nil
}

func (s *SQL) ListAvailableRooms(ctx context.Context, roomType *model.RoomType) ([]*model.Room, error) {
	q := "SELECT " + roomColumns + " FROM room WHERE status = ?"
	args := []any{string(model.RoomAvailable)}
	if roomType != nil {
		q += " AND type = ?"
		args = append(args, string(*roomType))
	}
	q += " ORDER BY price ASC, code ASC"

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query available rooms")
	}
	defer rows.Close()

	var rooms []*model.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan room")
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate rooms")
	}
	return rooms, nil
}

func (s *SQL) FindRoomByCode(ctx context.Context, code string) (*model.Room, error) {
	room, err := scanRoom(s.queryRow(ctx, "SELECT "+roomColumns+" FROM room WHERE code = ?", code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(model.ErrNotFound, "room not found", goerr.V("code", code))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query room", goerr.V("code", code))
	}
	return room, nil
}

func (s *SQL) CreateVisit(ctx context.Context, visit *model.Visit) error {
	if visit.CreatedAt.IsZero() {
		visit.CreatedAt = s.now()
	}

	var id int64
	err := s.queryRow(ctx,
		"INSERT INTO visit_request (name, phone, preferred_date, status, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id",
		visit.Name, visit.Phone, visit.PreferredDate.Format(model.DateLayout), string(visit.Status), visit.CreatedAt.UTC().Format(time.RFC3339),
	).Scan(&id)
	if err != nil {
		return goerr.Wrap(err, "failed to insert visit request", goerr.V("phone", visit.Phone))
	}

	visit.ID = model.VisitID(strconv.FormatInt(id, 10))
	return nil
}

func (s *SQL) CreateTicket(ctx context.Context, ticket *model.Ticket) error {
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = s.now()
	}

	var id int64
	err := s.queryRow(ctx,
		"INSERT INTO ticket (room_id, room_code, description, status, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id",
		string(ticket.RoomID), ticket.RoomCode, ticket.Description, string(ticket.Status), ticket.CreatedAt.UTC().Format(time.RFC3339),
	).Scan(&id)
	if err != nil {
		return goerr.Wrap(err, "failed to insert ticket", goerr.V("room_code", ticket.RoomCode))
	}

	ticket.ID = model.TicketID(strconv.FormatInt(id, 10))
	return nil
}

func (s *SQL) FindTenantByPhone(ctx context.Context, phone string) (*model.Tenant, error) {
	var (
		tenant    model.Tenant
		startDate string
	)
	err := s.queryRow(ctx, "SELECT id, name, phone, room_code, start_date FROM tenant WHERE phone = ?", phone).
		Scan(&tenant.ID, &tenant.Name, &tenant.Phone, &tenant.RoomCode, &startDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(model.ErrNotFound, "tenant not found", goerr.V("phone", phone))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query tenant", goerr.V("phone", phone))
	}

	if startDate != "" {
		if tenant.StartDate, err = time.Parse(model.DateLayout, startDate); err != nil {
			return nil, goerr.Wrap(err, "invalid tenant start date", goerr.V("tenant_id", tenant.ID))
		}
	}
	return &tenant, nil
}

func (s *SQL) ListUnpaidPayments(ctx context.Context, tenantID model.TenantID) ([]*model.Payment, error) {
	rows, err := s.query(ctx,
		"SELECT tenant_id, month, amount, status, paid_at FROM payment WHERE tenant_id = ? AND status = ? ORDER BY month ASC",
		string(tenantID), string(model.PaymentUnpaid))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query payments", goerr.V("tenant_id", tenantID))
	}
	defer rows.Close()

	var payments []*model.Payment
	for rows.Next() {
		var (
			p      model.Payment
			month  string
			paidAt sql.NullString
		)
		if err := rows.Scan(&p.TenantID, &month, &p.Amount, &p.Status, &paidAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan payment")
		}
		if p.Month, err = time.Parse(model.DateLayout, month); err != nil {
			return nil, goerr.Wrap(err, "invalid payment month", goerr.V("month", month))
		}
		if paidAt.Valid && paidAt.String != "" {
			t, err := time.Parse(time.RFC3339, paidAt.String)
			if err != nil {
				return nil, goerr.Wrap(err, "invalid payment paid_at", goerr.V("paid_at", paidAt.String))
			}
			p.PaidAt = &t
		}
		payments = append(payments, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate payments")
	}
	return payments, nil
}

func (s *SQL) FetchContext(ctx context.Context, topic model.Topic, kostID model.KostID) (*model.ContextBundle, error) {
	bundle := &model.ContextBundle{}

	var k model.Kost
	err := s.queryRow(ctx,
		"SELECT id, name, address, whatsapp, google_maps_url, visiting_hours, kost_type FROM kost WHERE id = ?", string(kostID),
	).Scan(&k.ID, &k.Name, &k.Address, &k.WhatsApp, &k.GoogleMapsURL, &k.VisitingHours, &k.KostType)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, goerr.Wrap(err, "failed to query kost", goerr.V("kost_id", kostID))
	default:
		bundle.Kost = &k
	}

	switch {
	case model.TopicNeedsRooms(topic):
		rows, err := s.query(ctx,
			"SELECT "+roomColumns+" FROM room WHERE kost_id = ? ORDER BY CASE WHEN status = 'available' THEN 0 ELSE 1 END, code ASC",
			string(kostID))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to query rooms", goerr.V("kost_id", kostID))
		}
		defer rows.Close()
		for rows.Next() {
			room, err := scanRoom(rows)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to scan room")
			}
			bundle.Rooms = append(bundle.Rooms, *room)
		}
		if err := rows.Err(); err != nil {
			return nil, goerr.Wrap(err, "failed to iterate rooms")
		}

	case topic == model.TopicRules:
		rows, err := s.query(ctx, "SELECT title, description FROM rule WHERE kost_id = ? ORDER BY title", string(kostID))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to query rules", goerr.V("kost_id", kostID))
		}
		defer rows.Close()
		for rows.Next() {
			var r model.Rule
			if err := rows.Scan(&r.Title, &r.Description); err != nil {
				return nil, goerr.Wrap(err, "failed to scan rule")
			}
			bundle.Rules = append(bundle.Rules, r)
		}
		if err := rows.Err(); err != nil {
			return nil, goerr.Wrap(err, "failed to iterate rules")
		}

	case topic == model.TopicPayment:
		rows, err := s.query(ctx, "SELECT scheme, description FROM payment_scheme WHERE kost_id = ? ORDER BY scheme", string(kostID))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to query payment schemes", goerr.V("kost_id", kostID))
		}
		defer rows.Close()
		for rows.Next() {
			var p model.PaymentScheme
			if err := rows.Scan(&p.Scheme, &p.Description); err != nil {
				return nil, goerr.Wrap(err, "failed to scan payment scheme")
			}
			bundle.PaymentSchemes = append(bundle.PaymentSchemes, p)
		}
		if err := rows.Err(); err != nil {
			return nil, goerr.Wrap(err, "failed to iterate payment schemes")
		}

	case topic == model.TopicLaundry:
		rows, err := s.query(ctx,
			"SELECT name, category, address, distance_m, maps_url, note FROM nearby_place WHERE kost_id = ? AND category = ? "+
				"ORDER BY CASE WHEN distance_m IS NULL THEN 1 ELSE 0 END, distance_m ASC LIMIT "+strconv.Itoa(model.NearbyLimit),
			string(kostID), model.CategoryLaundry)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to query nearby places", goerr.V("kost_id", kostID))
		}
		defer rows.Close()
		for rows.Next() {
			var (
				p        model.NearbyPlace
				distance sql.NullInt64
			)
			if err := rows.Scan(&p.Name, &p.Category, &p.Address, &distance, &p.MapsURL, &p.Note); err != nil {
				return nil, goerr.Wrap(err, "failed to scan nearby place")
			}
			if distance.Valid {
				d := distance.Int64
				p.DistanceM = &d
			}
			bundle.NearbyPlaces = append(bundle.NearbyPlaces, p)
		}
		if err := rows.Err(); err != nil {
			return nil, goerr.Wrap(err, "failed to iterate nearby places")
		}
	}

	return bundle, nil
}

func (s *SQL) Seed(ctx context.Context, seed *Seed) error {
	if err := seed.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin seed transaction")
	}
	defer func() { _ = tx.Rollback() }()

	exec := func(query string, args ...any) error {
		_, err := tx.ExecContext(ctx, s.rebind(query), args...)
		return err
	}

	for _, k := range seed.Kosts {
		if err := exec(`INSERT INTO kost (id, name, address, whatsapp, google_maps_url, visiting_hours, kost_type)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET name = excluded.name, address = excluded.address, whatsapp = excluded.whatsapp,
google_maps_url = excluded.google_maps_url, visiting_hours = excluded.visiting_hours, kost_type = excluded.kost_type`,
			string(k.ID), k.Name, k.Address, k.WhatsApp, k.GoogleMapsURL, k.VisitingHours, k.KostType); err != nil {
			return goerr.Wrap(err, "failed to seed kost", goerr.V("kost_id", k.ID))
		}
	}

	for _, r := range seed.Rooms {
		facilities, err := json.Marshal(r.Facilities)
		if err != nil {
			return goerr.Wrap(err, "failed to marshal facilities", goerr.V("code", r.Code))
		}
		if r.Facilities == nil {
			facilities = []byte("{}")
		}
		if err := exec(`INSERT INTO room (kost_id, code, type, price, facilities, status) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (code) DO UPDATE SET kost_id = excluded.kost_id, type = excluded.type, price = excluded.price,
facilities = excluded.facilities, status = excluded.status`,
			string(r.KostID), r.Code, string(r.Type), r.Price, string(facilities), string(r.Status)); err != nil {
			return goerr.Wrap(err, "failed to seed room", goerr.V("code", r.Code))
		}
	}

	for _, r := range seed.Rules {
		if err := exec(`INSERT INTO rule (kost_id, title, description) VALUES (?, ?, ?)
ON CONFLICT (kost_id, title) DO UPDATE SET description = excluded.description`,
			string(r.KostID), r.Title, r.Description); err != nil {
			return goerr.Wrap(err, "failed to seed rule", goerr.V("title", r.Title))
		}
	}

	for _, p := range seed.PaymentSchemes {
		if err := exec(`INSERT INTO payment_scheme (kost_id, scheme, description) VALUES (?, ?, ?)
ON CONFLICT (kost_id, scheme) DO UPDATE SET description = excluded.description`,
			string(p.KostID), p.Scheme, p.Description); err != nil {
			return goerr.Wrap(err, "failed to seed payment scheme", goerr.V("scheme", p.Scheme))
		}
	}

	for _, p := range seed.NearbyPlaces {
		var distance sql.NullInt64
		if p.DistanceM != nil {
			distance = sql.NullInt64{Int64: *p.DistanceM, Valid: true}
		}
		if err := exec(`INSERT INTO nearby_place (kost_id, name, category, address, distance_m, maps_url, note) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (kost_id, name) DO UPDATE SET category = excluded.category, address = excluded.address,
distance_m = excluded.distance_m, maps_url = excluded.maps_url, note = excluded.note`,
			string(p.KostID), p.Name, p.Category, p.Address, distance, p.MapsURL, p.Note); err != nil {
			return goerr.Wrap(err, "failed to seed nearby place", goerr.V("name", p.Name))
		}
	}

	for _, t := range seed.Tenants {
		var startDate string
		if !t.StartDate.IsZero() {
			startDate = t.StartDate.Format(model.DateLayout)
		}
		if err := exec(`INSERT INTO tenant (id, name, phone, room_code, start_date) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET name = excluded.name, phone = excluded.phone, room_code = excluded.room_code,
start_date = excluded.start_date`,
			string(t.ID), t.Name, t.Phone, t.RoomCode, startDate); err != nil {
			return goerr.Wrap(err, "failed to seed tenant", goerr.V("tenant_id", t.ID))
		}
	}

	for _, p := range seed.Payments {
		var paidAt sql.NullString
		if p.PaidAt != nil {
			paidAt = sql.NullString{String: p.PaidAt.UTC().Format(time.RFC3339), Valid: true}
		}
		if err := exec(`INSERT INTO payment (tenant_id, month, amount, status, paid_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (tenant_id, month) DO UPDATE SET amount = excluded.amount, status = excluded.status, paid_at = excluded.paid_at`,
			string(p.TenantID), p.Month.Format(model.DateLayout), p.Amount, string(p.Status), paidAt); err != nil {
			return goerr.Wrap(err, "failed to seed payment", goerr.V("tenant_id", p.TenantID))
		}
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit seed transaction")
	}
	return nil
}
