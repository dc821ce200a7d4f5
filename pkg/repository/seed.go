package repository

import (
	"bytes"
	_ "embed"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
	"gopkg.in/yaml.v3"
)

//go:embed seed/default.yaml
var defaultSeed []byte

type SeedRule struct {
	KostID     model.KostID `yaml:"kost_id"`
	model.Rule `yaml:",inline"`
}

type SeedPaymentScheme struct {
	KostID              model.KostID `yaml:"kost_id"`
	model.PaymentScheme `yaml:",inline"`
}

type SeedNearbyPlace struct {
	KostID            model.KostID `yaml:"kost_id"`
	model.NearbyPlace `yaml:",inline"`
}

// Seed is a set of records to load into a repository
type Seed struct {
	Kosts          []model.Kost        `yaml:"kosts"`
	Rooms          []model.Room        `yaml:"rooms"`
	Rules          []SeedRule          `yaml:"rules"`
	PaymentSchemes []SeedPaymentScheme `yaml:"payment_schemes"`
	NearbyPlaces   []SeedNearbyPlace   `yaml:"nearby_places"`
	Tenants        []model.Tenant      `yaml:"tenants"`
	Payments       []model.Payment     `yaml:"payments"`
}

// Validate checks references between seed records
func (s *Seed) Validate() error {
	kosts := make(map[model.KostID]bool, len(s.Kosts))
	for _, k := range s.Kosts {
		if k.ID == "" {
			return goerr.Wrap(model.ErrInvalidArgument, "kost id is empty", goerr.V("name", k.Name))
		}
		kosts[k.ID] = true
	}

	rooms := make(map[string]bool, len(s.Rooms))
	for _, room := range s.Rooms {
		if err := room.Validate(); err != nil {
			return goerr.Wrap(err, "invalid room in seed", goerr.V("code", room.Code))
		}
		if !kosts[room.KostID] {
			return goerr.Wrap(model.ErrInvalidArgument, "room refers to unknown kost", goerr.V("code", room.Code), goerr.V("kost_id", room.KostID))
		}
		rooms[room.Code] = true
	}

	tenants := make(map[model.TenantID]bool, len(s.Tenants))
	for _, t := range s.Tenants {
		if t.ID == "" || t.Phone == "" {
			return goerr.Wrap(model.ErrInvalidArgument, "tenant requires id and phone", goerr.V("name", t.Name))
		}
		if t.RoomCode != "" && !rooms[t.RoomCode] {
			return goerr.Wrap(model.ErrInvalidArgument, "tenant refers to unknown room", goerr.V("tenant_id", t.ID), goerr.V("room_code", t.RoomCode))
		}
		tenants[t.ID] = true
	}

	for _, p := range s.Payments {
		if !tenants[p.TenantID] {
			return goerr.Wrap(model.ErrInvalidArgument, "payment refers to unknown tenant", goerr.V("tenant_id", p.TenantID))
		}
		if p.Status != model.PaymentPaid && p.Status != model.PaymentUnpaid {
			return goerr.Wrap(model.ErrInvalidArgument, "invalid payment status", goerr.V("status", p.Status))
		}
	}

	return nil
}

// LoadSeed decodes and validates a YAML seed
func LoadSeed(r io.Reader) (*Seed, error) {
	var s Seed
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return nil, goerr.Wrap(err, "failed to decode seed")
	}
	for i := range s.Rooms {
		if s.Rooms[i].KostID == "" {
			s.Rooms[i].KostID = model.DefaultKostID
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadSeedFile reads a YAML seed from path
func LoadSeedFile(path string) (*Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(model.ErrConfiguration, "failed to open seed file", goerr.V("path", path), goerr.V("error", err.Error()))
	}
	defer f.Close()

	s, err := LoadSeed(f)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid seed file", goerr.V("path", path))
	}
	return s, nil
}

// DefaultSeed returns the bundled demo records
func DefaultSeed() *Seed {
	s, err := LoadSeed(bytes.NewReader(defaultSeed))
	if err != nil {
		panic("bundled seed is broken: " + err.Error())
	}
	return s
}
