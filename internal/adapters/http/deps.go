package http

import (
	"github.com/nats-io/nats.go"
	"github.com/samirrijal/groupride/internal/adapters/postgres"
	"github.com/samirrijal/groupride/internal/adapters/valkey"
	"github.com/samirrijal/groupride/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Rides       *usecases.RideService
	Preferences *usecases.PreferenceService
	Generation  *usecases.GenerationService
	POIs        *usecases.POISearchService
	NATS        *nats.Conn
	DB          *postgres.DB
	Cache       *valkey.Cache
	// AllowOrigins is the CORS allow list; empty disables CORS headers.
	AllowOrigins string
	Version      string
}
