package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/samirrijal/groupride/internal/core/domain"
	"github.com/samirrijal/groupride/internal/core/ports"
	"github.com/samirrijal/groupride/internal/pkg/shortid"
)

const (
	rideIDLength         = 8
	organizerTokenLength = 24
)

// CreateRideInput is what an organizer supplies for a new ride.
type CreateRideInput struct {
	Name       string
	Date       string
	Categories []string
}

// CreatedRide is returned once, at creation. The PIN is never readable again.
type CreatedRide struct {
	Ride           *domain.Ride
	OrganizerToken string
	PIN            string
}

// RideService handles ride lifecycle and organizer access.
type RideService struct {
	rides  ports.RideRepository
	events ports.EventPublisher
}

// NewRideService creates a new RideService. events may be nil.
func NewRideService(rides ports.RideRepository, events ports.EventPublisher) *RideService {
	return &RideService{rides: rides, events: events}
}

// Create creates a ride in the collecting state with a fresh organizer token and PIN.
func (s *RideService) Create(ctx context.Context, in CreateRideInput) (*CreatedRide, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: ride name is required", domain.ErrInvalidInput)
	}

	categories := cleanCategories(in.Categories)
	if len(categories) == 0 {
		categories = append([]string(nil), domain.DefaultCategories...)
	}

	id, err := shortid.New(rideIDLength)
	if err != nil {
		return nil, err
	}
	token, err := shortid.New(organizerTokenLength)
	if err != nil {
		return nil, err
	}
	pin, err := shortid.PIN()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash pin: %w", err)
	}

	ride := &domain.Ride{
		ID:                id,
		Name:              name,
		Date:              strings.TrimSpace(in.Date),
		OrganizerToken:    token,
		PINHash:           string(hash),
		Status:            domain.RideCollecting,
		Categories:        categories,
		SelectedWaypoints: []domain.RouteWaypoint{},
	}
	if err := s.rides.Create(ctx, ride); err != nil {
		return nil, fmt.Errorf("create ride: %w", err)
	}

	publish(ctx, s.events, domain.NewRideEvent(domain.EventRideCreated, ride.ID, map[string]any{"name": ride.Name}))
	return &CreatedRide{Ride: ride, OrganizerToken: token, PIN: pin}, nil
}

// Get returns a ride by id.
func (s *RideService) Get(ctx context.Context, id string) (*domain.Ride, error) {
	return s.rides.GetByID(ctx, id)
}

// VerifyPIN exchanges the ride PIN for the organizer token.
func (s *RideService) VerifyPIN(ctx context.Context, id, pin string) (string, error) {
	if strings.TrimSpace(pin) == "" {
		return "", fmt.Errorf("%w: pin is required", domain.ErrInvalidInput)
	}
	ride, err := s.rides.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(ride.PINHash), []byte(pin)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", fmt.Errorf("%w: invalid pin", domain.ErrUnauthorized)
		}
		return "", fmt.Errorf("compare pin: %w", err)
	}
	return ride.OrganizerToken, nil
}

// Authorize loads a ride and checks the organizer token.
func (s *RideService) Authorize(ctx context.Context, id, token string) (*domain.Ride, error) {
	ride, err := s.rides.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeOrganizer(ride, token); err != nil {
		return nil, err
	}
	return ride, nil
}

// SetWaypoints replaces the organizer's stops. Malformed entries are dropped
// rather than rejected; the stored list is returned.
func (s *RideService) SetWaypoints(ctx context.Context, id, token string, waypoints []domain.RouteWaypoint) ([]domain.RouteWaypoint, error) {
	if _, err := s.Authorize(ctx, id, token); err != nil {
		return nil, err
	}

	valid := sanitizeWaypoints(waypoints)
	if dropped := len(waypoints) - len(valid); dropped > 0 {
		slog.InfoContext(ctx, "dropped invalid waypoints", "ride_id", id, "dropped", dropped)
	}
	if err := s.rides.SetWaypoints(ctx, id, valid); err != nil {
		return nil, fmt.Errorf("save waypoints: %w", err)
	}

	publish(ctx, s.events, domain.NewRideEvent(domain.EventWaypointsUpdated, id, map[string]any{"count": len(valid)}))
	return valid, nil
}

func cleanCategories(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// sanitizeWaypoints keeps waypoints that have an id, name, category and a valid coordinate.
func sanitizeWaypoints(in []domain.RouteWaypoint) []domain.RouteWaypoint {
	out := make([]domain.RouteWaypoint, 0, len(in))
	for _, w := range in {
		if strings.TrimSpace(w.ID) == "" || strings.TrimSpace(w.Name) == "" || strings.TrimSpace(w.Category) == "" {
			continue
		}
		if w.Point().Validate() != nil {
			continue
		}
		out = append(out, w)
	}
	return out
}

// publish sends an event best-effort; the request never fails because of it.
func publish(ctx context.Context, events ports.EventPublisher, ev domain.RideEvent) {
	if events == nil {
		return
	}
	if err := events.PublishRideEvent(ctx, ev); err != nil {
		slog.WarnContext(ctx, "publish ride event", "type", ev.Type, "ride_id", ev.RideID, "error", err)
	}
}
