package usecases

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/groupride/internal/core/domain"
	"github.com/samirrijal/groupride/internal/core/ports"
	"github.com/samirrijal/groupride/internal/pkg/metrics"
)

const (
	MinDistanceKm = 10
	MaxDistanceKm = 150
)

var clockRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// PreferenceInput is one participant's raw submission.
type PreferenceInput struct {
	// VisitorToken identifies a returning participant; empty for a first submission.
	VisitorToken string
	Start        *domain.GeoPoint
	DistanceKm   float64
	RouteType    string
	Tags         []string
	SelectedPOIs []domain.RouteWaypoint
	TimeWindow   *domain.TimeWindow
}

// SubmitResult tells the participant which token to keep and whether an earlier
// submission was replaced.
type SubmitResult struct {
	VisitorToken string `json:"visitor_token"`
	Updated      bool   `json:"updated"`
}

// PreferenceService accepts and lists participant preferences.
type PreferenceService struct {
	rides  ports.RideRepository
	prefs  ports.PreferenceRepository
	events ports.EventPublisher
	now    func() time.Time
}

// NewPreferenceService creates a new PreferenceService. events may be nil.
func NewPreferenceService(rides ports.RideRepository, prefs ports.PreferenceRepository, events ports.EventPublisher) *PreferenceService {
	return &PreferenceService{rides: rides, prefs: prefs, events: events, now: time.Now}
}

// Submit validates and stores a preference. A known visitor token replaces the
// earlier submission instead of adding a second one.
func (s *PreferenceService) Submit(ctx context.Context, rideID string, in PreferenceInput) (*SubmitResult, error) {
	if in.Start == nil {
		return nil, fmt.Errorf("%w: valid start location is required", domain.ErrInvalidInput)
	}
	if err := in.Start.Validate(); err != nil {
		return nil, fmt.Errorf("start location: %w", err)
	}
	if in.DistanceKm < MinDistanceKm || in.DistanceKm > MaxDistanceKm {
		return nil, fmt.Errorf("%w: distance must be between %d and %d km", domain.ErrInvalidInput, MinDistanceKm, MaxDistanceKm)
	}

	if _, err := s.rides.GetByID(ctx, rideID); err != nil {
		return nil, err
	}

	token := strings.TrimSpace(in.VisitorToken)
	if token == "" {
		token = uuid.NewString()
	}

	pref := &domain.Preference{
		ID:           uuid.NewString(),
		RideID:       rideID,
		VisitorToken: token,
		Start:        *in.Start,
		DistanceKm:   in.DistanceKm,
		RouteShape:   domain.ParseRouteShape(in.RouteType),
		Interests:    buildInterests(in.Tags, in.SelectedPOIs),
		TimeWindow:   sanitizeTimeWindow(in.TimeWindow),
		SubmittedAt:  s.now().UTC(),
	}

	updated, err := s.prefs.Upsert(ctx, pref)
	if err != nil {
		return nil, fmt.Errorf("save preference: %w", err)
	}

	kind := "insert"
	if updated {
		kind = "update"
	}
	metrics.PreferencesSubmitted.WithLabelValues(kind).Inc()
	publish(ctx, s.events, domain.NewRideEvent(domain.EventPreferenceSubmitted, rideID, map[string]any{"updated": updated}))

	return &SubmitResult{VisitorToken: token, Updated: updated}, nil
}

// List returns one page of a ride's preferences in submission order, plus the
// total count. Only the organizer may list.
func (s *PreferenceService) List(ctx context.Context, rideID, token string, offset, limit int) ([]domain.Preference, int, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, 0, err
	}
	if err := authorizeOrganizer(ride, token); err != nil {
		return nil, 0, err
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	total, err := s.prefs.CountByRide(ctx, rideID)
	if err != nil {
		return nil, 0, err
	}
	prefs, err := s.prefs.ListByRidePage(ctx, rideID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return prefs, total, nil
}

// buildInterests merges free tags and picked POIs. Duplicates from the same
// participant count once.
func buildInterests(tags []string, pois []domain.RouteWaypoint) []domain.InterestItem {
	items := make([]domain.InterestItem, 0, len(tags)+len(pois))
	seenTags := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seenTags[t] {
			continue
		}
		seenTags[t] = true
		items = append(items, domain.InterestItem{Tag: t})
	}

	seenPOIs := make(map[string]bool, len(pois))
	for _, p := range sanitizeWaypoints(pois) {
		if seenPOIs[p.ID] {
			continue
		}
		seenPOIs[p.ID] = true
		poi := p
		items = append(items, domain.InterestItem{POI: &poi})
	}
	return items
}

func sanitizeTimeWindow(w *domain.TimeWindow) *domain.TimeWindow {
	if w == nil || !clockRe.MatchString(w.EarliestStart) || !clockRe.MatchString(w.LatestEnd) {
		return nil
	}
	return &domain.TimeWindow{EarliestStart: w.EarliestStart, LatestEnd: w.LatestEnd}
}
