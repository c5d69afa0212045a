package domain

import "time"

// EventType names a ride lifecycle event published to the message broker.
type EventType string

const (
	EventRideCreated         EventType = "ride.created"
	EventWaypointsUpdated    EventType = "waypoints.updated"
	EventPreferenceSubmitted EventType = "preference.submitted"
	EventGenerateRequested   EventType = "generate.requested"
	EventRoutesGenerated     EventType = "routes.generated"
	EventGenerationFailed    EventType = "generation.failed"
)

// RideEvent is the envelope published for every ride lifecycle change.
type RideEvent struct {
	Type   EventType      `json:"type"`
	RideID string         `json:"ride_id"`
	Time   time.Time      `json:"time"`
	Data   map[string]any `json:"data,omitempty"`
}

// NewRideEvent stamps an event with the current time.
func NewRideEvent(t EventType, rideID string, data map[string]any) RideEvent {
	return RideEvent{Type: t, RideID: rideID, Time: time.Now().UTC(), Data: data}
}
