package natsadapter

import (
	"github.com/samirrijal/groupride/internal/core/domain"
)

const (
	rideSubjectPrefix = "groupride.ride."
	generateSubject   = "groupride.generate.requested"
)

// RideSubject returns the subject an event is published on:
// groupride.ride.<ride id>.<event type>.
func RideSubject(ev domain.RideEvent) string {
	return rideSubjectPrefix + ev.RideID + "." + string(ev.Type)
}

// RideWildcard matches every event of one ride.
func RideWildcard(rideID string) string {
	return rideSubjectPrefix + rideID + ".>"
}
