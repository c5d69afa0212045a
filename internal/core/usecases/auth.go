package usecases

import (
	"crypto/subtle"

	"github.com/samirrijal/groupride/internal/core/domain"
)

// authorizeOrganizer checks token against the ride's organizer token.
// A missing token is unauthorized; a wrong one is forbidden.
func authorizeOrganizer(ride *domain.Ride, token string) error {
	if token == "" {
		return domain.ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(ride.OrganizerToken)) != 1 {
		return domain.ErrForbidden
	}
	return nil
}
