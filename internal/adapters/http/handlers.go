package http

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/groupride/internal/core/domain"
	"github.com/samirrijal/groupride/internal/core/usecases"
)

type createRideRequest struct {
	Name       string   `json:"name"`
	Date       string   `json:"date"`
	Categories []string `json:"categories"`
}

type createRideResponse struct {
	RideID         string       `json:"ride_id"`
	OrganizerToken string       `json:"organizer_token"`
	PIN            string       `json:"pin"`
	ShareURL       string       `json:"share_url"`
	OrganizerURL   string       `json:"organizer_url"`
	Ride           *domain.Ride `json:"ride"`
}

type verifyPINRequest struct {
	PIN string `json:"pin"`
}

type waypointsRequest struct {
	Waypoints []domain.RouteWaypoint `json:"waypoints"`
}

type preferenceRequest struct {
	VisitorToken     string                 `json:"visitor_token"`
	StartLocation    *domain.GeoPoint       `json:"start_location"`
	DistanceKm       float64                `json:"distance_preference_km"`
	RouteType        string                 `json:"route_type"`
	Interests        []string               `json:"interests"`
	SelectedPOIs     []domain.RouteWaypoint `json:"selected_pois"`
	TimeAvailability *domain.TimeWindow     `json:"time_availability"`
}

// organizerToken reads the organizer token from the query string or the
// X-Organizer-Token header.
func organizerToken(c *fiber.Ctx) string {
	if t := c.Query("token"); t != "" {
		return t
	}
	return c.Get("X-Organizer-Token")
}

// CreateRideHandler creates a ride and returns its one-time organizer credentials.
func CreateRideHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createRideRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		created, err := deps.Rides.Create(c.UserContext(), usecases.CreateRideInput{
			Name:       req.Name,
			Date:       req.Date,
			Categories: req.Categories,
		})
		if err != nil {
			return errFromDomain(c, err)
		}

		id := created.Ride.ID
		c.Set("Cache-Control", "no-store")
		return c.Status(fiber.StatusCreated).JSON(createRideResponse{
			RideID:         id,
			OrganizerToken: created.OrganizerToken,
			PIN:            created.PIN,
			ShareURL:       "/ride/" + id,
			OrganizerURL:   "/ride/" + id + "?org=" + created.OrganizerToken,
			Ride:           created.Ride,
		})
	}
}

// GetRideHandler returns the public view of a ride.
func GetRideHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ride, err := deps.Rides.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set("Cache-Control", "no-cache")
		return c.JSON(ride)
	}
}

// VerifyPINHandler exchanges the ride PIN for the organizer token.
func VerifyPINHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req verifyPINRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		id := c.Params("id")
		token, err := deps.Rides.VerifyPIN(c.UserContext(), id, req.PIN)
		if err != nil {
			return errFromDomain(c, err)
		}

		c.Set("Cache-Control", "no-store")
		return c.JSON(fiber.Map{
			"organizer_token": token,
			"organizer_url":   "/ride/" + id + "?org=" + token,
		})
	}
}

// SetWaypointsHandler replaces the organizer-selected stops of a ride.
func SetWaypointsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req waypointsRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		saved, err := deps.Rides.SetWaypoints(c.UserContext(), c.Params("id"), organizerToken(c), req.Waypoints)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"message": "Waypoints saved", "waypoints": saved})
	}
}

// SubmitPreferenceHandler stores or replaces one participant's preference.
func SubmitPreferenceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req preferenceRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		res, err := deps.Preferences.Submit(c.UserContext(), c.Params("id"), usecases.PreferenceInput{
			VisitorToken: strings.TrimSpace(req.VisitorToken),
			Start:        req.StartLocation,
			DistanceKm:   req.DistanceKm,
			RouteType:    req.RouteType,
			Tags:         req.Interests,
			SelectedPOIs: req.SelectedPOIs,
			TimeWindow:   req.TimeAvailability,
		})
		if err != nil {
			return errFromDomain(c, err)
		}

		msg := "Preferences submitted"
		status := fiber.StatusCreated
		if res.Updated {
			msg = "Preferences updated"
			status = fiber.StatusOK
		}
		return c.Status(status).JSON(fiber.Map{
			"message":       msg,
			"visitor_token": res.VisitorToken,
			"updated":       res.Updated,
		})
	}
}

// ListPreferencesHandler returns the submitted preferences to the organizer.
func ListPreferencesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 100 {
			limit = 50
		}

		prefs, total, err := deps.Preferences.List(c.UserContext(), c.Params("id"), organizerToken(c), offset, limit)
		if err != nil {
			return errFromDomain(c, err)
		}
		if prefs == nil {
			prefs = []domain.Preference{}
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		c.Set("Cache-Control", "private, no-cache")
		return c.JSON(PaginatedResponse{Data: prefs, Pagination: pg})
	}
}

// SummaryHandler returns the aggregated preferences without routing.
func SummaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sum, err := deps.Generation.Summary(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set("Cache-Control", "no-cache")
		return c.JSON(sum)
	}
}

// GenerateHandler runs route generation, or queues it when async=true.
func GenerateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		token := organizerToken(c)

		if c.QueryBool("async", false) {
			if err := deps.Generation.RequestAsync(c.UserContext(), id, token); err != nil {
				return errFromDomain(c, err)
			}
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "queued", "ride_id": id})
		}

		res, err := deps.Generation.Generate(c.UserContext(), id, token)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(res)
	}
}

// ListRoutesHandler returns the stored routes of a ride.
func ListRoutesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		routes, err := deps.Generation.Routes(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set("Cache-Control", "no-cache")
		return c.JSON(fiber.Map{"routes": routes})
	}
}

// SearchPOIsHandler performs a place search biased toward lat/lng.
func SearchPOIsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Query("q")
		if query == "" {
			return errBadRequest(c, `query parameter "q" is required`)
		}
		if len(query) > 200 {
			return errBadRequest(c, "query too long (max 200 characters)")
		}
		if c.Query("lat") == "" || c.Query("lng") == "" {
			return errBadRequest(c, `location parameters "lat" and "lng" are required`)
		}
		lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
		lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
		if errLat != nil || errLng != nil {
			return errBadRequest(c, "invalid lat/lng values")
		}
		near := domain.GeoPoint{Lat: lat, Lng: lng}

		results, err := deps.POIs.Search(c.UserContext(), query, near, c.QueryInt("limit", 5))
		if err != nil {
			return errFromDomain(c, err)
		}
		if results == nil {
			results = []domain.PlaceResult{}
		}
		return c.JSON(fiber.Map{"results": results})
	}
}
