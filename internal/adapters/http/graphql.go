package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/groupride/internal/core/domain"
)

// buildSchema creates the read-only GraphQL schema wired to our services.
// Resolvers return domain structs; fields resolve through their json tags.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	waypointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Waypoint",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"name":     &graphql.Field{Type: graphql.String},
			"category": &graphql.Field{Type: graphql.String},
			"lat":      &graphql.Field{Type: graphql.Float},
			"lng":      &graphql.Field{Type: graphql.Float},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeneratedRoute",
		Fields: graphql.Fields{
			"id":               &graphql.Field{Type: graphql.String},
			"name":             &graphql.Field{Type: graphql.String},
			"distance_km":      &graphql.Field{Type: graphql.Float},
			"elevation_gain_m": &graphql.Field{Type: graphql.Int},
			"matched_tags":     &graphql.Field{Type: graphql.NewList(graphql.String)},
			"waypoints":        &graphql.Field{Type: graphql.NewList(waypointType)},
			"polyline": &graphql.Field{
				Type:        graphql.String,
				Description: "Path encoded in the Google polyline format",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					r, ok := p.Source.(*domain.GeneratedRoute)
					if !ok {
						return nil, nil
					}
					return encodePolyline(r), nil
				},
			},
		},
	})

	rideType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Ride",
		Fields: graphql.Fields{
			"id":                 &graphql.Field{Type: graphql.String},
			"name":               &graphql.Field{Type: graphql.String},
			"date":               &graphql.Field{Type: graphql.String},
			"status":             &graphql.Field{Type: graphql.String},
			"categories":         &graphql.Field{Type: graphql.NewList(graphql.String)},
			"selected_waypoints": &graphql.Field{Type: graphql.NewList(waypointType)},
		},
	})

	categoryCountType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CategoryCount",
		Fields: graphql.Fields{
			"tag":   &graphql.Field{Type: graphql.String},
			"count": &graphql.Field{Type: graphql.Int},
		},
	})

	aggregationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Aggregation",
		Fields: graphql.Fields{
			"centroid":           &graphql.Field{Type: geoPointType},
			"target_distance_km": &graphql.Field{Type: graphql.Float},
			"dominant_shape":     &graphql.Field{Type: graphql.String},
			"ranked_categories":  &graphql.Field{Type: graphql.NewList(categoryCountType)},
		},
	})

	summaryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RideSummary",
		Fields: graphql.Fields{
			"ride_id":           &graphql.Field{Type: graphql.String},
			"status":            &graphql.Field{Type: graphql.String},
			"participant_count": &graphql.Field{Type: graphql.Int},
			"waypoint_count":    &graphql.Field{Type: graphql.Int},
			"aggregation":       &graphql.Field{Type: aggregationType},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"ride": &graphql.Field{
				Type:        rideType,
				Description: "Get a ride by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.Rides.Get(p.Context, id)
				},
			},
			"summary": &graphql.Field{
				Type:        summaryType,
				Description: "Aggregated participant preferences of a ride",
				Args: graphql.FieldConfigArgument{
					"rideId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["rideId"].(string)
					return deps.Generation.Summary(p.Context, id)
				},
			},
			"routes": &graphql.Field{
				Type:        graphql.NewList(routeType),
				Description: "Generated routes of a ride",
				Args: graphql.FieldConfigArgument{
					"rideId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["rideId"].(string)
					routes, err := deps.Generation.Routes(p.Context, id)
					if err != nil {
						return nil, err
					}
					out := make([]*domain.GeneratedRoute, 0, len(routes))
					for i := range routes {
						out = append(out, &routes[i])
					}
					return out, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
