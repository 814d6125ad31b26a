package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/geopin/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to the session.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"latitude":  &graphql.Field{Type: graphql.Float},
			"longitude": &graphql.Field{Type: graphql.Float},
		},
	})

	viewportType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Viewport",
		Fields: graphql.Fields{
			"center":          &graphql.Field{Type: coordinateType},
			"latitude_delta":  &graphql.Field{Type: graphql.Float},
			"longitude_delta": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"min_lat": &graphql.Field{Type: graphql.Float},
			"min_lon": &graphql.Field{Type: graphql.Float},
			"max_lat": &graphql.Field{Type: graphql.Float},
			"max_lon": &graphql.Field{Type: graphql.Float},
		},
	})

	markerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Marker",
		Fields: graphql.Fields{
			"coordinates": &graphql.Field{Type: coordinateType},
			"distance_m":  &graphql.Field{Type: graphql.Float},
			"in_view":     &graphql.Field{Type: graphql.Boolean},
		},
	})

	noticeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Notice",
		Fields: graphql.Fields{
			"kind":    &graphql.Field{Type: graphql.String},
			"title":   &graphql.Field{Type: graphql.String},
			"message": &graphql.Field{Type: graphql.String},
		},
	})

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Session",
		Fields: graphql.Fields{
			"version":  &graphql.Field{Type: graphql.Int},
			"viewport": &graphql.Field{Type: viewportType},
			"bounds":   &graphql.Field{Type: boundsType},
			"draft":    &graphql.Field{Type: coordinateType},
			"markers":  &graphql.Field{Type: graphql.NewList(markerType)},
		},
	})

	commitType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CommitResult",
		Fields: graphql.Fields{
			"marker":  &graphql.Field{Type: markerType},
			"session": &graphql.Field{Type: sessionType},
			"warning": &graphql.Field{Type: noticeType},
		},
	})

	session := func() map[string]interface{} {
		return sessionMap(newSessionView(deps.Session.Snapshot()))
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"session": &graphql.Field{
				Type:        sessionType,
				Description: "Current viewport, draft coordinate and markers",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return session(), nil
				},
			},
		},
	})

	draftArgs := graphql.FieldConfigArgument{
		"value": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
	}
	draftMutation := func(set func(string) error, desc string) *graphql.Field {
		return &graphql.Field{
			Type:        sessionType,
			Description: desc,
			Args:        draftArgs,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				value, _ := p.Args["value"].(string)
				if err := set(value); err != nil {
					return nil, err
				}
				return session(), nil
			},
		}
	}

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"setDraftLatitude":  draftMutation(deps.Session.SetDraftLatitude, "Replace the draft latitude with the parsed text"),
			"setDraftLongitude": draftMutation(deps.Session.SetDraftLongitude, "Replace the draft longitude with the parsed text"),
			"addMarker": &graphql.Field{
				Type:        commitType,
				Description: "Commit the draft as a new marker",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					marker, err := deps.Session.AddMarker(p.Context)
					if err != nil && !errors.Is(err, domain.ErrStorageWrite) {
						return nil, err
					}
					st := newSessionView(deps.Session.Snapshot())
					result := map[string]interface{}{
						"marker":  markerMap(markerViews(st.Viewport, domain.MarkerCollection{marker})[0]),
						"session": sessionMap(st),
					}
					if w := warningFor(err); w != nil {
						result["warning"] = map[string]interface{}{
							"kind":    string(w.Kind),
							"title":   w.Title,
							"message": w.Message,
						}
					}
					return result, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

func coordinateMap(c domain.Coordinate) map[string]interface{} {
	return map[string]interface{}{"latitude": c.Latitude, "longitude": c.Longitude}
}

func markerMap(m MarkerView) map[string]interface{} {
	return map[string]interface{}{
		"coordinates": coordinateMap(m.Coordinates),
		"distance_m":  m.DistanceM,
		"in_view":     m.InView,
	}
}

func sessionMap(v SessionView) map[string]interface{} {
	markers := make([]interface{}, len(v.Markers))
	for i, m := range v.Markers {
		markers[i] = markerMap(m)
	}
	return map[string]interface{}{
		"version": int(v.Version),
		"viewport": map[string]interface{}{
			"center":          coordinateMap(v.Viewport.Center),
			"latitude_delta":  v.Viewport.LatitudeDelta,
			"longitude_delta": v.Viewport.LongitudeDelta,
		},
		"bounds": map[string]interface{}{
			"min_lat": v.Bounds.MinLat,
			"min_lon": v.Bounds.MinLon,
			"max_lat": v.Bounds.MaxLat,
			"max_lon": v.Bounds.MaxLon,
		},
		"draft":   coordinateMap(v.Draft),
		"markers": markers,
	}
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
