package http

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/graphql-go/graphql"

	"github.com/chalkin/chalkin/internal/core/domain"
	"github.com/chalkin/chalkin/internal/core/usecases"
	"github.com/chalkin/chalkin/internal/pkg/shapetrack"
)

type gqlCtxKey struct{}

func gqlUser(ctx context.Context) (string, error) {
	id, _ := ctx.Value(gqlCtxKey{}).(string)
	if id == "" {
		return "", domain.ErrUnauthorized
	}
	return id, nil
}

// convertArgs are shared by the convert query and the startExport mutation.
var convertArgs = graphql.FieldConfigArgument{
	"path":            &graphql.ArgumentConfig{Type: graphql.String},
	"shape":           &graphql.ArgumentConfig{Type: graphql.String},
	"centerLat":       &graphql.ArgumentConfig{Type: graphql.Float},
	"centerLon":       &graphql.ArgumentConfig{Type: graphql.Float},
	"scaleMeters":     &graphql.ArgumentConfig{Type: graphql.Float},
	"numPoints":       &graphql.ArgumentConfig{Type: graphql.Int},
	"durationSeconds": &graphql.ArgumentConfig{Type: graphql.Int},
	"startTime":       &graphql.ArgumentConfig{Type: graphql.String, Description: "RFC 3339"},
	"name":            &graphql.ArgumentConfig{Type: graphql.String},
	"description":     &graphql.ArgumentConfig{Type: graphql.String},
}

func convertRequestFromArgs(args map[string]interface{}) (domain.ConvertRequest, error) {
	var req domain.ConvertRequest
	req.Path, _ = args["path"].(string)
	req.ShapeSlug, _ = args["shape"].(string)
	req.Name, _ = args["name"].(string)
	req.Description, _ = args["description"].(string)
	if v, ok := args["centerLat"].(float64); ok {
		req.CenterLat = &v
	}
	if v, ok := args["centerLon"].(float64); ok {
		req.CenterLon = &v
	}
	if v, ok := args["scaleMeters"].(float64); ok {
		req.ScaleMeters = &v
	}
	if v, ok := args["numPoints"].(int); ok {
		req.NumPoints = &v
	}
	if v, ok := args["durationSeconds"].(int); ok {
		req.DurationSeconds = &v
	}
	if s, ok := args["startTime"].(string); ok && s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return req, errors.New("startTime must be an RFC 3339 timestamp")
		}
		req.Start = &t
	}
	return req, nil
}

func formatTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	shapeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Shape",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"slug":        &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
			"path":        &graphql.Field{Type: graphql.String},
			"source":      &graphql.Field{Type: graphql.String},
		},
	})

	trackPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TrackPoint",
		Fields: graphql.Fields{
			"lat":  &graphql.Field{Type: graphql.Float},
			"lon":  &graphql.Field{Type: graphql.Float},
			"time": &graphql.Field{Type: graphql.String},
		},
	})

	trackType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Track",
		Fields: graphql.Fields{
			"name":           &graphql.Field{Type: graphql.String},
			"pointCount":     &graphql.Field{Type: graphql.Int, Resolve: trackField(func(rt *domain.RenderedTrack) interface{} { return rt.PointCount })},
			"distanceMeters": &graphql.Field{Type: graphql.Float, Resolve: trackField(func(rt *domain.RenderedTrack) interface{} { return rt.DistanceMeters })},
			"cached":         &graphql.Field{Type: graphql.Boolean},
			"gpx": &graphql.Field{
				Type:        graphql.String,
				Description: "GPX 1.1 document",
				Resolve:     trackField(func(rt *domain.RenderedTrack) interface{} { return string(rt.GPX) }),
			},
			"points": &graphql.Field{
				Type: graphql.NewList(trackPointType),
				Resolve: trackField(func(rt *domain.RenderedTrack) interface{} {
					out := make([]map[string]interface{}, len(rt.Track.Points))
					for i, p := range rt.Track.Points {
						out[i] = map[string]interface{}{"lat": p.Lat, "lon": p.Lon, "time": formatTime(p.Time)}
					}
					return out
				}),
			},
		},
	})

	exportType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Export",
		Fields: graphql.Fields{
			"id":               &graphql.Field{Type: graphql.String},
			"name":             &graphql.Field{Type: graphql.String},
			"status":           &graphql.Field{Type: graphql.String},
			"sessionRef":       &graphql.Field{Type: graphql.String, Resolve: exportField(func(e *domain.Export) interface{} { return e.SessionRef })},
			"stravaActivityId": &graphql.Field{Type: graphql.String, Resolve: exportField(func(e *domain.Export) interface{} { return e.StravaActivityID })},
			"error":            &graphql.Field{Type: graphql.String},
			"createdAt":        &graphql.Field{Type: graphql.String, Resolve: exportField(func(e *domain.Export) interface{} { return formatTime(e.CreatedAt) })},
			"updatedAt":        &graphql.Field{Type: graphql.String, Resolve: exportField(func(e *domain.Export) interface{} { return formatTime(e.UpdatedAt) })},
		},
	})

	stravaStatusType := graphql.NewObject(graphql.ObjectConfig{
		Name: "StravaStatus",
		Fields: graphql.Fields{
			"connected": &graphql.Field{Type: graphql.Boolean},
			"athleteId": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				if st, ok := p.Source.(*domain.StravaStatus); ok && st.Connected {
					return st.AthleteID, nil
				}
				return nil, nil
			}},
			"isExpired": &graphql.Field{Type: graphql.Boolean, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				st, _ := p.Source.(*domain.StravaStatus)
				return st != nil && st.IsExpired, nil
			}},
			"scope": &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"shapes": &graphql.Field{
				Type:        graphql.NewList(shapeType),
				Description: "List built-in and stored shapes",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Shapes.List(p.Context)
				},
			},
			"shape": &graphql.Field{
				Type:        shapeType,
				Description: "Get a shape by slug",
				Args: graphql.FieldConfigArgument{
					"slug": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Shapes.Get(p.Context, p.Args["slug"].(string))
				},
			},
			"convert": &graphql.Field{
				Type:        trackType,
				Description: "Convert a path or a named shape into a timed track",
				Args:        convertArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					req, err := convertRequestFromArgs(p.Args)
					if err != nil {
						return nil, err
					}
					return deps.Tracks.Convert(p.Context, req)
				},
			},
			"exports": &graphql.Field{
				Type:        graphql.NewList(exportType),
				Description: "The caller's Strava exports, newest first",
				Args: graphql.FieldConfigArgument{
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					user, err := gqlUser(p.Context)
					if err != nil {
						return nil, err
					}
					return deps.Exports.List(p.Context, user, p.Args["limit"].(int), p.Args["offset"].(int))
				},
			},
			"export": &graphql.Field{
				Type: exportType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					user, err := gqlUser(p.Context)
					if err != nil {
						return nil, err
					}
					return deps.Exports.Get(p.Context, user, p.Args["id"].(string))
				},
			},
			"stravaStatus": &graphql.Field{
				Type: stravaStatusType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					user, err := gqlUser(p.Context)
					if err != nil {
						return nil, err
					}
					return deps.Strava.Status(p.Context, user)
				},
			},
		},
	})

	exportArgs := graphql.FieldConfigArgument{
		"sessionRef": &graphql.ArgumentConfig{Type: graphql.String},
	}
	for k, v := range convertArgs {
		exportArgs[k] = v
	}

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"startExport": &graphql.Field{
				Type:        exportType,
				Description: "Render a track and upload it to the caller's Strava account",
				Args:        exportArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					user, err := gqlUser(p.Context)
					if err != nil {
						return nil, err
					}
					track, err := convertRequestFromArgs(p.Args)
					if err != nil {
						return nil, err
					}
					ref, _ := p.Args["sessionRef"].(string)
					return deps.Exports.Start(p.Context, user, usecases.ExportRequest{
						SessionRef: ref,
						Name:       track.Name,
						Track:      track,
					})
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

func trackField(f func(*domain.RenderedTrack) interface{}) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		rt, ok := p.Source.(*domain.RenderedTrack)
		if !ok {
			return nil, nil
		}
		return f(rt), nil
	}
}

func exportField(f func(*domain.Export) interface{}) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		switch e := p.Source.(type) {
		case *domain.Export:
			return f(e), nil
		case domain.Export:
			return f(&e), nil
		}
		return nil, nil
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

		ctx := c.UserContext()
		if user := strings.TrimSpace(c.Get(UserHeader)); user != "" {
			ctx = context.WithValue(ctx, gqlCtxKey{}, utils.CopyString(user))
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        ctx,
		})

		for _, e := range result.Errors {
			if shapetrack.IsInputError(e.OriginalError()) {
				LoggerFromCtx(ctx).Debug("graphql input error", "error", e.Message)
			}
		}
		return c.JSON(result)
	}
}
