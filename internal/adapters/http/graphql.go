package http

import (
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/sitescout/internal/catalog"
	"github.com/samirrijal/sitescout/internal/core/domain"
)

// categoryCount flattens the per-category summary maps for GraphQL, which
// has no map type.
type categoryCount struct {
	Category  domain.Category `json:"category"`
	Count     int             `json:"count"`
	NearestKm *float64        `json:"nearest_km"`
}

func summaryCounts(s domain.Summary) []categoryCount {
	out := make([]categoryCount, 0, len(s.Counts))
	for cat, n := range s.Counts {
		cc := categoryCount{Category: cat, Count: n}
		if km, ok := s.NearestKm[cat]; ok {
			cc.NearestKm = &km
		}
		out = append(out, cc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// buildSchema creates the GraphQL schema wired to the scout service.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	featureType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Feature",
		Fields: graphql.Fields{
			"category":         &graphql.Field{Type: graphql.String},
			"name":             &graphql.Field{Type: graphql.String},
			"owner":            &graphql.Field{Type: graphql.String},
			"type":             &graphql.Field{Type: graphql.String},
			"status":           &graphql.Field{Type: graphql.String},
			"voltage_kv":       &graphql.Field{Type: graphql.Float},
			"capacity_mw":      &graphql.Field{Type: graphql.Float},
			"primary_source":   &graphql.Field{Type: graphql.String},
			"line_count":       &graphql.Field{Type: graphql.Int},
			"inside":           &graphql.Field{Type: graphql.Boolean},
			"distance_km":      &graphql.Field{Type: graphql.Float},
			"distance_mi":      &graphql.Field{Type: graphql.Float},
			"nearest_point":    &graphql.Field{Type: coordinateType},
			"direction":        &graphql.Field{Type: graphql.String},
			"resolve_mode":     &graphql.Field{Type: graphql.String},
			"starred":          &graphql.Field{Type: graphql.Boolean},
			"verification_url": &graphql.Field{Type: graphql.String},
			"source":           &graphql.Field{Type: graphql.String},
		},
	})

	categoryResultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CategoryResult",
		Fields: graphql.Fields{
			"category": &graphql.Field{Type: graphql.String},
			"label":    &graphql.Field{Type: graphql.String},
			"features": &graphql.Field{Type: graphql.NewList(featureType)},
			"error":    &graphql.Field{Type: graphql.String},
		},
	})

	broadbandType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Broadband",
		Fields: graphql.Fields{
			"has_fiber":         &graphql.Field{Type: graphql.Boolean},
			"providers":         &graphql.Field{Type: graphql.NewList(graphql.String)},
			"max_download_mbps": &graphql.Field{Type: graphql.Float},
			"max_upload_mbps":   &graphql.Field{Type: graphql.Float},
			"technology_types":  &graphql.Field{Type: graphql.NewList(graphql.String)},
			"error":             &graphql.Field{Type: graphql.String},
		},
	})

	cityLimitsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CityLimits",
		Fields: graphql.Fields{
			"in_city":      &graphql.Field{Type: graphql.Boolean},
			"city_name":    &graphql.Field{Type: graphql.String},
			"state":        &graphql.Field{Type: graphql.String},
			"county":       &graphql.Field{Type: graphql.String},
			"county_fips":  &graphql.Field{Type: graphql.String},
			"census_tract": &graphql.Field{Type: graphql.String},
			"error":        &graphql.Field{Type: graphql.String},
		},
	})

	attainmentType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Attainment",
		Fields: graphql.Fields{
			"attainment":               &graphql.Field{Type: graphql.Boolean},
			"county":                   &graphql.Field{Type: graphql.String},
			"county_fips":              &graphql.Field{Type: graphql.String},
			"pollutants_nonattainment": &graphql.Field{Type: graphql.NewList(graphql.String)},
			"error":                    &graphql.Field{Type: graphql.String},
		},
	})

	categoryCountType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CategoryCount",
		Fields: graphql.Fields{
			"category":   &graphql.Field{Type: graphql.String},
			"count":      &graphql.Field{Type: graphql.Int},
			"nearest_km": &graphql.Field{Type: graphql.Float},
		},
	})

	summaryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Summary",
		Fields: graphql.Fields{
			"connectivity_score": &graphql.Field{Type: graphql.Int},
			"regulatory_flags":   &graphql.Field{Type: graphql.NewList(graphql.String)},
			"categories": &graphql.Field{
				Type: graphql.NewList(categoryCountType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					s, ok := p.Source.(domain.Summary)
					if !ok {
						return nil, nil
					}
					return summaryCounts(s), nil
				},
			},
		},
	})

	queryInfoType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ScoutQuery",
		Fields: graphql.Fields{
			"coordinates": &graphql.Field{Type: coordinateType},
			"radius_km":   &graphql.Field{Type: graphql.Float},
			"timestamp": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					q, ok := p.Source.(domain.Query)
					if !ok {
						return nil, nil
					}
					return q.Timestamp.UTC().Format(time.RFC3339), nil
				},
			},
		},
	})

	reportType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Report",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"query":       &graphql.Field{Type: queryInfoType},
			"sections":    &graphql.Field{Type: graphql.NewList(categoryResultType)},
			"broadband":   &graphql.Field{Type: broadbandType},
			"city_limits": &graphql.Field{Type: cityLimitsType},
			"attainment":  &graphql.Field{Type: attainmentType},
			"summary":     &graphql.Field{Type: summaryType},
		},
	})

	categoryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Category",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"label":    &graphql.Field{Type: graphql.String},
			"source":   &graphql.Field{Type: graphql.String},
			"geometry": &graphql.Field{Type: graphql.String},
			"where": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					d, ok := p.Source.(catalog.Definition)
					if !ok {
						return nil, nil
					}
					return d.WhereClause(), nil
				},
			},
		},
	})

	coordArgs := func() graphql.FieldConfigArgument {
		return graphql.FieldConfigArgument{
			"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
			"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
			"radius": &graphql.ArgumentConfig{Type: graphql.Float},
		}
	}
	queryFromArgs := func(args map[string]interface{}) (domain.Query, error) {
		radius := deps.DefaultRadiusKm
		if r, ok := args["radius"].(float64); ok {
			radius = r
		}
		return deps.newQuery(args["lat"].(float64), args["lon"].(float64), radius)
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"categories": &graphql.Field{
				Type:        graphql.NewList(categoryType),
				Description: "Enabled infrastructure categories",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Scout.Catalog().List(), nil
				},
			},
			"scout": &graphql.Field{
				Type:        reportType,
				Description: "Full site report around a coordinate",
				Args:        coordArgs(),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					q, err := queryFromArgs(p.Args)
					if err != nil {
						return nil, err
					}
					return deps.Scout.Scout(p.Context, q)
				},
			},
			"scoutCategory": &graphql.Field{
				Type:        categoryResultType,
				Description: "Nearest features of one category around a coordinate",
				Args: func() graphql.FieldConfigArgument {
					args := coordArgs()
					args["category"] = &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)}
					return args
				}(),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					q, err := queryFromArgs(p.Args)
					if err != nil {
						return nil, err
					}
					return deps.Scout.ScoutCategory(p.Context, q, domain.Category(p.Args["category"].(string)))
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
		// programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil || req.Query == "" {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})
		if result.HasErrors() && result.Data == nil {
			return c.Status(fiber.StatusBadRequest).JSON(result)
		}
		return c.JSON(result)
	}
}
