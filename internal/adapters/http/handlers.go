package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/sitescout/internal/catalog"
	"github.com/samirrijal/sitescout/internal/core/domain"
	"github.com/samirrijal/sitescout/internal/report"
)

var errRadiusTooLarge = errors.New("radius exceeds the maximum")

// newQuery builds a validated scout query, enforcing the API's radius cap.
func (d *Dependencies) newQuery(lat, lon, radiusKm float64) (domain.Query, error) {
	q := domain.Query{
		Coordinate: domain.Coordinate{Lat: lat, Lon: lon},
		RadiusKm:   radiusKm,
	}
	if err := q.Validate(); err != nil {
		return domain.Query{}, err
	}
	if radiusKm > d.maxRadiusKm() {
		return domain.Query{}, fmt.Errorf("%w: %g km > %g km", errRadiusTooLarge, radiusKm, d.maxRadiusKm())
	}
	return q, nil
}

// parseQuery reads lat, lon and radius from the query string. lat and lon
// are required; 0 is a valid value for both.
func parseQuery(c *fiber.Ctx, deps *Dependencies) (domain.Query, error) {
	num := func(name string) (float64, error) {
		raw := strings.TrimSpace(c.Query(name))
		if raw == "" {
			return 0, fmt.Errorf("%s is required", name)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a number", name)
		}
		return v, nil
	}

	lat, err := num("lat")
	if err != nil {
		return domain.Query{}, err
	}
	lon, err := num("lon")
	if err != nil {
		return domain.Query{}, err
	}
	radius := deps.DefaultRadiusKm
	if c.Query("radius") != "" {
		if radius, err = num("radius"); err != nil {
			return domain.Query{}, err
		}
	}
	return deps.newQuery(lat, lon, radius)
}

// CategoryView is one catalog entry as listed by the API.
type CategoryView struct {
	ID       domain.Category      `json:"id"`
	Label    string               `json:"label"`
	Source   string               `json:"source"`
	Geometry catalog.GeometryKind `json:"geometry"`
	Where    string               `json:"where"`
}

// CategoriesHandler lists the enabled infrastructure categories.
func CategoriesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		defs := deps.Scout.Catalog().List()
		out := make([]CategoryView, 0, len(defs))
		for _, d := range defs {
			out = append(out, CategoryView{
				ID:       d.ID,
				Label:    d.Label,
				Source:   d.Source,
				Geometry: d.Geometry,
				Where:    d.WhereClause(),
			})
		}
		return c.JSON(fiber.Map{"categories": out})
	}
}

// ScoutHandler runs a full scout and renders the report in the requested
// format (json, markdown or geojson).
func ScoutHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		format, err := report.ParseFormat(c.Query("format"))
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		q, err := parseQuery(c, deps)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		ctx := c.UserContext()
		rep, err := deps.Scout.Scout(ctx, q)
		if err != nil {
			return scoutError(c, err)
		}

		var buf bytes.Buffer
		if err := report.Render(&buf, rep, format, report.Options{TopN: c.QueryInt("top", deps.TopN)}); err != nil {
			return errInternal(c, err.Error())
		}

		c.Set(fiber.HeaderContentType, format.ContentType())
		c.Set("X-Report-ID", rep.ID)
		return c.Send(buf.Bytes())
	}
}

// CategoryMeta describes the category a paginated feature list belongs to.
type CategoryMeta struct {
	Category domain.Category `json:"category"`
	Label    string          `json:"label"`
	Error    string          `json:"error,omitempty"`
}

// ScoutCategoryHandler returns one category's features, nearest first,
// paginated with offset and limit.
func ScoutCategoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := parseQuery(c, deps)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		ctx := c.UserContext()
		res, err := deps.Scout.ScoutCategory(ctx, q, domain.Category(c.Params("category")))
		if err != nil {
			return scoutError(c, err)
		}

		pg := parsePagination(c)
		pg.Total = len(res.Features)
		lo, hi := pg.window()

		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{
			Data:       res.Features[lo:hi],
			Meta:       CategoryMeta{Category: res.Category, Label: res.Label, Error: res.Error},
			Pagination: pg,
		})
	}
}

func scoutError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrUnknownCategory):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrInvalidCoordinate), errors.Is(err, domain.ErrNegativeRadius):
		return errBadRequest(c, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return errTimeout(c, "scout did not finish before the request deadline")
	}
	return errInternal(c, err.Error())
}
