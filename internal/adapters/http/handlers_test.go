package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/sitescout/internal/adapters/http"
	"github.com/samirrijal/sitescout/internal/catalog"
	"github.com/samirrijal/sitescout/internal/core/domain"
	"github.com/samirrijal/sitescout/internal/core/normalize"
	"github.com/samirrijal/sitescout/internal/core/ports"
	"github.com/samirrijal/sitescout/internal/core/usecases"
	"github.com/samirrijal/sitescout/internal/pkg/config"
)

// ---- Mocks ----

type mockFeatureSource struct {
	queryFn func(ctx context.Context, q ports.FeatureQuery) ([]domain.RawRecord, error)
}

func (m *mockFeatureSource) Query(ctx context.Context, q ports.FeatureQuery) ([]domain.RawRecord, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, q)
	}
	return nil, nil
}

type mockRefs struct {
	pingFn func(ctx context.Context) error
}

func (m *mockRefs) NonattainmentPollutants(ctx context.Context, fips string) ([]string, bool, error) {
	return nil, false, nil
}

func (m *mockRefs) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

type mockPinger struct{ err error }

func (m mockPinger) Ping(ctx context.Context) error { return m.err }

// ---- Fixtures ----

const siteQuery = "lat=31.05&lon=-103.05&radius=50"

// pipelines returns n parallel north-south pipelines, each 0.01° further east.
func pipelines(n int) []domain.RawRecord {
	out := make([]domain.RawRecord, n)
	for i := range out {
		lon := -103.04 + float64(i)*0.01
		out[i] = domain.RawRecord{
			Attributes: map[string]any{
				"PROJ_NAME": fmt.Sprintf("Line %d", i),
				"OPERATOR":  "Kinder Morgan",
			},
			Geometry: domain.Polyline{Paths: [][]domain.Coordinate{{
				{Lat: 31.0, Lon: lon},
				{Lat: 31.1, Lon: lon},
			}}},
		}
	}
	return out
}

func pipelineSource(records []domain.RawRecord) *mockFeatureSource {
	return &mockFeatureSource{
		queryFn: func(ctx context.Context, q ports.FeatureQuery) ([]domain.RawRecord, error) {
			if strings.Contains(q.Endpoint, "Natural_Gas_Pipelines") {
				return records, nil
			}
			return []domain.RawRecord{}, nil
		},
	}
}

func newScout(t *testing.T, src ports.FeatureSource) *usecases.ScoutService {
	t.Helper()
	cat, err := catalog.New(&config.Config{
		Scout:        config.ScoutConfig{MapProvider: "maps.google.com"},
		Pipelines:    config.PipelinesConfig{Operators: []string{"Kinder Morgan"}},
		Transmission: config.VoltageConfig{MinVoltageKV: 69},
		Substations:  config.SubstationsConfig{MinVoltageKV: 69, StateFilter: "TX"},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return usecases.NewScoutService(cat, src, normalize.New(nil, nil), nil, nil).
		WithClock(func() time.Time { return fixed })
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(t *testing.T, opts ...func(*handler.Dependencies)) *handler.Dependencies {
	t.Helper()
	d := &handler.Dependencies{
		Scout:           newScout(t, pipelineSource(pipelines(1))),
		Reference:       &mockRefs{},
		DefaultRadiusKm: 15,
		TopN:            10,
		RateLimit:       1000,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func get(t *testing.T, app *fiber.App, target string) *httpResponse {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", target, nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	return &httpResponse{
		status: resp.StatusCode,
		header: resp.Header.Get,
		body:   readBody(t, resp.Body),
	}
}

type httpResponse struct {
	status int
	header func(string) string
	body   []byte
}

func decodeAPIError(t *testing.T, b []byte) handler.APIError {
	t.Helper()
	var e handler.APIError
	if err := json.Unmarshal(b, &e); err != nil {
		t.Fatalf("decode error body %q: %v", b, err)
	}
	return e
}

// ---- Health ----

func TestHealth_Returns200(t *testing.T) {
	app := setupApp(makeDeps(t))

	resp := get(t, app, "/v1/health")
	if resp.status != 200 {
		t.Fatalf("expected 200, got %d", resp.status)
	}
	var body map[string]string
	if err := json.Unmarshal(resp.body, &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "healthy" || body["version"] != "1.0.0" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestReady_AllChecksPass(t *testing.T) {
	app := setupApp(makeDeps(t, func(d *handler.Dependencies) {
		d.Cache = mockPinger{}
	}))

	resp := get(t, app, "/v1/ready")
	if resp.status != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.status, resp.body)
	}
}

func TestReady_NoCacheIsStillReady(t *testing.T) {
	app := setupApp(makeDeps(t))

	resp := get(t, app, "/v1/ready")
	if resp.status != 200 {
		t.Fatalf("expected 200, got %d", resp.status)
	}
	var body struct {
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(resp.body, &body); err != nil {
		t.Fatal(err)
	}
	if body.Checks["cache"] != "not configured" {
		t.Errorf("cache check = %q", body.Checks["cache"])
	}
}

func TestReady_ReferenceDown(t *testing.T) {
	app := setupApp(makeDeps(t, func(d *handler.Dependencies) {
		d.Reference = &mockRefs{pingFn: func(ctx context.Context) error {
			return errors.New("connection refused")
		}}
	}))

	resp := get(t, app, "/v1/ready")
	if resp.status != 503 {
		t.Fatalf("expected 503, got %d", resp.status)
	}
}

func TestReady_CacheDown(t *testing.T) {
	app := setupApp(makeDeps(t, func(d *handler.Dependencies) {
		d.Cache = mockPinger{err: errors.New("dial tcp: refused")}
	}))

	resp := get(t, app, "/v1/ready")
	if resp.status != 503 {
		t.Fatalf("expected 503, got %d", resp.status)
	}
}

// ---- Categories ----

func TestCategories_List(t *testing.T) {
	app := setupApp(makeDeps(t))

	resp := get(t, app, "/v1/categories")
	if resp.status != 200 {
		t.Fatalf("expected 200, got %d", resp.status)
	}
	var body struct {
		Categories []handler.CategoryView `json:"categories"`
	}
	if err := json.Unmarshal(resp.body, &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Categories) != 5 {
		t.Fatalf("expected 5 categories, got %d", len(body.Categories))
	}
	if body.Categories[0].ID != domain.CategoryPipelines {
		t.Errorf("first category = %s", body.Categories[0].ID)
	}
	for _, c := range body.Categories {
		if c.ID == domain.CategorySubstations && !strings.Contains(c.Where, "'TX'") {
			t.Errorf("substations where clause missing state filter: %s", c.Where)
		}
	}
	if cc := resp.header("Cache-Control"); cc != "public, max-age=3600" {
		t.Errorf("Cache-Control = %q", cc)
	}
}

func TestCategories_ETagNotModified(t *testing.T) {
	app := setupApp(makeDeps(t))

	first := get(t, app, "/v1/categories")
	etag := first.header("ETag")
	if etag == "" {
		t.Fatal("expected ETag header")
	}

	req := httptest.NewRequest("GET", "/v1/categories", nil)
	req.Header.Set("If-None-Match", etag)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}

// ---- Scout ----

func TestScout_JSON(t *testing.T) {
	app := setupApp(makeDeps(t))

	resp := get(t, app, "/v1/scout?"+siteQuery)
	if resp.status != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.status, resp.body)
	}
	if ct := resp.header("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
	if resp.header("X-Report-ID") == "" {
		t.Error("expected X-Report-ID header")
	}

	var doc struct {
		Version string `json:"site_scout_version"`
		Query   struct {
			RadiusKm  float64 `json:"radius_km"`
			Timestamp string  `json:"timestamp"`
		} `json:"query"`
		Infrastructure map[string]struct {
			Count    int `json:"count"`
			Features []struct {
				Name    string `json:"name"`
				Starred bool   `json:"starred"`
			} `json:"features"`
		} `json:"infrastructure"`
	}
	if err := json.Unmarshal(resp.body, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Version != "1.0.0" {
		t.Errorf("version = %q", doc.Version)
	}
	if doc.Query.RadiusKm != 50 || doc.Query.Timestamp != "2026-03-01T12:00:00Z" {
		t.Errorf("unexpected query %+v", doc.Query)
	}
	pipes := doc.Infrastructure["pipelines"]
	if pipes.Count != 1 || len(pipes.Features) != 1 {
		t.Fatalf("expected 1 pipeline, got %+v", pipes)
	}
	if pipes.Features[0].Name != "Line 0" || !pipes.Features[0].Starred {
		t.Errorf("unexpected feature %+v", pipes.Features[0])
	}
}

func TestScout_DefaultRadius(t *testing.T) {
	var got float64
	src := &mockFeatureSource{queryFn: func(ctx context.Context, q ports.FeatureQuery) ([]domain.RawRecord, error) {
		got = q.RadiusKm
		return nil, nil
	}}
	app := setupApp(makeDeps(t, func(d *handler.Dependencies) {
		d.Scout = newScout(t, src)
		d.DefaultRadiusKm = 25
	}))

	resp := get(t, app, "/v1/scout/pipelines?lat=31.05&lon=-103.05")
	if resp.status != 200 {
		t.Fatalf("expected 200, got %d", resp.status)
	}
	if got != 25 {
		t.Errorf("radius = %v, want default 25", got)
	}
}

func TestScout_Markdown(t *testing.T) {
	app := setupApp(makeDeps(t))

	resp := get(t, app, "/v1/scout?"+siteQuery+"&format=markdown")
	if resp.status != 200 {
		t.Fatalf("expected 200, got %d", resp.status)
	}
	if ct := resp.header("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.Contains(resp.body, []byte("Site Scout Report")) {
		t.Errorf("markdown body missing header:\n%s", resp.body)
	}
	if !bytes.Contains(resp.body, []byte("Line 0")) {
		t.Error("markdown body missing pipeline")
	}
}

func TestScout_GeoJSON(t *testing.T) {
	app := setupApp(makeDeps(t))

	resp := get(t, app, "/v1/scout?"+siteQuery+"&format=geojson")
	if resp.status != 200 {
		t.Fatalf("expected 200, got %d", resp.status)
	}
	if ct := resp.header("Content-Type"); ct != "application/geo+json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(resp.body, &fc); err != nil {
		t.Fatal(err)
	}
	if fc.Type != "FeatureCollection" {
		t.Errorf("type = %q", fc.Type)
	}
	// query point plus one pipeline
	if len(fc.Features) != 2 {
		t.Errorf("expected 2 features, got %d", len(fc.Features))
	}
}

func TestScout_NotCached(t *testing.T) {
	app := setupApp(makeDeps(t))

	resp := get(t, app, "/v1/scout?"+siteQuery)
	if cc := resp.header("Cache-Control"); cc != "no-store" {
		t.Errorf("Cache-Control = %q", cc)
	}
	if etag := resp.header("ETag"); etag != "" {
		t.Errorf("unexpected ETag %q on scout report", etag)
	}
}

func TestScout_BadRequests(t *testing.T) {
	app := setupApp(makeDeps(t))

	tests := []struct {
		name  string
		query string
	}{
		{"missing lat", "lon=-103.05"},
		{"missing lon", "lat=31.05"},
		{"non-numeric lat", "lat=north&lon=-103.05"},
		{"lat out of range", "lat=91&lon=-103.05"},
		{"lon out of range", "lat=31.05&lon=-181"},
		{"negative radius", "lat=31.05&lon=-103.05&radius=-1"},
		{"radius too large", "lat=31.05&lon=-103.05&radius=500"},
		{"unknown format", siteQuery + "&format=pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, app, "/v1/scout?"+tt.query)
			if resp.status != 400 {
				t.Fatalf("expected 400, got %d", resp.status)
			}
			if e := decodeAPIError(t, resp.body); e.Code != "bad_request" || e.Message == "" {
				t.Errorf("unexpected error body %+v", e)
			}
		})
	}
}

func TestScout_ZeroCoordinateIsValid(t *testing.T) {
	app := setupApp(makeDeps(t))

	resp := get(t, app, "/v1/scout?lat=0&lon=0&radius=1")
	if resp.status != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.status, resp.body)
	}
}

// ---- Single category ----

func TestScoutCategory_Pagination(t *testing.T) {
	app := setupApp(makeDeps(t, func(d *handler.Dependencies) {
		d.Scout = newScout(t, pipelineSource(pipelines(5)))
	}))

	resp := get(t, app, "/v1/scout/pipelines?"+siteQuery+"&offset=2&limit=2")
	if resp.status != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.status, resp.body)
	}

	var body struct {
		Data []domain.InfrastructureFeature `json:"data"`
		Meta struct {
			Category string `json:"category"`
			Label    string `json:"label"`
		} `json:"meta"`
		Pagination handler.Pagination `json:"pagination"`
	}
	if err := json.Unmarshal(resp.body, &body); err != nil {
		t.Fatal(err)
	}
	if body.Pagination.Total != 5 || body.Pagination.Offset != 2 || body.Pagination.Limit != 2 {
		t.Errorf("unexpected pagination %+v", body.Pagination)
	}
	if len(body.Data) != 2 {
		t.Fatalf("expected 2 features, got %d", len(body.Data))
	}
	// Line i sits (i+1)*0.01° east of the site, so the third-nearest is Line 2.
	if body.Data[0].DisplayName != "Line 2" || body.Data[1].DisplayName != "Line 3" {
		t.Errorf("unexpected page %s, %s", body.Data[0].DisplayName, body.Data[1].DisplayName)
	}
	if body.Meta.Category != "pipelines" || body.Meta.Label != "Natural Gas Pipelines" {
		t.Errorf("unexpected meta %+v", body.Meta)
	}

	link := resp.header("Link")
	for _, want := range []string{`rel="first"`, `rel="prev"`, `rel="next"`, `rel="last"`, "lat=31.05", "lon=-103.05"} {
		if !strings.Contains(link, want) {
			t.Errorf("Link header missing %q: %s", want, link)
		}
	}
}

func TestScoutCategory_OffsetPastEnd(t *testing.T) {
	app := setupApp(makeDeps(t))

	resp := get(t, app, "/v1/scout/pipelines?"+siteQuery+"&offset=10")
	if resp.status != 200 {
		t.Fatalf("expected 200, got %d", resp.status)
	}
	var body struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.body, &body); err != nil {
		t.Fatal(err)
	}
	if body.Data == nil || len(body.Data) != 0 {
		t.Errorf("expected empty data array, got %s", resp.body)
	}
}

func TestScoutCategory_Unknown(t *testing.T) {
	app := setupApp(makeDeps(t))

	resp := get(t, app, "/v1/scout/railways?"+siteQuery)
	if resp.status != 404 {
		t.Fatalf("expected 404, got %d", resp.status)
	}
	if e := decodeAPIError(t, resp.body); e.Code != "not_found" {
		t.Errorf("code = %q", e.Code)
	}
}

func TestScoutCategory_UpstreamFailure(t *testing.T) {
	src := &mockFeatureSource{queryFn: func(ctx context.Context, q ports.FeatureQuery) ([]domain.RawRecord, error) {
		return nil, errors.New("status 503")
	}}
	app := setupApp(makeDeps(t, func(d *handler.Dependencies) {
		d.Scout = newScout(t, src)
	}))

	resp := get(t, app, "/v1/scout/substations?"+siteQuery)
	if resp.status != 200 {
		t.Fatalf("expected 200, got %d", resp.status)
	}
	var body struct {
		Meta struct {
			Error string `json:"error"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(resp.body, &body); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(body.Meta.Error, "503") {
		t.Errorf("expected upstream error in meta, got %q", body.Meta.Error)
	}
}

// ---- GraphQL ----

func postGraphQL(t *testing.T, app *fiber.App, query string) map[string]any {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{"query": query})
	req := httptest.NewRequest("POST", "/graphql", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if errs, ok := out["errors"]; ok {
		t.Fatalf("graphql errors: %v", errs)
	}
	return out["data"].(map[string]any)
}

func TestGraphQL_Categories(t *testing.T) {
	app := setupApp(makeDeps(t))

	data := postGraphQL(t, app, `{ categories { id label geometry } }`)
	cats := data["categories"].([]any)
	if len(cats) != 5 {
		t.Fatalf("expected 5 categories, got %d", len(cats))
	}
	if first := cats[0].(map[string]any); first["id"] != "pipelines" || first["geometry"] != "polyline" {
		t.Errorf("unexpected first category %v", first)
	}
}

func TestGraphQL_Scout(t *testing.T) {
	app := setupApp(makeDeps(t))

	data := postGraphQL(t, app, `{
		scout(lat: 31.05, lon: -103.05, radius: 50) {
			query { radius_km timestamp }
			sections { category features { name direction resolve_mode } }
			summary { connectivity_score categories { category count } }
		}
	}`)
	rep := data["scout"].(map[string]any)

	q := rep["query"].(map[string]any)
	if q["radius_km"].(float64) != 50 || q["timestamp"] != "2026-03-01T12:00:00Z" {
		t.Errorf("unexpected query %v", q)
	}

	sections := rep["sections"].([]any)
	pipes := sections[0].(map[string]any)
	features := pipes["features"].([]any)
	if pipes["category"] != "pipelines" || len(features) != 1 {
		t.Fatalf("unexpected pipelines section %v", pipes)
	}
	if f := features[0].(map[string]any); f["direction"] != "E" || f["resolve_mode"] != "segment" {
		t.Errorf("unexpected feature %v", f)
	}

	counts := rep["summary"].(map[string]any)["categories"].([]any)
	if len(counts) != 5 {
		t.Errorf("expected 5 category counts, got %d", len(counts))
	}
}

func TestGraphQL_InvalidCoordinate(t *testing.T) {
	app := setupApp(makeDeps(t))

	payload := []byte(`{"query":"{ scout(lat: 95, lon: 0) { id } }"}`)
	req := httptest.NewRequest("POST", "/graphql", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	var out struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Errors) == 0 || !strings.Contains(out.Errors[0].Message, "invalid coordinate") {
		t.Errorf("expected invalid coordinate error, got %+v", out.Errors)
	}
}

func TestGraphQL_EmptyBody(t *testing.T) {
	app := setupApp(makeDeps(t))

	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 400 {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- Middleware ----

func TestAPIVersionHeader(t *testing.T) {
	app := setupApp(makeDeps(t))

	resp := get(t, app, "/v1/health")
	if v := resp.header("X-API-Version"); v != "1.0.0" {
		t.Errorf("X-API-Version = %q", v)
	}
	if v := resp.header("X-Content-Type-Options"); v != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", v)
	}
}

func TestRateLimit(t *testing.T) {
	app := setupApp(makeDeps(t, func(d *handler.Dependencies) {
		d.RateLimit = 2
	}))

	for i := 0; i < 2; i++ {
		if resp := get(t, app, "/v1/categories"); resp.status != 200 {
			t.Fatalf("request %d: expected 200, got %d", i, resp.status)
		}
	}
	resp := get(t, app, "/v1/categories")
	if resp.status != 429 {
		t.Fatalf("expected 429, got %d", resp.status)
	}
	if e := decodeAPIError(t, resp.body); e.Code != "rate_limited" {
		t.Errorf("code = %q", e.Code)
	}

	// probes are exempt
	if resp := get(t, app, "/v1/health"); resp.status != 200 {
		t.Errorf("health behind rate limit: %d", resp.status)
	}
}

func TestDocs_ServesSpec(t *testing.T) {
	app := setupApp(makeDeps(t, func(d *handler.Dependencies) {
		d.DocsPath = findOpenAPISpec(t)
	}))

	resp := get(t, app, "/docs/openapi.yaml")
	if resp.status != 200 {
		t.Fatalf("expected 200, got %d", resp.status)
	}
	if !bytes.Contains(resp.body, []byte("Site Scout API")) {
		t.Error("served document is not the Site Scout spec")
	}

	if resp := get(t, app, "/docs"); resp.status != 200 {
		t.Errorf("swagger UI: expected 200, got %d", resp.status)
	}
}
