package fcc_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/sitescout/internal/adapters/fcc"
	"github.com/samirrijal/sitescout/internal/adapters/upstream"
	"github.com/samirrijal/sitescout/internal/core/domain"
)

func newClient(endpoint string) *fcc.Client {
	return fcc.New(upstream.New("fcc", upstream.Options{
		Timeout:           2 * time.Second,
		RequestsPerSecond: 1000,
		RetryInterval:     time.Millisecond,
	}), endpoint)
}

func TestAvailability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("latitude") != "29.76" || r.URL.Query().Get("longitude") != "-95.37" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"status":"successful","results":[
			{"provider_name":"AT&T","technology":50,"max_advertised_download_speed":5000,"max_advertised_upload_speed":5000},
			{"provider_name":"Comcast","technology":"Cable","max_advertised_download_speed":"1200","max_advertised_upload_speed":null},
			{"provider_name":"Starlink"}
		]}`))
	}))
	defer srv.Close()

	offers, err := newClient(srv.URL).Availability(context.Background(), domain.Coordinate{Lat: 29.76, Lon: -95.37})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(offers) != 3 {
		t.Fatalf("expected 3 offers, got %d", len(offers))
	}

	want := []domain.BroadbandOffer{
		{Provider: "AT&T", Technology: "50", DownloadMbps: 5000, UploadMbps: 5000},
		{Provider: "Comcast", Technology: "Cable", DownloadMbps: 1200},
		{Provider: "Starlink"},
	}
	for i := range want {
		if offers[i] != want[i] {
			t.Errorf("offer %d = %+v, want %+v", i, offers[i], want[i])
		}
	}
}

func TestAvailability_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"successful"}`))
	}))
	defer srv.Close()

	offers, err := newClient(srv.URL).Availability(context.Background(), domain.Coordinate{})
	if err != nil {
		t.Fatal(err)
	}
	if len(offers) != 0 {
		t.Errorf("expected no offers, got %v", offers)
	}
}

func TestAvailability_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/forbidden") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(`{"status":"error","message":"location outside coverage"}`))
	}))
	defer srv.Close()

	_, err := newClient(srv.URL+"/forbidden").Availability(context.Background(), domain.Coordinate{})
	if !upstream.IsStatus(err, http.StatusForbidden) {
		t.Errorf("expected 403, got %v", err)
	}

	_, err = newClient(srv.URL).Availability(context.Background(), domain.Coordinate{})
	if err == nil || !strings.Contains(err.Error(), "location outside coverage") {
		t.Errorf("expected in-band error, got %v", err)
	}
}

func TestNew_DefaultURL(t *testing.T) {
	if fcc.DefaultURL == "" {
		t.Fatal("default url must be set")
	}
	if newClient("") == nil {
		t.Fatal("expected client")
	}
}
