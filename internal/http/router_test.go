package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alaga-care/care-service/internal/auth"
	"github.com/alaga-care/care-service/internal/calendar"
	"github.com/alaga-care/care-service/internal/careprofile"
	"github.com/alaga-care/care-service/internal/docstore"
	"github.com/alaga-care/care-service/internal/healthrecord"
	"github.com/alaga-care/care-service/internal/medication"
	"github.com/alaga-care/care-service/internal/testutil"
	"github.com/gorilla/mux"
)

var testPermissions = auth.Permissions{
	"CAREGIVER": {
		"care_profile:create", "care_profile:view", "care_profile:update", "care_profile:delete",
		"medication:create", "medication:view", "medication:update", "medication:delete",
		"calendar:create", "calendar:view", "calendar:update", "calendar:delete",
		"health_record:create", "health_record:view", "health_record:update", "health_record:delete",
	},
	"VIEWER": {"care_profile:view", "medication:view", "calendar:view", "health_record:view"},
}

func newTestServer(t *testing.T) (*httptest.Server, *testutil.HTTPTestClient, *testutil.HTTPTestClient) {
	t.Helper()

	verifier, key := testutil.CreateTestVerifier(t)
	router := SetupRouter(docstore.NewMemory(), verifier, testPermissions, Options{
		AllowedOrigins: []string{"https://app.alaga.example"},
		Publisher:      testutil.NewMockPublisher(),
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	caregiver := testutil.NewHTTPTestClient(server.URL, testutil.GenerateCaregiverToken(t, key, "alice"))
	viewer := caregiver.WithToken(testutil.GenerateViewerToken(t, key, "alice"))
	return server, caregiver, viewer
}

func TestRouter_Health(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := testutil.NewHTTPTestClient(server.URL, "").GET(t, "/health")
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	if body := testutil.ReadBody(t, resp); !strings.Contains(body, `"status":"ok"`) {
		t.Errorf("Unexpected health body: %s", body)
	}
}

func TestRouter_RequiresToken(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := testutil.NewHTTPTestClient(server.URL, "").GET(t, "/care-profiles")
	testutil.AssertStatusCode(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestRouter_ViewerCannotWrite(t *testing.T) {
	_, caregiver, viewer := newTestServer(t)

	resp := viewer.POST(t, "/care-profiles", map[string]string{"name": "Lola"})
	testutil.AssertStatusCode(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = caregiver.POST(t, "/care-profiles", map[string]string{"name": "Lola"})
	testutil.AssertStatusCode(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = viewer.GET(t, "/care-profiles")
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestRouter_CORSPreflight(t *testing.T) {
	server, _, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, server.URL+"/care-profiles/p1/medications", nil)
	req.Header.Set("Origin", "https://app.alaga.example")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Preflight failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://app.alaga.example" {
		t.Errorf("Expected allowed origin, got %q", got)
	}
}

func TestCORSMiddleware_RejectsUnknownOrigin(t *testing.T) {
	h := CORSMiddleware([]string{"https://app.alaga.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected no allowed origin, got %q", got)
	}
}

type recordedRequest struct {
	method string
	route  string
	status int
}

type fakeHTTPMetrics struct {
	requests []recordedRequest
}

func (f *fakeHTTPMetrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64) {
	f.requests = append(f.requests, recordedRequest{method, route, statusCode})
}

func TestMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	metrics := &fakeHTTPMetrics{}
	r := mux.NewRouter()
	r.Use(MetricsMiddleware(metrics))
	r.HandleFunc("/care-profiles/{profileID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/care-profiles/abc-123", nil))

	if len(metrics.requests) != 1 {
		t.Fatalf("Expected 1 recorded request, got %d", len(metrics.requests))
	}
	got := metrics.requests[0]
	if got.route != "/care-profiles/{profileID}" || got.status != http.StatusTeapot || got.method != http.MethodGet {
		t.Errorf("Unexpected recorded request: %+v", got)
	}
}

func TestStatusRecorder_Flushes(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec}

	var w http.ResponseWriter = sr
	f, ok := w.(http.Flusher)
	if !ok {
		t.Fatal("Expected statusRecorder to implement http.Flusher")
	}
	sr.Write([]byte("data: x\n\n"))
	f.Flush()

	if !rec.Flushed {
		t.Error("Expected underlying recorder to be flushed")
	}
	if sr.status != http.StatusOK {
		t.Errorf("Expected implicit 200, got %d", sr.status)
	}
}

func TestChildCollections_CoverEveryProfileScopedCollection(t *testing.T) {
	want := []string{
		medication.Collection,
		medication.LogCollection,
		calendar.Collection,
		healthrecord.Collection,
		healthrecord.LatestCollection,
	}
	if strings.Join(careprofile.ChildCollections, ",") != strings.Join(want, ",") {
		t.Errorf("Expected child collections %v, got %v", want, careprofile.ChildCollections)
	}
}

func TestRouter_MedicationFixedPathsBeforeID(t *testing.T) {
	_, caregiver, _ := newTestServer(t)

	resp := caregiver.POST(t, "/care-profiles", map[string]string{"name": "Lola"})
	testutil.AssertStatusCode(t, resp, http.StatusCreated)
	var created careprofile.SuccessResponse
	testutil.DecodeJSON(t, resp, &created)
	base := "/care-profiles/" + created.CareProfile.ID + "/medications"

	for _, path := range []string{base + "/today", base + "/logs"} {
		resp = caregiver.GET(t, path)
		testutil.AssertStatusCode(t, resp, http.StatusOK)
		resp.Body.Close()
	}

	resp = caregiver.DELETE(t, "/care-profiles/"+created.CareProfile.ID)
	testutil.AssertStatusCode(t, resp, http.StatusNoContent)
	resp.Body.Close()

	resp = caregiver.GET(t, base)
	testutil.AssertStatusCode(t, resp, http.StatusNotFound)
	resp.Body.Close()
}
