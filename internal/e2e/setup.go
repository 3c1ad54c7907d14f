package e2e

import (
	"crypto/rsa"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/alaga-care/care-service/internal/auth"
	"github.com/alaga-care/care-service/internal/docstore"
	httpserver "github.com/alaga-care/care-service/internal/http"
	"github.com/alaga-care/care-service/internal/testutil"
)

// TestServer represents a complete E2E test environment
type TestServer struct {
	Server        *httptest.Server
	Store         docstore.Store
	MockPublisher *testutil.MockPublisher
	Verifier      *auth.Verifier
	PrivateKey    *rsa.PrivateKey
}

// SetupE2ETest starts the full router over a document store. The memory
// driver is used unless E2E_STORE=postgres, which runs against the test
// database from testutil.TestDSN.
func SetupE2ETest(t *testing.T) *TestServer {
	t.Helper()

	var store docstore.Store
	if os.Getenv("E2E_STORE") == docstore.DriverPostgres {
		store = testutil.SetupTestStore(t)
	} else {
		store = docstore.NewMemory()
	}

	mockPublisher := testutil.NewMockPublisher()

	perms, err := auth.LoadPermissions("../../permissions.yml")
	if err != nil {
		t.Fatalf("Failed to load permissions: %v", err)
	}

	verifier, privateKey := testutil.CreateTestVerifier(t)

	router := httpserver.SetupRouter(store, verifier, perms, httpserver.Options{
		AllowedOrigins: []string{"*"},
		Publisher:      mockPublisher,
	})

	return &TestServer{
		Server:        httptest.NewServer(router),
		Store:         store,
		MockPublisher: mockPublisher,
		Verifier:      verifier,
		PrivateKey:    privateKey,
	}
}

// Cleanup cleans up all test resources
func (ts *TestServer) Cleanup(t *testing.T) {
	t.Helper()
	ts.Server.Close()
}

// CaregiverClient returns a client acting as userID with the default role.
func (ts *TestServer) CaregiverClient(t *testing.T, userID string) *testutil.HTTPTestClient {
	t.Helper()
	return testutil.NewHTTPTestClient(ts.Server.URL, testutil.GenerateCaregiverToken(t, ts.PrivateKey, userID))
}

// ViewerClient returns a read-only client acting as userID.
func (ts *TestServer) ViewerClient(t *testing.T, userID string) *testutil.HTTPTestClient {
	t.Helper()
	return testutil.NewHTTPTestClient(ts.Server.URL, testutil.GenerateViewerToken(t, ts.PrivateKey, userID))
}

// createProfile creates a care profile and returns its id.
func createProfile(t *testing.T, client *testutil.HTTPTestClient, name string) string {
	t.Helper()

	resp := client.POST(t, "/care-profiles", map[string]interface{}{"name": name, "relationship": "mother", "age": 78})
	testutil.AssertStatusCode(t, resp, 201)

	var result struct {
		CareProfile struct {
			ID string `json:"id"`
		} `json:"care_profile"`
	}
	testutil.DecodeJSON(t, resp, &result)
	if result.CareProfile.ID == "" {
		t.Fatal("Expected care profile id")
	}
	return result.CareProfile.ID
}
