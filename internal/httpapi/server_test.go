package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chanlock/chanlock/internal/chanlock/platform"
	"github.com/chanlock/chanlock/internal/chanlock/service"
	"github.com/chanlock/chanlock/internal/chanlock/store"
	"github.com/chanlock/chanlock/internal/chanlock/store/memory"
	"github.com/chanlock/chanlock/internal/chanlock/types"
	"github.com/chanlock/chanlock/internal/httpapi"
)

// newTestServer wires up the full dependency graph using in-memory stores
// and returns an httptest.Server whose URL can be hit with a plain http.Client.
func newTestServer(t *testing.T, channels []string) *httptest.Server {
	t.Helper()

	logger := log.New(io.Discard, "", 0)
	directory := platform.NewDirectory(channels)
	creds := memory.NewCredentialStore()
	grants := memory.NewGrantStore()
	events := memory.NewUnlockEventStore()

	sched := service.NewExpiryScheduler(grants, func(ctx context.Context, g store.Grant) error {
		return directory.RevokeRevealTo(ctx, g.ResourceID, g.SubjectID)
	}, service.SchedulerConfig{}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	if err := sched.Start(ctx); err != nil {
		t.Fatalf("scheduler start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		sched.Stop()
	})

	controller := service.NewAccessController(creds, grants, events, directory, sched, service.ControllerConfig{}, logger)

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:     logger,
		Addr:       ":0",
		Controller: controller,
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestProtectThenUnlock_OK(t *testing.T) {
	ts := newTestServer(t, []string{"general"})

	resp := postJSON(t, ts.URL+"/v1/protect", `{"resource":"general","passphrase":"sesame"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("protect: expected 200, got %d", resp.StatusCode)
	}

	var protectResp types.ProtectResponse
	if err := json.NewDecoder(resp.Body).Decode(&protectResp); err != nil {
		t.Fatalf("decode protect response: %v", err)
	}
	if !protectResp.OK || protectResp.Resource != "general" {
		t.Fatalf("unexpected protect response: %+v", protectResp)
	}

	// The protected channel shows up in the list.
	listHTTP, err := http.Get(ts.URL + "/v1/protected")
	if err != nil {
		t.Fatalf("get protected: %v", err)
	}
	defer listHTTP.Body.Close()

	var listResp types.ListProtectedResponse
	if err := json.NewDecoder(listHTTP.Body).Decode(&listResp); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(listResp.Resources) != 1 || listResp.Resources[0] != protectResp.ResourceID {
		t.Errorf("protected list = %v, want [%s]", listResp.Resources, protectResp.ResourceID)
	}

	resp = postJSON(t, ts.URL+"/v1/unlock", `{"resource":"general","subject":"alice","passphrase":"sesame"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unlock: expected 200, got %d", resp.StatusCode)
	}

	var unlockResp types.UnlockResponse
	if err := json.NewDecoder(resp.Body).Decode(&unlockResp); err != nil {
		t.Fatalf("decode unlock response: %v", err)
	}
	if !unlockResp.OK || unlockResp.Subject != "alice" || unlockResp.ExpiresAt == "" {
		t.Errorf("unexpected unlock response: %+v", unlockResp)
	}
}

func TestProtect_UnknownChannel_404(t *testing.T) {
	ts := newTestServer(t, []string{"general"})

	resp := postJSON(t, ts.URL+"/v1/protect", `{"resource":"nope","passphrase":"pw"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

// A wrong passphrase and an unprotected channel must produce an identical
// reply so callers cannot probe which hidden channels are protected.
func TestUnlock_DeniedRepliesAreIndistinguishable(t *testing.T) {
	ts := newTestServer(t, []string{"general", "random"})

	// Protect "general" only.
	resp := postJSON(t, ts.URL+"/v1/protect", `{"resource":"general","passphrase":"sesame"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("protect: expected 200, got %d", resp.StatusCode)
	}

	wrongPw := postJSON(t, ts.URL+"/v1/unlock", `{"resource":"general","subject":"alice","passphrase":"wrong"}`)
	notProtected := postJSON(t, ts.URL+"/v1/unlock", `{"resource":"random","subject":"alice","passphrase":"wrong"}`)

	if wrongPw.StatusCode != http.StatusForbidden || notProtected.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403/403, got %d/%d", wrongPw.StatusCode, notProtected.StatusCode)
	}

	body1, err := io.ReadAll(wrongPw.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	body2, err := io.ReadAll(notProtected.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !bytes.Equal(body1, body2) {
		t.Errorf("denial replies differ:\n%s\n%s", body1, body2)
	}
}

func TestUnlock_MissingFields_400(t *testing.T) {
	ts := newTestServer(t, []string{"general"})

	resp := postJSON(t, ts.URL+"/v1/unlock", `{"resource":"general","subject":"","passphrase":"pw"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestUnlock_BadJSON_400(t *testing.T) {
	ts := newTestServer(t, []string{"general"})

	resp := postJSON(t, ts.URL+"/v1/unlock", `{"resource":`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRequestID_Echoed(t *testing.T) {
	ts := newTestServer(t, []string{"general"})

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("X-Request-ID", "req-123")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("X-Request-ID"); got != "req-123" {
		t.Errorf("X-Request-ID = %q, want req-123", got)
	}
}
