package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formgrid/pkg/config"
)

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewUnstartedServer(nil)

	cfg := config.Defaults()
	cfg.Server.BaseURL = "http://" + srv.Listener.Addr().String()
	cfg.Grid.DemoRecords = 30
	cfg.Upload.Dir = ""

	s, err := New(cfg, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv.Config.Handler = s.Router()
	srv.Start()
	t.Cleanup(func() {
		srv.Close()
		s.Close()
	})
	return srv
}

func get(t *testing.T, rawURL string) (int, string) {
	t.Helper()
	resp, err := http.Get(rawURL)
	if err != nil {
		t.Fatalf("GET %s: %v", rawURL, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func post(t *testing.T, rawURL string, values url.Values) (int, string) {
	t.Helper()
	resp, err := http.PostForm(rawURL, values)
	if err != nil {
		t.Fatalf("POST %s: %v", rawURL, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestIndexListsCatalog(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	status, body := get(t, srv.URL+"/")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	var payload struct {
		Data struct {
			Forms []string `json:"forms"`
			Grids []string `json:"grids"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff([]string{"signup"}, payload.Data.Forms); diff != "" {
		t.Fatalf("forms mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"users"}, payload.Data.Grids); diff != "" {
		t.Fatalf("grids mismatch (-want +got):\n%s", diff)
	}
}

func TestShowFormLoadsRemoteOptions(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	status, body := get(t, srv.URL+"/forms/signup")
	if status != http.StatusOK {
		t.Fatalf("status = %d\n%s", status, body)
	}
	for _, want := range []string{
		`action="/forms/signup"`,
		`<link rel="stylesheet" href="/assets/formgrid.css">`,
		`>Select role</option>`,
		`<option value="admin">Admin</option>`,
		`<option value="viewer">Viewer</option>`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in\n%s", want, body)
		}
	}
	if strings.Contains(body, `name="seats"`) {
		t.Fatalf("seats should be hidden until role is admin")
	}

	if status, _ := get(t, srv.URL+"/forms/missing"); status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
}

func TestSubmitFormRerendersErrors(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	status, body := post(t, srv.URL+"/forms/signup", url.Values{
		"email": {"not-an-email"},
		"role":  {"admin"},
	})
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d\n%s", status, body)
	}
	for _, want := range []string{"Name is required", "Please enter a valid email address", `name="seats"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in\n%s", want, body)
		}
	}
}

func TestSubmitFormReturnsValues(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	status, body := post(t, srv.URL+"/forms/signup", url.Values{
		"name":                    {"Ada"},
		"email":                   {"ada@example.com"},
		"role":                    {"admin"},
		"seats":                   {"3"},
		"interests":               {"forms", "grids"},
		"availability[startDate]": {"2025-01-01"},
		"availability[endDate]":   {"2025-01-31"},
		"terms":                   {"true"},
	})
	if status != http.StatusOK {
		t.Fatalf("status = %d\n%s", status, body)
	}
	var payload struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := payload.Data
	if got["name"] != "Ada" || got["role"] != "admin" || got["seats"] != "3" || got["terms"] != true {
		t.Fatalf("unexpected values %v", got)
	}
	if diff := cmp.Diff([]any{"forms", "grids"}, got["interests"]); diff != "" {
		t.Fatalf("interests mismatch (-want +got):\n%s", diff)
	}
	rng, _ := got["availability"].([]any)
	if len(rng) != 1 {
		t.Fatalf("unexpected availability %v", got["availability"])
	}
	if sel, _ := rng[0].(map[string]any); sel["startDate"] != "2025-01-01" || sel["endDate"] != "2025-01-31" {
		t.Fatalf("unexpected availability %v", rng[0])
	}
}

func TestGridPagesSortsAndFilters(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	status, body := get(t, srv.URL+"/grids/users")
	if status != http.StatusOK {
		t.Fatalf("status = %d\n%s", status, body)
	}
	for _, want := range []string{"<h2>Users</h2>", "Showing 1 to 15 of 30 results", `name="select-all"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in\n%s", want, body)
		}
	}

	_, body = get(t, srv.URL+"/grids/users?sort=name")
	if !strings.Contains(body, `aria-sort="descending"`) {
		t.Fatalf("expected descending sort marker:\n%s", body)
	}
	_, body = get(t, srv.URL+"/grids/users?page=2&pageSize=15&sort=name&order=DESC")
	if !strings.Contains(body, "Showing 16 to 30 of 30 results") {
		t.Fatalf("expected second page:\n%s", body)
	}

	status, body = post(t, srv.URL+"/grids/users/filters", url.Values{"key": {"status"}, "checked": {"approved"}})
	if status != http.StatusOK {
		t.Fatalf("status after redirect = %d\n%s", status, body)
	}
	for _, want := range []string{"Showing 1 to 10 of 10 results", "<strong>Status</strong>"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in\n%s", want, body)
		}
	}

	_, body = post(t, srv.URL+"/grids/users/filters/status/remove", nil)
	if !strings.Contains(body, "Showing 1 to 15 of 30 results") {
		t.Fatalf("expected filter removed:\n%s", body)
	}

	if status, _ := post(t, srv.URL+"/grids/users/filters", url.Values{"key": {"nope"}, "value": {"x"}}); status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if status, _ := get(t, srv.URL+"/grids/missing"); status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
}

func TestGridExportRedirectsToFile(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	post(t, srv.URL+"/grids/users/filters", url.Values{"key": {"name"}, "operator": {"equals"}, "value": {"Ada Lovelace"}})

	status, body := get(t, srv.URL+"/grids/users/export")
	if status != http.StatusOK {
		t.Fatalf("status = %d\n%s", status, body)
	}
	lines := strings.Split(strings.TrimSpace(body), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "ID,Name") || !strings.Contains(lines[1], "Ada Lovelace") {
		t.Fatalf("unexpected export:\n%s", body)
	}
}

func TestHealthAndAssets(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	if status, body := get(t, srv.URL+"/healthz"); status != http.StatusOK || !strings.Contains(body, `"ok"`) {
		t.Fatalf("healthz = %d %s", status, body)
	}
	if status, _ := get(t, srv.URL+"/assets/formgrid.css"); status != http.StatusOK {
		t.Fatalf("assets status = %d", status)
	}
}
