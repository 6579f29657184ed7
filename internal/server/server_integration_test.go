package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/paperdrum/internal/store"
)

func TestAPI_ActionWorkflow(t *testing.T) {
	// Setup
	tmpDir := t.TempDir()
	s, _ := store.New(filepath.Join(tmpDir, "test.db"))
	defer s.Close()

	srv := New(Config{Store: s})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	// 1. Bind an action to the snare
	createBody := `{"pad": "Snare", "plugin_name": "keyboard", "action_name": "keystroke", "config": {"key": "space"}}`
	resp, err := client.Post(ts.URL+"/api/actions", "application/json", bytes.NewBufferString(createBody))
	if err != nil {
		t.Fatalf("POST /api/actions error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var created struct {
		ID  string `json:"id"`
		Pad string `json:"pad"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	if created.Pad != "Snare" {
		t.Errorf("created pad = %s, want Snare", created.Pad)
	}

	// 2. A second binding for the same pad conflicts
	resp, _ = client.Post(ts.URL+"/api/actions", "application/json", bytes.NewBufferString(createBody))
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate POST status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
	resp.Body.Close()

	// 3. List actions
	resp, _ = client.Get(ts.URL + "/api/actions")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/actions status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var listed struct {
		Actions []struct {
			ID  string `json:"id"`
			Pad string `json:"pad"`
		} `json:"actions"`
	}
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()

	if len(listed.Actions) != 1 {
		t.Fatalf("len(actions) = %d, want 1", len(listed.Actions))
	}

	// 4. Delete the binding
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/actions/"+created.ID, nil)
	resp, _ = client.Do(req)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	resp.Body.Close()

	// 5. Verify deleted
	resp, _ = client.Get(ts.URL + "/api/actions/" + created.ID)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET after delete status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	resp.Body.Close()
}

func TestAPI_SessionHistory(t *testing.T) {
	tmpDir := t.TempDir()
	s, _ := store.New(filepath.Join(tmpDir, "test.db"))
	defer s.Close()

	s.Sessions().Create(&store.Session{ID: "run-1"})
	s.Strikes().Create(&store.Strike{SessionID: "run-1", Pad: "Kick", Intensity: 0.8, Velocity: 180, TimestampMs: 10})

	ts := httptest.NewServer(New(Config{Store: s}))
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/sessions/run-1/strikes")
	if err != nil {
		t.Fatalf("GET strikes error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body struct {
		Strikes []struct {
			Pad string `json:"pad"`
		} `json:"strikes"`
		ByPad map[string]int `json:"by_pad"`
	}
	json.NewDecoder(resp.Body).Decode(&body)

	if len(body.Strikes) != 1 || body.Strikes[0].Pad != "Kick" || body.ByPad["Kick"] != 1 {
		t.Errorf("body = %+v", body)
	}
}

func TestAPI_HealthCheck(t *testing.T) {
	srv := New(Config{})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health struct {
		Status string `json:"status"`
		Uptime string `json:"uptime"`
	}
	json.NewDecoder(resp.Body).Decode(&health)

	if health.Status != "ok" {
		t.Errorf("status = %s, want ok", health.Status)
	}
}
