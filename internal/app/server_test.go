package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		Port:   0,
		DBPath: filepath.Join(t.TempDir(), "turns.db"),
		Secret: "test-secret",
	}
}

func TestNewCreatesStorageDir(t *testing.T) {
	opts := testOptions(t)
	opts.DBPath = filepath.Join(t.TempDir(), "nested", "dir", "turns.db")
	server, err := New(opts)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	defer server.closeStore()
	defer func() {
		_ = server.listener.Close()
	}()
	if server.Addr() == "" {
		t.Fatal("expected listener address")
	}
}

func TestServeHandlesRequestsAndShutsDown(t *testing.T) {
	server, err := New(testOptions(t))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(ctx)
	}()

	url := fmt.Sprintf("http://%s/healthz", server.Addr())
	var resp *http.Response
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err = http.Get(url)
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}

	cancel()
	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServeRejectsAdvanceWithoutSecret(t *testing.T) {
	server, err := New(testOptions(t))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(ctx)
	}()

	url := fmt.Sprintf("http://%s/v1/turns/advance", server.Addr())
	body := `{"session_id":"s1","expected_current_entry_id":"e1","action":"done"}`
	var resp *http.Response
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err = http.Post(url, "application/json", strings.NewReader(body))
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("post advance: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
}
