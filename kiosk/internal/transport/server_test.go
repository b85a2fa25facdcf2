package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/Krimson/triage-kiosk/kiosk/internal/triage"
)

func TestServer_ServesAndShutsDown(t *testing.T) {
	f := newFixture(triage.ModeOrdinal)
	f.mirror.Set("Aguardando", "", "", "")

	srv, err := Listen("127.0.0.1:0", f.handler)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve() }()

	resp, err := http.Get("http://" + srv.Addr().String() + "/oled.json")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if !resp.Close {
		t.Error("Expected connection to be closed after the response")
	}
	var doc OLEDDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if doc.L1 != "Aguardando" {
		t.Errorf("Expected l1 Aguardando, got %q", doc.L1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Errorf("Serve returned error: %v", err)
	}
}
