package slack

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redeelle/rodrigo-flow-app/internal/analytics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func alertReport() analytics.Report {
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	return analytics.Report{
		Range: analytics.NewRange(day, day.AddDate(0, 0, 6)),
		Start: "2024-03-10",
		End:   "2024-03-16",
		Application: analytics.Rate{
			Applied: 6, NotApplied: 4, Total: 10, Percent: 60, HasApplied: true,
		},
		Alerts: analytics.AlertTable{
			Mode:       analytics.AlertOccurrences,
			Archetypes: []string{"O Medroso", "O Sedutor"},
			Rows: []analytics.AlertRow{
				{Submitter: "Bruno", Counts: map[string]int{"O Sedutor": 2, "O Medroso": 1}, Total: 3},
				{Submitter: "Ana", Counts: map[string]int{"O Medroso": 1}, Total: 1},
			},
		},
	}
}

func TestFormatDigest_WithAlerts(t *testing.T) {
	msg := formatDigest(alertReport())

	checks := []string{
		"2024-03-10 a 2024-03-16",
		"60.00%",
		"6 de 10",
		"Vendedores em alerta: 2",
		"1. Bruno | 3",
		"2. Ana | 1",
	}
	for _, check := range checks {
		if !strings.Contains(msg, check) {
			t.Errorf("expected message to contain %q, got:\n%s", check, msg)
		}
	}
}

func TestFormatDigest_Empty(t *testing.T) {
	msg := formatDigest(analytics.Report{Start: "2024-03-10", End: "2024-03-10", Empty: true})
	if !strings.Contains(msg, "Nenhuma interação") {
		t.Errorf("expected empty message, got %q", msg)
	}
}

func TestFormatDigest_NoAlerts(t *testing.T) {
	rep := alertReport()
	rep.Alerts = analytics.AlertTable{}
	rep.Application = analytics.Rate{NotApplied: 3, Total: 3}

	msg := formatDigest(rep)
	if !strings.Contains(msg, "nenhuma em 3") || !strings.Contains(msg, "Nenhum vendedor") {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestFormatAlertBreakdown(t *testing.T) {
	got := formatAlertBreakdown(alertReport().Alerts)
	want := "*Bruno*\n  • O Medroso: 1\n  • O Sedutor: 2\n*Ana*\n  • O Medroso: 1"
	if got != want {
		t.Errorf("formatAlertBreakdown() = %q, want %q", got, want)
	}
}

func TestPostAlertDigest_PostsHeaderAndThread(t *testing.T) {
	var mu sync.Mutex
	var payloads []map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer xoxb-test" {
			t.Errorf("expected Bearer xoxb-test, got %q", r.Header.Get("Authorization"))
		}

		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		json.Unmarshal(body, &payload)

		mu.Lock()
		payloads = append(payloads, payload)
		mu.Unlock()

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"ts": "1234567890.123456",
		})
	}))
	defer server.Close()

	p := NewPoster("xoxb-test", "C123", discardLogger())
	p.apiURL = server.URL

	ts, err := p.PostAlertDigest(context.Background(), alertReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts != "1234567890.123456" {
		t.Errorf("expected ts 1234567890.123456, got %q", ts)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(payloads) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(payloads))
	}
	if payloads[0]["channel"] != "C123" {
		t.Errorf("expected channel C123, got %v", payloads[0]["channel"])
	}
	if payloads[1]["thread_ts"] != "1234567890.123456" {
		t.Errorf("expected thread reply to header, got %v", payloads[1]["thread_ts"])
	}
}

func TestPostAlertDigest_NoThreadWithoutAlerts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "ts": "1.2"})
	}))
	defer server.Close()

	p := NewPoster("xoxb-test", "C123", discardLogger())
	p.apiURL = server.URL

	if _, err := p.PostAlertDigest(context.Background(), analytics.Report{Empty: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 post, got %d", n)
	}
}

func TestPostAlertDigest_SlackError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"ok":    false,
			"error": "channel_not_found",
		})
	}))
	defer server.Close()

	p := NewPoster("xoxb-test", "C123", discardLogger())
	p.apiURL = server.URL

	_, err := p.PostAlertDigest(context.Background(), alertReport())
	if err == nil || !strings.Contains(err.Error(), "channel_not_found") {
		t.Fatalf("expected channel_not_found error, got %v", err)
	}
}
