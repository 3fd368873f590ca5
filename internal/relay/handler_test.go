package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matheusdanoite/phomemo-go/internal/config"
	"github.com/matheusdanoite/phomemo-go/internal/link"
	"github.com/matheusdanoite/phomemo-go/internal/printjob"
)

type stubConn struct {
	mu     sync.Mutex
	writes int
	done   chan struct{}
}

func (c *stubConn) ResolveEndpoints() error           { return nil }
func (c *stubConn) Subscribe(func(data []byte)) error { return nil }
func (c *stubConn) Done() <-chan struct{}             { return c.done }
func (c *stubConn) Close() error                      { return nil }

func (c *stubConn) Write(data []byte) error {
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	return nil
}

type stubRadio struct{ conn *stubConn }

func (r *stubRadio) Scan(ctx context.Context, match func(link.Advertisement) bool) (link.Advertisement, error) {
	return link.Advertisement{Name: "T02", Address: "AA:BB:CC:DD:EE:FF"}, nil
}

func (r *stubRadio) Connect(ctx context.Context, adv link.Advertisement) (link.Conn, error) {
	return r.conn, nil
}

// newTestRelay wires a handler over a link that comes up against a stub
// printer. connected=false leaves the link idle.
func newTestRelay(t *testing.T, connected bool) (http.Handler, *config.Store) {
	t.Helper()
	store := config.NewMemoryStore()

	radio := &stubRadio{conn: &stubConn{done: make(chan struct{})}}
	lnk := link.New(radio, nil, nil, time.Hour)
	if connected {
		states := lnk.StateChanges()
		ctx, cancel := context.WithCancel(context.Background())
		t.Cleanup(cancel)
		go lnk.Run(ctx)
		deadline := time.After(2 * time.Second)
		for ready := false; !ready; {
			select {
			case s := <-states:
				ready = s == link.Ready
			case <-deadline:
				t.Fatal("link never became ready")
			}
		}
	}

	ex := printjob.NewExecutor(lnk, nil, time.Millisecond, nil)
	return NewHandler(lnk, ex, store, nil), store
}

func encodePNG(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, TestPattern()); err != nil {
		t.Fatal(err)
	}
	return &buf
}

func TestStatusIdle(t *testing.T) {
	h, _ := newTestRelay(t, false)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp statusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.State != "disconnected" {
		t.Errorf("state = %q, want disconnected", resp.State)
	}
	if resp.Printer != nil {
		t.Error("printer status reported with no connection")
	}
	if resp.Settings.Algorithm != "floyd-steinberg" {
		t.Errorf("settings algorithm = %q", resp.Settings.Algorithm)
	}
}

func TestPrintBadImage(t *testing.T) {
	h, _ := newTestRelay(t, false)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/print", strings.NewReader("not an image")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestPrintWhileDisconnected(t *testing.T) {
	h, _ := newTestRelay(t, false)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/print", encodePNG(t)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestPrintSuccess(t *testing.T) {
	h, _ := newTestRelay(t, true)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/print", encodePNG(t)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp printResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	// The pattern is 384x240, so three 100-row-or-less frames.
	if resp.Frames != 3 || resp.Rows != 240 {
		t.Errorf("printed %d frames / %d rows, want 3 / 240", resp.Frames, resp.Rows)
	}
}

func TestPrintTest(t *testing.T) {
	h, _ := newTestRelay(t, true)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/print/test", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	h, store := newTestRelay(t, false)

	body := strings.NewReader(`{"algorithm":"halftone","intensity":3.5,"feedLines":999,"rotate":true}`)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("PUT", "/settings", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	got := store.Get()
	if got.Algorithm != "halftone" || !got.Rotate {
		t.Errorf("stored settings = %+v", got)
	}
	if got.Intensity != 1 {
		t.Errorf("intensity = %v, want clamped to 1", got.Intensity)
	}
	if got.FeedLines != 255 {
		t.Errorf("feedLines = %d, want clamped to 255", got.FeedLines)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/settings", nil))
	var round config.Settings
	if err := json.NewDecoder(rec.Body).Decode(&round); err != nil {
		t.Fatal(err)
	}
	if round != got {
		t.Errorf("GET /settings = %+v, want %+v", round, got)
	}
}

func TestSettingsRejectsGarbage(t *testing.T) {
	h, _ := newTestRelay(t, false)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("PUT", "/settings", strings.NewReader("{")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
