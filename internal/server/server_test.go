package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/oauth2"

	"github.com/desertthunder/plylist/internal/manager"
	"github.com/desertthunder/plylist/internal/shared"
	"github.com/desertthunder/plylist/internal/storage"
)

func TestBasicRouter(t *testing.T) {
	t.Run("method filtering", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("pong"))
		}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
			t.Errorf("unexpected GET response %d %q", rec.Code, rec.Body.String())
		}

		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, req)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(mw("first"), mw("second"))
		r.Handle(http.MethodGet, "/", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			order = append(order, "handler")
		}))
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("logging middleware", func(t *testing.T) {
		var buf bytes.Buffer
		logger := log.New(&buf)

		r := NewBasicRouter()
		r.Use(Logging(logger))
		r.Handle(http.MethodGet, "/boom", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

		if !strings.Contains(buf.String(), "request failed") || !strings.Contains(buf.String(), "502") {
			t.Errorf("expected failed request logged, got %q", buf.String())
		}
	})
}

func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"access","refresh_token":"refresh","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOAuthHandler(t *testing.T) {
	tokenServer := newTokenServer(t)
	config := &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: tokenServer.URL, AuthStyle: oauth2.AuthStyleInParams},
		RedirectURL:  "http://127.0.0.1:3000/callback",
	}

	receive := func(t *testing.T, h *OAuthHandler) OAuthResult {
		t.Helper()
		select {
		case res := <-h.Result():
			return res
		case <-time.After(time.Second):
			t.Fatal("no result received")
			return OAuthResult{}
		}
	}

	t.Run("exchanges the code", func(t *testing.T) {
		h := NewOAuthHandler(config, "state-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=state-1&code=good-code", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		res := receive(t, h)
		if res.Error() != nil {
			t.Fatalf("unexpected error %v", res.Error())
		}
		if res.Token == nil || res.Token.AccessToken != "access" || res.Token.RefreshToken != "refresh" {
			t.Errorf("unexpected token %+v", res.Token)
		}
	})

	t.Run("rejects a bad state", func(t *testing.T) {
		h := NewOAuthHandler(config, "state-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=other&code=good-code", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if res := receive(t, h); !errors.Is(res.Error(), shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", res.Error())
		}
	})

	t.Run("reports provider errors", func(t *testing.T) {
		h := NewOAuthHandler(config, "s")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&error=access_denied", nil))

		res := receive(t, h)
		if !errors.Is(res.Error(), shared.ErrAuthFailed) || !strings.Contains(res.Error().Error(), "access_denied") {
			t.Errorf("unexpected error %v", res.Error())
		}
	})

	t.Run("failed exchange", func(t *testing.T) {
		h := NewOAuthHandler(config, "s")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=bad-code", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if res := receive(t, h); res.Error() == nil {
			t.Error("expected an error")
		}
	})

	t.Run("only one callback is processed", func(t *testing.T) {
		h := NewOAuthHandler(config, "s")
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=s&code=good-code", nil))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=good-code", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for a replayed callback, got %d", rec.Code)
		}
	})
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "plylist_test_total", Help: "test counter"})
	reg.MustRegister(counter)
	counter.Inc()

	r := NewBasicRouter()
	r.Handler(NewMetricsHandler(reg))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "plylist_test_total 1") {
		t.Errorf("expected counter in output, got %q", rec.Body.String())
	}
}

type failingStats struct{}

func (failingStats) Stats() (manager.Stats, error) {
	return manager.Stats{}, shared.ErrStorageUnavailable
}

func TestStatusHandler(t *testing.T) {
	t.Run("reports stats", func(t *testing.T) {
		store, err := storage.NewFileStore(t.TempDir(), nil)
		if err != nil {
			t.Fatalf("NewFileStore() error = %v", err)
		}
		m := manager.New(store, manager.Options{})
		if _, err := m.Create("One", "", nil); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		rec := httptest.NewRecorder()
		NewStatusHandler(m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		var body map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if body["status"] != "ok" {
			t.Errorf("expected ok, got %v", body["status"])
		}
		stats, _ := body["stats"].(map[string]any)
		if stats["total_playlists"] != float64(1) {
			t.Errorf("expected 1 playlist, got %v", stats["total_playlists"])
		}
	})

	t.Run("storage failure", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewStatusHandler(failingStats{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", rec.Code)
		}
	})
}

func TestServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: NewBasicRouter()}

	done := make(chan error, 1)
	go func() { done <- Serve(ctx, srv, nil) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
