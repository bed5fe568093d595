package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aerostream/aeros/internal/answer"
)

// fakeEngine returns a canned pipeline result.
type fakeEngine struct {
	res *answer.Result
	err error
}

func (f *fakeEngine) Answer(ctx context.Context, query string) (*answer.Result, error) {
	return f.res, f.err
}

func newTestServer(t *testing.T, engine answerer, cfg *Config) *Server {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.Logger = slog.Default()
	s, err := New(engine, cfg, prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(s.stopRL)
	return s
}

func postAsk(t *testing.T, s *Server, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleAsk_Success(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{res: &answer.Result{
		Answer:          "1.2 Nm\n\n*References:*\n• SOP-01.pdf (Page 4)",
		Citations:       []string{"SOP-01.pdf (Page 4)"},
		RetrievedChunks: []string{"Torque the arm bolts to 1.2 Nm."},
		Model:           "llama3.1:8b",
		RetrievalType:   "hybrid",
		Latency:         1500 * time.Millisecond,
	}}
	s := newTestServer(t, engine, nil)

	rec := postAsk(t, s, `{"question": "what torque?"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp askResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if !strings.Contains(resp.Answer, "1.2 Nm") {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Citations) != 1 || resp.Citations[0] != "SOP-01.pdf (Page 4)" {
		t.Errorf("citations = %v", resp.Citations)
	}
	if resp.RetrievalType != "hybrid" || resp.Model != "llama3.1:8b" {
		t.Errorf("metadata = %+v", resp)
	}
	if resp.LatencyMS != 1500 {
		t.Errorf("latency_ms = %d, want 1500", resp.LatencyMS)
	}
}

func TestHandleAsk_BadRequests(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeEngine{res: &answer.Result{}}, nil)

	for _, body := range []string{`not json`, `{}`, `{"question": "  "}`} {
		rec := postAsk(t, s, body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestHandleAsk_PipelineError(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeEngine{err: errors.New("qdrant down")}, nil)

	rec := postAsk(t, s, `{"question": "q"}`, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "qdrant") {
		t.Error("internal error detail leaked to client")
	}
}

func TestHandleAsk_AuthRequired(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeEngine{res: &answer.Result{}}, &Config{APIKey: "secret"})

	rec := postAsk(t, s, `{"question": "q"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rec.Code)
	}

	rec = postAsk(t, s, `{"question": "q"}`, map[string]string{"Authorization": "Bearer wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", rec.Code)
	}

	rec = postAsk(t, s, `{"question": "q"}`, map[string]string{"Authorization": "Bearer secret"})
	if rec.Code != http.StatusOK {
		t.Errorf("good token: status = %d, want 200", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeEngine{res: &answer.Result{}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

// stubPinger reports a fixed health state.
type stubPinger struct {
	name string
	err  error
}

func (p stubPinger) Ping(ctx context.Context) error { return p.err }
func (p stubPinger) Name() string                   { return p.name }

func TestHandleReady(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeEngine{res: &answer.Result{}}, &Config{
		Pingers: []Pinger{stubPinger{name: "ollama"}, stubPinger{name: "qdrant"}},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp readyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Ready || len(resp.Checks) != 2 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHandleReady_DependencyDown(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeEngine{res: &answer.Result{}}, &Config{
		Pingers: []Pinger{
			stubPinger{name: "ollama"},
			stubPinger{name: "qdrant", err: errors.New("connection refused")},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var resp readyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Ready {
		t.Error("ready should be false")
	}
	if resp.Checks[1].OK || resp.Checks[1].Error == "" {
		t.Errorf("qdrant check = %+v", resp.Checks[1])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{res: &answer.Result{RetrievalType: "semantic"}}
	s := newTestServer(t, engine, nil)

	// Drive one successful ask so the counters have samples.
	if rec := postAsk(t, s, `{"question": "q"}`, nil); rec.Code != http.StatusOK {
		t.Fatalf("ask status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `aeros_ask_requests_total{outcome="ok"} 1`) {
		t.Errorf("metrics output missing ask counter:\n%s", rec.Body.String())
	}
}

func TestRateLimiter_Enforced(t *testing.T) {
	t.Parallel()

	rl, stop := newRateLimiter(1, 2, slog.Default())
	t.Cleanup(stop)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := rl.middleware(ok)

	statuses := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/api/ask", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}
	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Errorf("burst requests rejected: %v", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", statuses[2])
	}
}

func TestRateLimiter_PerIP(t *testing.T) {
	t.Parallel()

	rl, stop := newRateLimiter(1, 1, slog.Default())
	t.Cleanup(stop)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := rl.middleware(ok)

	for i := range 3 {
		req := httptest.NewRequest(http.MethodPost, "/api/ask", nil)
		req.RemoteAddr = fmt.Sprintf("10.0.0.%d:1234", i)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("ip %d: status = %d, want 200 (independent buckets)", i, rec.Code)
		}
	}
}
