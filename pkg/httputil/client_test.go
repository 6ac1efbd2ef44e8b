package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nickpio/top-earning-parser/pkg/config"
	"github.com/nickpio/top-earning-parser/pkg/logger"
)

// quietLogger keeps request logging out of test output.
func quietLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
}

func TestNewDefaults(t *testing.T) {
	c := New(quietLogger(), 30*time.Second)

	if c.hc.Timeout != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", c.hc.Timeout)
	}
	if !c.retry.enabled || c.retry.attempts != 3 {
		t.Errorf("retry = %+v, want enabled with 3 attempts", c.retry)
	}
	if c.limiter != nil {
		t.Error("limiter set by default, want none")
	}
}

func TestRetryConfiguration(t *testing.T) {
	c := New(quietLogger(), time.Second).WithRetry(5, 2*time.Second)
	if c.retry.attempts != 5 || c.retry.delay != 2*time.Second {
		t.Errorf("retry = %+v, want 5 attempts starting at 2s", c.retry)
	}

	c.DisableRetry()
	if c.retry.enabled {
		t.Error("retry still enabled after DisableRetry")
	}
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	p := retryPolicy{delay: 100 * time.Millisecond, maxDelay: time.Second}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second},
		{60, time.Second}, // shift overflow falls back to the cap
	}
	for _, tc := range cases {
		if got := p.backoff(tc.attempt); got != tc.want {
			t.Errorf("backoff(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestRetryableStatuses(t *testing.T) {
	for status, want := range map[int]bool{
		http.StatusOK:                  false,
		http.StatusNotFound:            false,
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusServiceUnavailable:  true,
	} {
		if got := retryable(status); got != want {
			t.Errorf("retryable(%d) = %v, want %v", status, got, want)
		}
	}
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		w.Write([]byte(`{"data":[{"universeId":920587237,"name":"Adopt Me!"}]}`))
	}))
	defer server.Close()

	var payload struct {
		Data []struct {
			UniverseID int64  `json:"universeId"`
			Name       string `json:"name"`
		} `json:"data"`
	}
	if err := New(quietLogger(), 5*time.Second).GetJSON(context.Background(), server.URL, &payload); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if len(payload.Data) != 1 || payload.Data[0].UniverseID != 920587237 {
		t.Errorf("decoded payload = %+v", payload)
	}
}

func TestGetJSONRejectsMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer server.Close()

	var payload map[string]interface{}
	err := New(quietLogger(), 5*time.Second).GetJSON(context.Background(), server.URL, &payload)
	if err == nil {
		t.Fatal("GetJSON() with malformed body succeeded, want error")
	}
}

func TestGetBodyReportsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such resource", http.StatusNotFound)
	}))
	defer server.Close()

	c := New(quietLogger(), 5*time.Second).DisableRetry()
	_, err := c.GetBody(context.Background(), server.URL)
	if err == nil {
		t.Fatal("GetBody() on 404 succeeded, want error")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %q, want the status code mentioned", err)
	}
}

func TestRetryRecoversFromServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	c := New(quietLogger(), 5*time.Second).WithRetry(3, time.Millisecond)
	body, err := c.GetBody(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GetBody() error = %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryStopsWhenContextExpires(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := New(quietLogger(), 5*time.Second).WithRetry(5, time.Second)
	start := time.Now()
	_, err := c.Get(ctx, server.URL)
	if err == nil {
		t.Fatal("Get() succeeded, want context error")
	}
	// The backoff wait must end with the context, not run the full
	// one second step.
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Get() took %v, want prompt exit on context expiry", elapsed)
	}
}

func TestRateLimitDelaysSecondRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	// 20 rps with burst 1: the second request waits roughly 50ms.
	c := New(quietLogger(), 5*time.Second).WithRateLimit(20, 1)

	start := time.Now()
	for i := 0; i < 2; i++ {
		if _, err := c.GetBody(context.Background(), server.URL); err != nil {
			t.Fatalf("request %d error = %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("two requests took %v, want the limiter to delay the second", elapsed)
	}
}
