package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/dispatch"
	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/session"
)

// Compile-time checks that Collector satisfies both observer interfaces.
var (
	_ session.Observer  = (*Collector)(nil)
	_ dispatch.Observer = (*Collector)(nil)
)

func testCollector() *Collector {
	return NewCollector(&config.MetricsConfig{Enabled: true, Namespace: "test"}, prometheus.NewRegistry())
}

func TestCollector_SessionEvents(t *testing.T) {
	c := testCollector()

	c.SessionMiss()
	c.SessionCreated()
	c.SessionHit()
	c.SessionHit()
	c.SessionEvicted(session.EvictCapacity)
	c.SessionEvicted(session.EvictIdle)
	c.SessionEvicted(session.EvictIdle)
	c.SessionsActive(3)

	if got := testutil.ToFloat64(c.sessions.createdTotal); got != 1 {
		t.Errorf("created = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.sessions.hitsTotal); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.sessions.missesTotal); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.sessions.evictedTotal.WithLabelValues("idle")); got != 2 {
		t.Errorf("evicted{idle} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.sessions.active); got != 3 {
		t.Errorf("active = %v, want 3", got)
	}
}

func TestCollector_DispatchOutcomes(t *testing.T) {
	c := testCollector()

	tests := []struct {
		name    string
		outcome dispatch.Outcome
	}{
		{
			name: "single success",
			outcome: dispatch.Outcome{
				Model:    "gpt-4o",
				Status:   200,
				Duration: 1200 * time.Millisecond,
				Usage:    &providers.Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
			},
		},
		{
			name: "stream cancelled",
			outcome: dispatch.Outcome{
				Model:    "gpt-4o",
				Stream:   true,
				Status:   499,
				Category: providers.CategoryRequestCancelled,
				Frames:   2,
				Err:      providers.Cancelled(nil),
			},
		},
		{
			name: "rate limited",
			outcome: dispatch.Outcome{
				Model:    "gpt-4o-mini",
				Status:   429,
				Category: providers.CategoryRateLimited,
				Err:      &providers.Error{Status: 429, Category: providers.CategoryRateLimited},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.DispatchStarted(tt.outcome.Model, tt.outcome.Stream)
			c.DispatchFinished(tt.outcome)
		})
	}

	if got := testutil.ToFloat64(c.dispatch.dispatchesTotal.WithLabelValues("gpt-4o", "single", "200")); got != 1 {
		t.Errorf("dispatches{gpt-4o,single,200} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.dispatch.dispatchesTotal.WithLabelValues("gpt-4o", "stream", "499")); got != 1 {
		t.Errorf("dispatches{gpt-4o,stream,499} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.dispatch.errorsTotal.WithLabelValues("rate_limited")); got != 1 {
		t.Errorf("errors{rate_limited} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.dispatch.framesTotal.WithLabelValues("gpt-4o")); got != 2 {
		t.Errorf("frames = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.dispatch.tokensTotal.WithLabelValues("gpt-4o", "completion")); got != 20 {
		t.Errorf("tokens{completion} = %v, want 20", got)
	}
	for _, m := range []string{"single", "stream"} {
		if got := testutil.ToFloat64(c.dispatch.inFlight.WithLabelValues(m)); got != 0 {
			t.Errorf("in_flight{%s} = %v, want 0 after all finished", m, got)
		}
	}
}

func TestCollector_Disabled(t *testing.T) {
	c := NewCollector(&config.MetricsConfig{Enabled: false}, prometheus.NewRegistry())

	c.SessionCreated()
	c.DispatchStarted("gpt-4o", false)
	c.DispatchFinished(dispatch.Outcome{Model: "gpt-4o", Status: 200})

	if got := testutil.ToFloat64(c.sessions.createdTotal); got != 0 {
		t.Errorf("created = %v, want 0 when disabled", got)
	}
	if got := testutil.CollectAndCount(c.dispatch.dispatchesTotal); got != 0 {
		t.Errorf("dispatch series = %d, want 0 when disabled", got)
	}
}

func TestCollector_ModelCardinality(t *testing.T) {
	c := testCollector()
	c.models = NewCardinalityLimiter(2)

	for i := 0; i < 5; i++ {
		c.DispatchFinished(dispatch.Outcome{Model: fmt.Sprintf("model-%d", i), Status: 200})
	}

	if got := testutil.ToFloat64(c.dispatch.dispatchesTotal.WithLabelValues("other", "single", "200")); got != 3 {
		t.Errorf("dispatches{other} = %v, want 3", got)
	}
	if c.models.Count() != 2 {
		t.Errorf("Count() = %d, want 2", c.models.Count())
	}
}

func TestCollector_Handler(t *testing.T) {
	c := testCollector()
	c.SessionCreated()
	c.DispatchFinished(dispatch.Outcome{Model: "gpt-4o", Status: 200, Err: nil})

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"test_sessions_created_total", "test_dispatches_total"} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %s", want)
		}
	}
}

func TestCollector_DefaultRegistry(t *testing.T) {
	c := NewCollector(&config.MetricsConfig{Enabled: true}, nil)

	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	found := false
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "go_") {
			found = true
			break
		}
	}
	if !found {
		t.Error("default registry lacks Go runtime metrics")
	}
}

func TestCardinalityLimiter(t *testing.T) {
	cl := NewCardinalityLimiter(2)

	if !cl.Allow("a") || !cl.Allow("b") {
		t.Fatal("first two values should be allowed")
	}
	if cl.Allow("c") {
		t.Error("third value allowed past the limit")
	}
	if !cl.Allow("a") {
		t.Error("known value rejected")
	}
}
