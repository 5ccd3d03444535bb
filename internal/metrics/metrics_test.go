package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/goliatone/go-blog/internal/metrics"
)

func TestObserveBuildCountsOutcomes(t *testing.T) {
	m := metrics.New()
	m.ObserveBuild(nil, 120*time.Millisecond, 12)
	m.ObserveBuild(errors.New("boom"), time.Second, 0)
	m.FileWritten("page")
	m.FileWritten("page")
	m.FileSkipped("asset")

	count, err := testutil.GatherAndCount(m.Registry(), "blog_builds_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected ok and error series, got %d", count)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := metrics.New()
	m.ObserveLinkCheck(nil, 3)
	m.ObserveRequest(http.StatusNotFound)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{"blog_broken_links 3", `blog_http_requests_total{code="404"} 1`, `blog_link_checks_total{status="ok"} 1`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in exposition:\n%s", want, body)
		}
	}
}
