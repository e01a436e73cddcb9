package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/homeops/internal/actorctx"
	"github.com/geocoder89/homeops/internal/domain/user"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestAuthOutcome_Counts(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	p.AuthOutcome("login", "ok")
	p.AuthOutcome("login", "ok")
	p.AuthOutcome("login", "invalid_credentials")

	assert.Equal(t, 2.0, testutil.ToFloat64(p.AuthOutcomes.WithLabelValues("login", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.AuthOutcomes.WithLabelValues("login", "invalid_credentials")))
}

func TestSetBreakerState(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	p.SetBreakerState("open")
	assert.Equal(t, 2.0, testutil.ToFloat64(p.NotifierBreakerState))
	p.SetBreakerState("half_open")
	assert.Equal(t, 1.0, testutil.ToFloat64(p.NotifierBreakerState))
	p.SetBreakerState("closed")
	assert.Equal(t, 0.0, testutil.ToFloat64(p.NotifierBreakerState))
}

func TestObserveDB_ClassifiesErrors(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	dup := &pgconn.PgError{Code: "23505"}
	err := p.ObserveDB("users.create", func() error { return dup })
	require.ErrorIs(t, err, dup)

	_ = p.ObserveDB("users.find_by_id", func() error { return errors.New("i/o timeout") })
	_ = p.ObserveDB("users.list", func() error { return nil })

	assert.Equal(t, 1.0, testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("users.create", "unique_violation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("users.find_by_id", "timeout")))
	assert.Equal(t, 0.0, testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("users.list", "unknown")))
}

func TestGinMiddleware_RecordsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	p := NewProm(prometheus.NewRegistry())

	r := gin.New()
	r.Use(p.GinHandleMiddleware())
	r.GET("/api/users/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/abc", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(p.RequestsTotal.WithLabelValues("GET", "/api/users/:id", "204")))
}

func TestGinMiddleware_StreamingRoutesSkipLatency(t *testing.T) {
	gin.SetMode(gin.TestMode)
	p := NewProm(prometheus.NewRegistry())

	r := gin.New()
	r.Use(p.GinHandleMiddleware("/api/live"))
	r.GET("/api/live", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/live", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(p.RequestsTotal.WithLabelValues("GET", "/api/live", "200")))
	assert.Equal(t, 0, testutil.CollectAndCount(p.RequestsDuration))
	assert.Equal(t, 0, testutil.CollectAndCount(p.InFlight))
}

func TestLogger_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger("prod", &buf)

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	log.InfoContext(ctx, "auth.login", "user_id", "u1")
	span.End()

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "auth.login", line["msg"])
	assert.Equal(t, "homeops-api", line["service"])
	assert.Equal(t, span.SpanContext().TraceID().String(), line["trace_id"])
	assert.NotEmpty(t, line["span_id"])
}

func TestLogger_DebugOnlyInDev(t *testing.T) {
	var buf bytes.Buffer
	newLogger("prod", &buf).Debug("hidden")
	assert.Empty(t, buf.String())

	newLogger("dev", &buf).Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestObserveDB_MissIsNotAnError(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	err := p.ObserveDB("users.find_by_email", func() error { return user.ErrNotFound })
	require.ErrorIs(t, err, user.ErrNotFound)

	assert.Equal(t, 0, testutil.CollectAndCount(p.DbErrorsTotal))
	assert.Equal(t, 1, testutil.CollectAndCount(p.DbQueryDuration))
}

func TestLogger_AddsActor(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger("prod", &buf)

	ctx := actorctx.With(context.Background(), user.Context{ID: "mgr-1", Role: user.RoleManager})
	log.InfoContext(ctx, "users.update")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "mgr-1", line["actor_id"])
	assert.Equal(t, "MANAGER", line["actor_role"])
	assert.NotContains(t, line, "trace_id")
}
