package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ai-speech-blockifier/internal/observability/metrics"
)

func TestServer_Endpoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	m.RecordSubmitted("mock")

	var ready atomic.Bool
	s := NewServer(":0", reg, ready.Load)

	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{"/healthz", http.StatusOK, "ok"},
		{"/readyz", http.StatusServiceUnavailable, "not ready"},
		{"/metrics", http.StatusOK, "s2t_blockifier_jobs_submitted_total"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("expected body to contain %q, got %q", tt.wantBody, rec.Body.String())
			}
		})
	}

	ready.Store(true)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected ready after flag set, got %d", rec.Code)
	}
}

func TestUnaryServerInterceptor_RecordsCode(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	intercept := UnaryServerInterceptor(m)
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	_, _ = intercept(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	})
	_, err := intercept(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "unknown service")
	})
	if status.Code(err) != codes.NotFound {
		t.Errorf("expected the handler error to pass through, got %v", err)
	}

	if got := testutil.ToFloat64(m.GRPCCalls.WithLabelValues(info.FullMethod, "OK")); got != 1 {
		t.Errorf("expected 1 OK call, got %v", got)
	}
	if got := testutil.ToFloat64(m.GRPCCalls.WithLabelValues(info.FullMethod, "NotFound")); got != 1 {
		t.Errorf("expected 1 NotFound call, got %v", got)
	}
}

func TestStreamServerInterceptor_RecordsCode(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	intercept := StreamServerInterceptor(m)
	info := &grpc.StreamServerInfo{FullMethod: "/grpc.health.v1.Health/Watch"}

	err := intercept(nil, nil, info, func(srv interface{}, ss grpc.ServerStream) error {
		return errors.New("stream broke")
	})
	if err == nil {
		t.Fatal("expected error to pass through")
	}
	if got := testutil.ToFloat64(m.GRPCCalls.WithLabelValues(info.FullMethod, "Unknown")); got != 1 {
		t.Errorf("expected 1 Unknown call, got %v", got)
	}
}
