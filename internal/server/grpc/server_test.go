package grpc

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/Additional-Code/bistro/pkg/errorbank"
)

type flakyDB struct{ healthy atomic.Bool }

func (f *flakyDB) Check(context.Context) error {
	if f.healthy.Load() {
		return nil
	}
	return errors.New("connection refused")
}

func servingStatus(t *testing.T, srv interface {
	Check(context.Context, *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error)
}) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := srv.Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	return resp.GetStatus()
}

func TestWatchDatabaseFollowsCheck(t *testing.T) {
	srv := NewHealth()
	if got := servingStatus(t, srv); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("initial status = %v", got)
	}

	db := &flakyDB{}
	db.healthy.Store(true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go WatchDatabase(ctx, srv, db, 10*time.Millisecond, zap.NewNop())

	waitFor := func(want healthpb.HealthCheckResponse_ServingStatus) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if servingStatus(t, srv) == want {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		t.Fatalf("status never became %v", want)
	}

	waitFor(healthpb.HealthCheckResponse_SERVING)
	db.healthy.Store(false)
	waitFor(healthpb.HealthCheckResponse_NOT_SERVING)
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"not found", errorbank.NotFound("order not found"), codes.NotFound},
		{"unauthorized", errorbank.Unauthorized("invalid token"), codes.Unauthenticated},
		{"existing status", status.Error(codes.Unavailable, "down"), codes.Unavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := status.Code(toStatus(tt.err)); got != tt.want {
				t.Fatalf("code = %v, want %v", got, tt.want)
			}
		})
	}
}
