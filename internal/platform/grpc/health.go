package grpc

import (
	"context"
	"fmt"
	"time"

	gogrpc "google.golang.org/grpc"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	healthInitialBackoff = 200 * time.Millisecond
	healthMaxBackoff     = time.Second
	healthCheckTimeout   = time.Second
)

// WaitForHealth blocks until the health check for service reports SERVING or
// the context ends. Retries back off from 200ms up to one second.
func WaitForHealth(ctx context.Context, conn gogrpc.ClientConnInterface, service string, logf func(string, ...any)) error {
	return waitForHealth(ctx, conn, service, logf, sleepContext)
}

func waitForHealth(ctx context.Context, conn gogrpc.ClientConnInterface, service string, logf func(string, ...any), sleep func(context.Context, time.Duration) error) error {
	if conn == nil {
		return fmt.Errorf("gRPC connection is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	healthClient := grpc_health_v1.NewHealthClient(conn)
	backoff := healthInitialBackoff
	for {
		callCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		response, err := healthClient.Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
		cancel()
		if err == nil && response.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING {
			if logf != nil {
				logf("gRPC health check for %q is SERVING", service)
			}
			return nil
		}
		if logf != nil {
			if err != nil {
				logf("waiting for gRPC health of %q: %v", service, err)
			} else {
				logf("waiting for gRPC health of %q: status %s", service, response.GetStatus().String())
			}
		}

		if err := sleep(ctx, backoff); err != nil {
			return fmt.Errorf("wait for gRPC health: %w", err)
		}
		backoff = min(backoff*2, healthMaxBackoff)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
