// Package grpc holds the gRPC client plumbing shared by covey.town clients.
package grpc

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Connector creates a client connection for a target.
type Connector interface {
	NewClient(target string, opts ...gogrpc.DialOption) (*gogrpc.ClientConn, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(target string, opts ...gogrpc.DialOption) (*gogrpc.ClientConn, error)

// NewClient implements Connector for ConnectorFunc.
func (fn ConnectorFunc) NewClient(target string, opts ...gogrpc.DialOption) (*gogrpc.ClientConn, error) {
	return fn(target, opts...)
}

// DialStage describes where a dial attempt failed.
type DialStage string

const (
	// DialStageConnect indicates the client connection could not be created.
	DialStageConnect DialStage = "connect"
	// DialStageHealth indicates the health check never reported SERVING.
	DialStageHealth DialStage = "health"
)

// DialError wraps dial and health check failures with a stage indicator.
type DialError struct {
	Target string
	Stage  DialStage
	Err    error
}

// Error implements the error interface.
func (e *DialError) Error() string {
	if e == nil {
		return "gRPC dial error"
	}
	if e.Target == "" {
		return fmt.Sprintf("gRPC %s error: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("gRPC %s error for %s: %v", e.Stage, e.Target, e.Err)
}

// Unwrap returns the underlying error.
func (e *DialError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// DialConfig describes one health-checked client connection.
type DialConfig struct {
	// Target is the gRPC target, usually host:port.
	Target string
	// Timeout bounds connection setup and the health wait together.
	Timeout time.Duration
	// HealthService is the service name sent in health checks; empty checks
	// the whole server.
	HealthService string
	// Connector overrides grpc.NewClient, mainly for tests.
	Connector Connector
	// Logf receives health wait progress when set.
	Logf func(string, ...any)
	// Options are appended after DefaultClientDialOptions.
	Options []gogrpc.DialOption
}

// DefaultClientDialOptions returns the standard options for plaintext
// service-to-service clients. The OTel stats handler propagates trace context
// on every call when a TracerProvider is registered.
func DefaultClientDialOptions() []gogrpc.DialOption {
	return []gogrpc.DialOption{
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
		gogrpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
}

// DialWithHealth creates a client connection and waits until the health
// check reports SERVING. The connection is closed if the health wait fails.
func DialWithHealth(ctx context.Context, cfg DialConfig) (*gogrpc.ClientConn, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Target == "" {
		return nil, &DialError{Stage: DialStageConnect, Err: fmt.Errorf("target is required")}
	}
	connector := cfg.Connector
	if connector == nil {
		connector = ConnectorFunc(gogrpc.NewClient)
	}

	dialCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	opts := append(DefaultClientDialOptions(), cfg.Options...)
	conn, err := connector.NewClient(cfg.Target, opts...)
	if err != nil {
		return nil, &DialError{Target: cfg.Target, Stage: DialStageConnect, Err: err}
	}
	if err := WaitForHealth(dialCtx, conn, cfg.HealthService, cfg.Logf); err != nil {
		_ = conn.Close()
		return nil, &DialError{Target: cfg.Target, Stage: DialStageHealth, Err: err}
	}
	return conn, nil
}
