package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const townRecordService = "covey.townrecord.v1.TownRecordService"

// scriptedHealth answers health checks from a fixed list of outcomes and
// repeats the last one.
type scriptedHealth struct {
	mu       sync.Mutex
	statuses []grpc_health_v1.HealthCheckResponse_ServingStatus
	errs     []error
	services []string
}

func (s *scriptedHealth) Invoke(_ context.Context, method string, args, reply any, _ ...gogrpc.CallOption) error {
	if method != grpc_health_v1.Health_Check_FullMethodName {
		return status.Errorf(codes.Unimplemented, "unexpected method %s", method)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := min(len(s.services), len(s.statuses)-1)
	s.services = append(s.services, args.(*grpc_health_v1.HealthCheckRequest).GetService())
	if i < len(s.errs) && s.errs[i] != nil {
		return s.errs[i]
	}
	reply.(*grpc_health_v1.HealthCheckResponse).Status = s.statuses[i]
	return nil
}

func (s *scriptedHealth) NewStream(context.Context, *gogrpc.StreamDesc, string, ...gogrpc.CallOption) (gogrpc.ClientStream, error) {
	return nil, errors.New("streams not supported")
}

func (s *scriptedHealth) checked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.services)
}

type recordedSleep struct {
	waits []time.Duration
}

func (r *recordedSleep) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

type lines []string

func (l *lines) logf(format string, args ...any) {
	*l = append(*l, fmt.Sprintf(format, args...))
}

func TestWaitForHealthBacksOffToCeiling(t *testing.T) {
	notServing := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	conn := &scriptedHealth{statuses: []grpc_health_v1.HealthCheckResponse_ServingStatus{
		notServing, notServing, notServing, notServing, notServing, notServing,
		grpc_health_v1.HealthCheckResponse_SERVING,
	}}
	var slept recordedSleep

	if err := waitForHealth(context.Background(), conn, townRecordService, nil, slept.sleep); err != nil {
		t.Fatalf("wait for health: %v", err)
	}
	want := []time.Duration{
		healthInitialBackoff,
		2 * healthInitialBackoff,
		4 * healthInitialBackoff,
		healthMaxBackoff,
		healthMaxBackoff,
		healthMaxBackoff,
	}
	if !slices.Equal(slept.waits, want) {
		t.Fatalf("expected backoff %v, got %v", want, slept.waits)
	}
	if got := len(conn.checked()); got != 7 {
		t.Fatalf("expected 7 checks, got %d", got)
	}
}

func TestWaitForHealthChecksNamedService(t *testing.T) {
	conn := &scriptedHealth{statuses: []grpc_health_v1.HealthCheckResponse_ServingStatus{grpc_health_v1.HealthCheckResponse_SERVING}}
	var slept recordedSleep

	if err := waitForHealth(context.Background(), conn, townRecordService, nil, slept.sleep); err != nil {
		t.Fatalf("wait for health: %v", err)
	}
	if got := conn.checked(); !slices.Equal(got, []string{townRecordService}) {
		t.Fatalf("expected one check of %q, got %v", townRecordService, got)
	}
	if len(slept.waits) != 0 {
		t.Fatalf("serving service must not wait, got %v", slept.waits)
	}
}

func TestWaitForHealthLogsPerService(t *testing.T) {
	conn := &scriptedHealth{
		statuses: []grpc_health_v1.HealthCheckResponse_ServingStatus{
			grpc_health_v1.HealthCheckResponse_UNKNOWN,
			grpc_health_v1.HealthCheckResponse_NOT_SERVING,
			grpc_health_v1.HealthCheckResponse_SERVING,
		},
		errs: []error{status.Error(codes.Unavailable, "connection refused")},
	}
	var slept recordedSleep
	var logged lines

	if err := waitForHealth(context.Background(), conn, townRecordService, logged.logf, slept.sleep); err != nil {
		t.Fatalf("wait for health: %v", err)
	}
	if len(logged) != 3 {
		t.Fatalf("expected 3 log lines, got %q", logged)
	}
	for _, line := range logged {
		if !strings.Contains(line, `"`+townRecordService+`"`) {
			t.Fatalf("log line does not name the service: %q", line)
		}
	}
	if !strings.Contains(logged[0], "connection refused") {
		t.Fatalf("expected transport error in first line, got %q", logged[0])
	}
	if !strings.Contains(logged[1], "status NOT_SERVING") {
		t.Fatalf("expected serving status in second line, got %q", logged[1])
	}
	if !strings.HasSuffix(logged[2], "is SERVING") {
		t.Fatalf("expected serving line last, got %q", logged[2])
	}
}

func TestWaitForHealthStopsWhenWaitFails(t *testing.T) {
	conn := &scriptedHealth{statuses: []grpc_health_v1.HealthCheckResponse_ServingStatus{grpc_health_v1.HealthCheckResponse_NOT_SERVING}}
	stop := func(context.Context, time.Duration) error { return context.DeadlineExceeded }

	err := waitForHealth(context.Background(), conn, townRecordService, nil, stop)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if got := len(conn.checked()); got != 1 {
		t.Fatalf("expected a single check, got %d", got)
	}
}

func TestWaitForHealthRejectsNilConn(t *testing.T) {
	if err := WaitForHealth(context.Background(), nil, townRecordService, nil); err == nil {
		t.Fatal("expected error for nil connection")
	}
}

func TestWaitForHealthOverBufconn(t *testing.T) {
	conn, setStatus := startBufconnHealth(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	go func() {
		time.Sleep(100 * time.Millisecond)
		setStatus(grpc_health_v1.HealthCheckResponse_SERVING)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := WaitForHealth(ctx, conn, townRecordService, nil); err != nil {
		t.Fatalf("wait for health after transition: %v", err)
	}
}

func TestWaitForHealthUnknownServiceTimesOut(t *testing.T) {
	conn, _ := startBufconnHealth(t, grpc_health_v1.HealthCheckResponse_SERVING)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	err := WaitForHealth(ctx, conn, "covey.unknown.v1.Service", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error for unregistered service, got %v", err)
	}
}

func startBufconnHealth(t *testing.T, initial grpc_health_v1.HealthCheckResponse_ServingStatus) (*gogrpc.ClientConn, func(grpc_health_v1.HealthCheckResponse_ServingStatus)) {
	t.Helper()

	listener := bufconn.Listen(1 << 20)
	server := gogrpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus(townRecordService, initial)
	go func() {
		_ = server.Serve(listener)
	}()

	conn, err := gogrpc.NewClient(
		"passthrough:///bufnet",
		gogrpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufconn: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
		server.Stop()
		_ = listener.Close()
	})

	return conn, func(next grpc_health_v1.HealthCheckResponse_ServingStatus) {
		healthServer.SetServingStatus(townRecordService, next)
	}
}
