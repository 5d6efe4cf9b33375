package towns

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/louisbranch/covey.town/internal/rtc"
	"github.com/louisbranch/covey.town/internal/town"
)

type fakeRecords struct {
	towns    []town.Summary
	joined   []string
	created  []town.CreateRequest
	updated  []town.UpdateRequest
	deleted  []town.DeleteRequest
	closed   bool
	joinData town.JoinInitData
}

func (f *fakeRecords) ListTowns(context.Context) ([]town.Summary, error) {
	return f.towns, nil
}

func (f *fakeRecords) CreateTown(_ context.Context, req town.CreateRequest) (town.Created, error) {
	f.created = append(f.created, req)
	return town.Created{TownID: "room7", Password: "s3cret"}, nil
}

func (f *fakeRecords) JoinTown(_ context.Context, username, townID string) (town.JoinInitData, error) {
	f.joined = append(f.joined, username+"@"+townID)
	data := f.joinData
	data.TownID = townID
	return data, nil
}

func (f *fakeRecords) UpdateTown(_ context.Context, req town.UpdateRequest) error {
	f.updated = append(f.updated, req)
	return nil
}

func (f *fakeRecords) DeleteTown(_ context.Context, req town.DeleteRequest) error {
	f.deleted = append(f.deleted, req)
	return nil
}

func (f *fakeRecords) Close() error {
	f.closed = true
	return nil
}

type nopSession struct{}

func (nopSession) Close() error { return nil }

type testRun struct {
	records     *fakeRecords
	credentials []string
	stdout      bytes.Buffer
	stderr      bytes.Buffer
}

func newTestRun() *testRun {
	return &testRun{records: &fakeRecords{
		joinData: town.JoinInitData{UserID: "user-1", ProviderCredential: "tok-1", FriendlyName: "Lobby"},
	}}
}

func (r *testRun) deps() deps {
	return deps{
		dial: func(context.Context, string) (recordClient, error) {
			return r.records, nil
		},
		connector: rtc.ConnectorFunc(func(_ context.Context, credential string) (rtc.Session, error) {
			r.credentials = append(r.credentials, credential)
			return nopSession{}, nil
		}),
		clock:  clockwork.NewFakeClock(),
		stdout: &r.stdout,
		stderr: &r.stderr,
	}
}

func (r *testRun) run(t *testing.T, cfg Config) error {
	t.Helper()
	if cfg.Locale == "" {
		cfg.Locale = "en-US"
	}
	return run(context.Background(), cfg, r.deps())
}

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("towns", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"list"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.RecordAddr != "townrecord:8081" {
		t.Fatalf("expected default record addr, got %q", cfg.RecordAddr)
	}
	if cfg.RTCURL != "ws://rtc:8082/session" {
		t.Fatalf("expected default rtc url, got %q", cfg.RTCURL)
	}
	if cfg.Locale != "en-US" {
		t.Fatalf("expected default locale, got %q", cfg.Locale)
	}
	if cfg.Command != "list" || len(cfg.Args) != 0 {
		t.Fatalf("unexpected command %q %v", cfg.Command, cfg.Args)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("COVEY_TOWN_USERNAME", "env-alice")
	t.Setenv("COVEY_TOWN_RECORD_ADDR", "env:9000")

	fs := flag.NewFlagSet("towns", flag.ContinueOnError)
	args := []string{"-record-addr", "flag:9001", "-locale", "pt-BR", "join", "-town", "room1"}
	cfg, err := ParseConfig(fs, args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.RecordAddr != "flag:9001" {
		t.Fatalf("expected flag record addr, got %q", cfg.RecordAddr)
	}
	if cfg.Username != "env-alice" {
		t.Fatalf("expected env username, got %q", cfg.Username)
	}
	if cfg.Locale != "pt-BR" {
		t.Fatalf("expected flag locale, got %q", cfg.Locale)
	}
	if cfg.Command != "join" || strings.Join(cfg.Args, " ") != "-town room1" {
		t.Fatalf("unexpected command %q %v", cfg.Command, cfg.Args)
	}
}

func TestParseConfigRequiresCommand(t *testing.T) {
	fs := flag.NewFlagSet("towns", flag.ContinueOnError)
	if _, err := ParseConfig(fs, nil); err == nil {
		t.Fatal("expected error without a command")
	}
}

func TestRunUnknownCommandDoesNotDial(t *testing.T) {
	r := newTestRun()
	d := r.deps()
	d.dial = func(context.Context, string) (recordClient, error) {
		t.Fatal("dial must not run for an unknown command")
		return nil, nil
	}
	if err := run(context.Background(), Config{Command: "dance"}, d); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestRunDialFailure(t *testing.T) {
	r := newTestRun()
	d := r.deps()
	d.dial = func(context.Context, string) (recordClient, error) {
		return nil, errors.New("connection refused")
	}
	err := run(context.Background(), Config{Command: "list"}, d)
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected dial error, got %v", err)
	}
}

func TestRunListPrintsOrderedDirectory(t *testing.T) {
	r := newTestRun()
	r.records.towns = []town.Summary{
		{ID: "quiet", FriendlyName: "Quiet", CurrentOccupancy: 1, MaximumOccupancy: 10},
		{ID: "packed", FriendlyName: "Packed", CurrentOccupancy: 10, MaximumOccupancy: 10},
	}
	if err := r.run(t, Config{Command: "list"}); err != nil {
		t.Fatalf("list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(r.stdout.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got %q", r.stdout.String())
	}
	if !strings.HasPrefix(lines[1], "packed") || !strings.HasSuffix(lines[1], "full") {
		t.Fatalf("expected busiest town first and marked full, got %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "quiet") || !strings.HasSuffix(lines[2], "yes") {
		t.Fatalf("unexpected second row %q", lines[2])
	}
	if !r.records.closed {
		t.Fatal("record client must be closed")
	}
}

func TestRunWatchStopsAfterCount(t *testing.T) {
	r := newTestRun()
	r.records.towns = []town.Summary{{ID: "room1", FriendlyName: "Lobby", CurrentOccupancy: 2, MaximumOccupancy: 5}}
	if err := r.run(t, Config{Command: "watch", Args: []string{"-count", "1"}}); err != nil {
		t.Fatalf("watch: %v", err)
	}
	out := r.stdout.String()
	if !strings.Contains(out, "refreshed") || !strings.Contains(out, "room1") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRunJoinDetached(t *testing.T) {
	r := newTestRun()
	cfg := Config{Command: "join", Username: "Alice", Args: []string{"-detach", "room1"}}
	if err := r.run(t, cfg); err != nil {
		t.Fatalf("join: %v", err)
	}
	if len(r.records.joined) != 1 || r.records.joined[0] != "Alice@room1" {
		t.Fatalf("unexpected joins %v", r.records.joined)
	}
	if len(r.credentials) != 1 || r.credentials[0] != "tok-1" {
		t.Fatalf("expected one connect with tok-1, got %v", r.credentials)
	}
	if !strings.Contains(r.stdout.String(), "connected to room1") {
		t.Fatalf("unexpected output %q", r.stdout.String())
	}
}

func TestRunJoinWithoutUsernameFails(t *testing.T) {
	r := newTestRun()
	err := r.run(t, Config{Command: "join", Args: []string{"-town", "room1", "-detach"}})
	if !errors.Is(err, &town.ValidationError{Field: town.FieldUsername}) {
		t.Fatalf("expected username validation error, got %v", err)
	}
	if len(r.records.joined) != 0 {
		t.Fatal("join must not be called")
	}
	if !strings.Contains(r.stderr.String(), "Please select a username") {
		t.Fatalf("expected notification on stderr, got %q", r.stderr.String())
	}
}

func TestRunCreateDetached(t *testing.T) {
	r := newTestRun()
	cfg := Config{Command: "create", Username: "Alice", Args: []string{"-name", "Garden", "-public=false", "-detach"}}
	if err := r.run(t, cfg); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(r.records.created) != 1 || r.records.created[0] != (town.CreateRequest{FriendlyName: "Garden"}) {
		t.Fatalf("unexpected create requests %+v", r.records.created)
	}
	if !strings.Contains(r.stderr.String(), "Town Garden is ready to go!") {
		t.Fatalf("expected success notification, got %q", r.stderr.String())
	}
	if len(r.records.joined) != 1 || r.records.joined[0] != "Alice@room7" {
		t.Fatalf("expected join of the new town, got %v", r.records.joined)
	}
}

func TestRunUpdate(t *testing.T) {
	r := newTestRun()
	cfg := Config{Command: "update", Args: []string{"-town", "room1", "-password", "pw", "-name", "Renamed", "-public=false"}}
	if err := r.run(t, cfg); err != nil {
		t.Fatalf("update: %v", err)
	}
	want := town.UpdateRequest{TownID: "room1", Password: "pw", FriendlyName: "Renamed"}
	if len(r.records.updated) != 1 || r.records.updated[0] != want {
		t.Fatalf("unexpected updates %+v", r.records.updated)
	}
}

func TestRunUpdateKeepsCurrentValues(t *testing.T) {
	listed := []town.Summary{{ID: "room1", FriendlyName: "Lobby", CurrentOccupancy: 2, MaximumOccupancy: 8, IsPubliclyListed: true}}
	tests := []struct {
		name  string
		towns []town.Summary
		args  []string
		want  town.UpdateRequest
	}{
		{
			name:  "rename listed town stays listed",
			towns: listed,
			args:  []string{"-name", "Renamed"},
			want:  town.UpdateRequest{TownID: "room1", Password: "pw", FriendlyName: "Renamed", IsPubliclyListed: true},
		},
		{
			name: "rename private town stays private",
			args: []string{"-name", "Renamed"},
			want: town.UpdateRequest{TownID: "room1", Password: "pw", FriendlyName: "Renamed"},
		},
		{
			name:  "unlist keeps current name",
			towns: listed,
			args:  []string{"-public=false"},
			want:  town.UpdateRequest{TownID: "room1", Password: "pw", FriendlyName: "Lobby"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRun()
			r.records.towns = tt.towns
			args := append([]string{"-town", "room1", "-password", "pw"}, tt.args...)
			if err := r.run(t, Config{Command: "update", Args: args}); err != nil {
				t.Fatalf("update: %v", err)
			}
			if len(r.records.updated) != 1 || r.records.updated[0] != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, r.records.updated)
			}
		})
	}
}

func TestRunUpdateRejectsUnknownName(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "private town without name", args: []string{"-public"}},
		{name: "empty name", args: []string{"-name", "", "-public"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRun()
			args := append([]string{"-town", "room1", "-password", "pw"}, tt.args...)
			if err := r.run(t, Config{Command: "update", Args: args}); err == nil {
				t.Fatal("expected update to be refused")
			}
			if len(r.records.updated) != 0 {
				t.Fatalf("update must not reach the record service, got %+v", r.records.updated)
			}
		})
	}
}

func TestRunDeleteRequiresPassword(t *testing.T) {
	r := newTestRun()
	err := r.run(t, Config{Command: "delete", Args: []string{"-town", "room1"}})
	if !errors.Is(err, &town.ValidationError{Field: town.FieldPassword}) {
		t.Fatalf("expected password validation error, got %v", err)
	}
	if len(r.records.deleted) != 0 {
		t.Fatal("delete must not reach the record service")
	}
}

func TestRunDelete(t *testing.T) {
	r := newTestRun()
	if err := r.run(t, Config{Command: "delete", Args: []string{"-town", "room1", "-password", "pw"}}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(r.records.deleted) != 1 {
		t.Fatalf("unexpected deletes %+v", r.records.deleted)
	}
	if !strings.Contains(r.stderr.String(), "Town deleted") {
		t.Fatalf("expected success notification, got %q", r.stderr.String())
	}
}
