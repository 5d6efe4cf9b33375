// Package towns parses the towns command line and runs its subcommands.
package towns

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/louisbranch/covey.town/internal/directory"
	"github.com/louisbranch/covey.town/internal/notify"
	entrypoint "github.com/louisbranch/covey.town/internal/platform/cmd"
	"github.com/louisbranch/covey.town/internal/platform/discovery"
	"github.com/louisbranch/covey.town/internal/platform/timeouts"
	"github.com/louisbranch/covey.town/internal/rtc"
	"github.com/louisbranch/covey.town/internal/session"
	"github.com/louisbranch/covey.town/internal/settings"
	"github.com/louisbranch/covey.town/internal/town"
	"github.com/louisbranch/covey.town/internal/townrecord"
)

const usage = "usage: towns [flags] <list|watch|create|join|update|delete> [command flags]"

// Config holds towns command configuration.
type Config struct {
	RecordAddr string `env:"COVEY_TOWN_RECORD_ADDR"`
	RTCURL     string `env:"COVEY_TOWN_RTC_URL"`
	Username   string `env:"COVEY_TOWN_USERNAME"`
	Locale     string `env:"COVEY_TOWN_LOCALE" envDefault:"en-US"`

	Command string
	Args    []string
}

// ParseConfig parses environment and flags into Config. The first positional
// argument names the subcommand; the rest are its flags.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	cfg.RecordAddr = discovery.OrDefaultGRPCAddr(cfg.RecordAddr, discovery.ServiceTownRecord)
	cfg.RTCURL = discovery.OrDefaultWebsocketURL(cfg.RTCURL, discovery.ServiceRealtime, discovery.RealtimeSessionPath)
	fs.StringVar(&cfg.RecordAddr, "record-addr", cfg.RecordAddr, "Town record service address")
	fs.StringVar(&cfg.RTCURL, "rtc-url", cfg.RTCURL, "Real-time session endpoint")
	fs.StringVar(&cfg.Username, "username", cfg.Username, "Name shown to other participants")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "Notification language")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return Config{}, errors.New(usage)
	}
	cfg.Command = strings.ToLower(strings.TrimSpace(rest[0]))
	cfg.Args = rest[1:]
	return cfg, nil
}

// Run executes the configured subcommand.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceTowns, entrypoint.RunOptions{ShutdownTimeout: timeouts.Shutdown}, func(ctx context.Context) error {
		return run(ctx, cfg, defaultDeps(cfg))
	})
}

// recordClient is everything the subcommands need from the record service.
type recordClient interface {
	directory.Lister
	session.Records
	settings.Records
	Close() error
}

type deps struct {
	dial      func(ctx context.Context, addr string) (recordClient, error)
	connector rtc.Connector
	clock     clockwork.Clock
	stdout    io.Writer
	stderr    io.Writer
}

func defaultDeps(cfg Config) deps {
	return deps{
		dial: func(ctx context.Context, addr string) (recordClient, error) {
			client, err := townrecord.Dial(ctx, addr, log.Printf)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
		connector: rtc.WebsocketConnector{URL: cfg.RTCURL, Timeout: timeouts.RealtimeHandshake},
		clock:     clockwork.NewRealClock(),
		stdout:    os.Stdout,
		stderr:    os.Stderr,
	}
}

func run(ctx context.Context, cfg Config, d deps) error {
	handler, ok := commands[cfg.Command]
	if !ok {
		return fmt.Errorf("unknown command %q\n%s", cfg.Command, usage)
	}
	records, err := d.dial(ctx, cfg.RecordAddr)
	if err != nil {
		return fmt.Errorf("connect to town record service: %w", err)
	}
	defer func() {
		if err := records.Close(); err != nil {
			log.Printf("close town record client: %v", err)
		}
	}()

	notifier := notify.LogNotifier{Logf: func(format string, args ...any) {
		fmt.Fprintf(d.stderr, format+"\n", args...)
	}}
	return handler(ctx, env{cfg: cfg, deps: d, records: records, notifier: notifier})
}

type env struct {
	cfg      Config
	deps     deps
	records  recordClient
	notifier notify.Notifier
}

var commands = map[string]func(context.Context, env) error{
	"list":   runList,
	"watch":  runWatch,
	"create": runCreate,
	"join":   runJoin,
	"update": runUpdate,
	"delete": runDelete,
}

func runList(ctx context.Context, e env) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	if err := entrypoint.ParseArgs(fs, e.cfg.Args); err != nil {
		return err
	}
	towns, err := e.records.ListTowns(ctx)
	if err != nil {
		return err
	}
	return writeDirectory(e.deps.stdout, directory.Order(towns))
}

func runWatch(ctx context.Context, e env) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	interval := fs.Duration("interval", timeouts.DirectoryPoll, "Refresh interval")
	count := fs.Int("count", 0, "Stop after this many refreshes (0 runs until interrupted)")
	if err := entrypoint.ParseArgs(fs, e.cfg.Args); err != nil {
		return err
	}

	updates := make(chan directory.Snapshot, 1)
	poller := directory.New(e.records,
		directory.WithInterval(*interval),
		directory.WithClock(e.deps.clock),
		directory.WithOnUpdate(func(s directory.Snapshot) {
			select {
			case updates <- s:
			default:
			}
		}),
	)
	if err := poller.Activate(ctx); err != nil {
		return err
	}
	defer poller.Deactivate()

	for seen := 0; *count == 0 || seen < *count; seen++ {
		select {
		case <-ctx.Done():
			return nil
		case s := <-updates:
			fmt.Fprintf(e.deps.stdout, "refreshed %s\n", s.RefreshedAt.Format(time.TimeOnly))
			if err := writeDirectory(e.deps.stdout, s.Entries); err != nil {
				return err
			}
		}
	}
	return nil
}

func runCreate(ctx context.Context, e env) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	name := fs.String("name", "", "Friendly name of the new town")
	public := fs.Bool("public", true, "List the town in the public directory")
	detach := fs.Bool("detach", false, "Leave as soon as the session is connected")
	if err := entrypoint.ParseArgs(fs, e.cfg.Args); err != nil {
		return err
	}
	connected, err := e.orchestrator().ValidateAndCreate(ctx, *name, e.cfg.Username, *public)
	return e.stay(ctx, connected, err, *detach)
}

func runJoin(ctx context.Context, e env) error {
	fs := flag.NewFlagSet("join", flag.ContinueOnError)
	townID := fs.String("town", "", "Town ID to join")
	detach := fs.Bool("detach", false, "Leave as soon as the session is connected")
	if err := entrypoint.ParseArgs(fs, e.cfg.Args); err != nil {
		return err
	}
	if *townID == "" && fs.NArg() > 0 {
		*townID = fs.Arg(0)
	}
	connected, err := e.orchestrator().ValidateAndJoin(ctx, e.cfg.Username, *townID)
	return e.stay(ctx, connected, err, *detach)
}

func runUpdate(ctx context.Context, e env) error {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	townID := fs.String("town", "", "Town ID to update")
	password := fs.String("password", "", "Town update password")
	name := fs.String("name", "", "New friendly name (defaults to the current name)")
	public := fs.Bool("public", false, "List the town in the public directory (defaults to the current listing)")
	if err := entrypoint.ParseArgs(fs, e.cfg.Args); err != nil {
		return err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["name"] && *name == "" {
		return errors.New("update: -name must not be empty")
	}
	if *townID != "" && *password != "" && (!set["name"] || !set["public"]) {
		current, listed, err := e.currentTown(ctx, *townID)
		if err != nil {
			return err
		}
		if !set["name"] {
			if !listed {
				return fmt.Errorf("update: town %q is not publicly listed; pass both -name and -public", *townID)
			}
			*name = current.FriendlyName
		}
		if !set["public"] {
			*public = listed
		}
	}
	return e.settings().ApplyUpdate(ctx, *townID, *password, *name, *public)
}

// currentTown finds townID in the public directory. A town that is missing
// from it is private, so listed is false.
func (e env) currentTown(ctx context.Context, townID string) (current town.Summary, listed bool, err error) {
	towns, err := e.records.ListTowns(ctx)
	if err != nil {
		return town.Summary{}, false, fmt.Errorf("look up town %q: %w", townID, err)
	}
	for _, t := range towns {
		if t.ID == townID {
			return t, true, nil
		}
	}
	return town.Summary{}, false, nil
}

func runDelete(ctx context.Context, e env) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	townID := fs.String("town", "", "Town ID to delete")
	password := fs.String("password", "", "Town update password")
	if err := entrypoint.ParseArgs(fs, e.cfg.Args); err != nil {
		return err
	}
	return e.settings().ApplyDeletion(ctx, *townID, *password)
}

func (e env) orchestrator() *session.Orchestrator {
	register := func(data town.JoinInitData) bool {
		fmt.Fprintf(e.deps.stdout, "joined %s (%s) as %s\n", data.FriendlyName, data.TownID, data.UserID)
		return true
	}
	return session.New(e.records, e.deps.connector, e.notifier, register, session.WithLocale(e.cfg.Locale))
}

func (e env) settings() *settings.Manager {
	return settings.New(e.records, e.notifier, nil, settings.WithLocale(e.cfg.Locale))
}

// stay holds a connected session until ctx ends, or closes it at once when
// detach is set.
func (e env) stay(ctx context.Context, connected *session.Connected, err error, detach bool) error {
	if err != nil || connected == nil {
		return err
	}
	defer func() {
		if err := connected.Close(); err != nil {
			log.Printf("close session: %v", err)
		}
	}()
	fmt.Fprintf(e.deps.stdout, "connected to %s\n", connected.TownID)
	if detach {
		return nil
	}
	<-ctx.Done()
	return nil
}

func writeDirectory(w io.Writer, entries []directory.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tOCCUPANCY\tJOIN")
	for _, entry := range entries {
		join := "yes"
		if !entry.CanJoin() {
			join = "full"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\n", entry.ID, entry.FriendlyName, entry.CurrentOccupancy, entry.MaximumOccupancy, join)
	}
	return tw.Flush()
}
