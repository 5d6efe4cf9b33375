// Package session validates and sequences town create and join attempts and
// hands a successful join off to the real-time provider.
//
// Each attempt is independent: inputs are checked before any network call,
// create strictly precedes join, and every failed attempt raises exactly one
// error notification. Nothing is retried.
package session

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/louisbranch/covey.town/internal/notify"
	apperrors "github.com/louisbranch/covey.town/internal/platform/errors"
	"github.com/louisbranch/covey.town/internal/rtc"
	"github.com/louisbranch/covey.town/internal/town"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/louisbranch/covey.town/internal/session"

// Records is the part of the town record service the orchestrator calls.
type Records interface {
	CreateTown(ctx context.Context, req town.CreateRequest) (town.Created, error)
	JoinTown(ctx context.Context, username, townID string) (town.JoinInitData, error)
}

// RegisterFunc accepts or refuses the session described by data. Refusal
// ends the attempt without a connect and without a notification; the
// callback owns reporting it.
type RegisterFunc func(data town.JoinInitData) bool

// Connected is a joined town with its live real-time session.
type Connected struct {
	TownID           string
	UserID           string
	FriendlyName     string
	IsPubliclyListed bool
	Session          rtc.Session
}

// Close ends the real-time session.
func (c *Connected) Close() error {
	if c == nil || c.Session == nil {
		return nil
	}
	return c.Session.Close()
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogf sets the function used for protocol violation reports.
func WithLogf(logf func(string, ...any)) Option {
	return func(o *Orchestrator) {
		if logf != nil {
			o.logf = logf
		}
	}
}

// WithLocale selects the notification language.
func WithLocale(locale string) Option {
	return func(o *Orchestrator) {
		o.messages = notify.NewMessages(locale)
	}
}

// WithLedger shares a credential ledger between orchestrators.
func WithLedger(ledger *rtc.Ledger) Option {
	return func(o *Orchestrator) {
		if ledger != nil {
			o.ledger = ledger
		}
	}
}

// WithNow sets the clock used to check credential expiry.
func WithNow(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// Orchestrator runs create and join attempts.
type Orchestrator struct {
	records   Records
	connector rtc.Connector
	notifier  notify.Notifier
	register  RegisterFunc

	ledger   *rtc.Ledger
	messages notify.Messages
	logf     func(string, ...any)
	now      func() time.Time
	tracer   trace.Tracer
}

// New builds an orchestrator. A nil register accepts every session.
func New(records Records, connector rtc.Connector, notifier notify.Notifier, register RegisterFunc, opts ...Option) *Orchestrator {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	if register == nil {
		register = func(town.JoinInitData) bool { return true }
	}
	o := &Orchestrator{
		records:   records,
		connector: connector,
		notifier:  notifier,
		register:  register,
		ledger:    rtc.NewLedger(),
		messages:  notify.NewMessages(""),
		logf:      log.Printf,
		now:       time.Now,
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ValidateAndJoin joins townID as username and connects the real-time
// session. It returns (nil, nil) when register refuses the session.
func (o *Orchestrator) ValidateAndJoin(ctx context.Context, username, townID string) (*Connected, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := o.tracer.Start(ctx, "session.join", trace.WithAttributes(attribute.String("town.id", townID)))
	defer span.End()

	connected, err := o.join(ctx, notify.ActionJoin, username, townID)
	recordOutcome(span, err)
	return connected, err
}

// ValidateAndCreate creates a town named townName and joins it as username.
// A persistent notification with the new town ID and update password is
// raised before the join starts.
func (o *Orchestrator) ValidateAndCreate(ctx context.Context, townName, username string, isPubliclyListed bool) (*Connected, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := o.tracer.Start(ctx, "session.create", trace.WithAttributes(attribute.Bool("town.public", isPubliclyListed)))
	defer span.End()

	connected, err := o.create(ctx, townName, username, isPubliclyListed)
	recordOutcome(span, err)
	return connected, err
}

func (o *Orchestrator) create(ctx context.Context, townName, username string, isPubliclyListed bool) (*Connected, error) {
	if townName == "" {
		return nil, o.reject(ctx, notify.ActionCreate, &town.ValidationError{Field: town.FieldName}, notify.KeyCreateNameRequired)
	}
	if username == "" {
		return nil, o.reject(ctx, notify.ActionCreate, &town.ValidationError{Field: town.FieldUsername}, notify.KeyCreateUsernameRequired)
	}

	created, err := o.records.CreateTown(ctx, town.CreateRequest{FriendlyName: townName, IsPubliclyListed: isPubliclyListed})
	if err != nil {
		return nil, o.fail(ctx, notify.ActionCreate, serviceOrViolation("create town", err))
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("town.id", created.TownID))

	o.notifier.Notify(ctx, o.messages.Success(
		notify.ActionCreate,
		o.messages.Text(notify.KeyCreateReadyTitle, townName),
		o.messages.Text(notify.KeyCreateReadyDescription, created.TownID, created.Password),
		true,
	))

	return o.join(ctx, notify.ActionCreate, username, created.TownID)
}

func (o *Orchestrator) join(ctx context.Context, action notify.Action, username, townID string) (*Connected, error) {
	if username == "" {
		return nil, o.reject(ctx, action, &town.ValidationError{Field: town.FieldUsername}, notify.KeyJoinUsernameRequired)
	}
	if townID == "" {
		return nil, o.reject(ctx, action, &town.ValidationError{Field: town.FieldTownID}, notify.KeyJoinTownIDRequired)
	}

	data, err := o.records.JoinTown(ctx, username, townID)
	if err != nil {
		return nil, o.fail(ctx, action, serviceOrViolation("join town", err))
	}
	if !o.register(data) {
		return nil, nil
	}

	credential := data.ProviderCredential
	if strings.TrimSpace(credential) == "" {
		return nil, o.fail(ctx, action, &town.ProtocolViolation{
			Op:     "join town",
			Code:   apperrors.CodeCredentialMissing,
			Detail: "session accepted without a provider credential",
		})
	}
	if err := o.ledger.Consume(credential); err != nil {
		code := apperrors.CodeCredentialReused
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			code = appErr.Code
		}
		return nil, o.fail(ctx, action, &town.ProtocolViolation{
			Op:     "connect",
			Code:   code,
			Detail: err.Error(),
		})
	}
	if err := rtc.InspectCredential(credential, o.now()); err != nil {
		return nil, o.fail(ctx, action, connectError(err))
	}

	if o.connector == nil {
		return nil, o.fail(ctx, action, connectError(errors.New("realtime connector is not configured")))
	}
	session, err := o.connector.Connect(ctx, credential)
	if err != nil {
		return nil, o.fail(ctx, action, connectError(err))
	}
	return &Connected{
		TownID:           data.TownID,
		UserID:           data.UserID,
		FriendlyName:     data.FriendlyName,
		IsPubliclyListed: data.IsPubliclyListed,
		Session:          session,
	}, nil
}

// reject raises the notification for a local validation failure.
func (o *Orchestrator) reject(ctx context.Context, action notify.Action, err *town.ValidationError, key string) error {
	o.notifier.Notify(ctx, o.messages.Failure(action, o.messages.Text(key)))
	return err
}

// fail raises the notification for a remote or protocol failure. Protocol
// violations are also logged.
func (o *Orchestrator) fail(ctx context.Context, action notify.Action, err error) error {
	var pv *town.ProtocolViolation
	if errors.As(err, &pv) {
		o.logf("PROTOCOL VIOLATION (%s): %v", action, pv)
	}
	o.notifier.Notify(ctx, o.messages.Failure(action, describe(err)))
	return err
}

func serviceOrViolation(op string, err error) error {
	var pv *town.ProtocolViolation
	if errors.As(err, &pv) {
		return pv
	}
	return town.NewServiceError(op, err)
}

func connectError(err error) *town.ServiceError {
	code := apperrors.CodeConnectFailed
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		code = appErr.Code
	}
	return &town.ServiceError{Op: "connect", Code: code, Message: err.Error(), Cause: err}
}

func describe(err error) string {
	var se *town.ServiceError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return err.Error()
}

func recordOutcome(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
}
