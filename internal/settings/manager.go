// Package settings updates or deletes an already joined town using its
// capability password.
package settings

import (
	"context"
	"errors"

	"github.com/louisbranch/covey.town/internal/notify"
	"github.com/louisbranch/covey.town/internal/town"
)

// Records is the part of the town record service the manager calls.
type Records interface {
	UpdateTown(ctx context.Context, req town.UpdateRequest) error
	DeleteTown(ctx context.Context, req town.DeleteRequest) error
}

// Surface is the settings view. It is closed after a successful change and
// left open after a failure so the user can retry.
type Surface interface {
	Close()
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func()

// Close calls f.
func (f SurfaceFunc) Close() {
	f()
}

// Manager applies settings changes.
type Manager struct {
	records  Records
	notifier notify.Notifier
	surface  Surface
	messages notify.Messages
}

// Option configures a Manager.
type Option func(*Manager)

// WithLocale selects the notification language.
func WithLocale(locale string) Option {
	return func(m *Manager) {
		m.messages = notify.NewMessages(locale)
	}
}

// New builds a manager. A nil surface is treated as already closed.
func New(records Records, notifier notify.Notifier, surface Surface, opts ...Option) *Manager {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	m := &Manager{
		records:  records,
		notifier: notifier,
		surface:  surface,
		messages: notify.NewMessages(""),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ApplyUpdate renames the town and sets its listing. Connected participants
// only see the change after they rejoin.
func (m *Manager) ApplyUpdate(ctx context.Context, townID, password, newFriendlyName string, newIsPublic bool) error {
	if err := m.precheck(ctx, notify.ActionUpdate, townID, password); err != nil {
		return err
	}
	err := m.records.UpdateTown(ctx, town.UpdateRequest{
		TownID:           townID,
		Password:         password,
		FriendlyName:     newFriendlyName,
		IsPubliclyListed: newIsPublic,
	})
	if err != nil {
		return m.fail(ctx, notify.ActionUpdate, town.NewServiceError("update town", err))
	}
	m.notifier.Notify(ctx, m.messages.Success(
		notify.ActionUpdate,
		m.messages.Text(notify.KeyUpdateDoneTitle),
		m.messages.Text(notify.KeyUpdateDoneDescription),
		false,
	))
	m.closeSurface()
	return nil
}

// ApplyDeletion deletes the town. A failure leaves nothing to roll back.
func (m *Manager) ApplyDeletion(ctx context.Context, townID, password string) error {
	if err := m.precheck(ctx, notify.ActionDelete, townID, password); err != nil {
		return err
	}
	if err := m.records.DeleteTown(ctx, town.DeleteRequest{TownID: townID, Password: password}); err != nil {
		return m.fail(ctx, notify.ActionDelete, town.NewServiceError("delete town", err))
	}
	m.notifier.Notify(ctx, m.messages.Success(notify.ActionDelete, m.messages.Text(notify.KeyDeleteDoneTitle), "", false))
	m.closeSurface()
	return nil
}

// precheck rejects a missing town or password before any call is made.
func (m *Manager) precheck(ctx context.Context, action notify.Action, townID, password string) error {
	if townID == "" {
		m.notifier.Notify(ctx, m.messages.Failure(action, m.messages.Text(notify.KeySettingsTownIDRequired)))
		return &town.ValidationError{Field: town.FieldTownID}
	}
	if password == "" {
		m.notifier.Notify(ctx, m.messages.Failure(action, m.messages.Text(notify.KeySettingsPasswordRequired)))
		return &town.ValidationError{Field: town.FieldPassword}
	}
	if m.records == nil {
		return m.fail(ctx, action, errors.New("town record client is not configured"))
	}
	return nil
}

func (m *Manager) fail(ctx context.Context, action notify.Action, err error) error {
	description := err.Error()
	var se *town.ServiceError
	if errors.As(err, &se) && se.Message != "" {
		description = se.Message
	}
	m.notifier.Notify(ctx, m.messages.Failure(action, description))
	return err
}

func (m *Manager) closeSurface() {
	if m.surface != nil {
		m.surface.Close()
	}
}
