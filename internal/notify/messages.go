package notify

import (
	"github.com/louisbranch/covey.town/internal/platform/i18n/catalog"
	"golang.org/x/text/message"
)

// Catalog keys used by session and settings notifications.
const (
	KeyJoinFailedTitle          = "notify.join.failed.title"
	KeyJoinUsernameRequired     = "notify.join.username.required"
	KeyJoinTownIDRequired       = "notify.join.town_id.required"
	KeyCreateFailedTitle        = "notify.create.failed.title"
	KeyCreateNameRequired       = "notify.create.name.required"
	KeyCreateUsernameRequired   = "notify.create.username.required"
	KeyCreateReadyTitle         = "notify.create.ready.title"
	KeyCreateReadyDescription   = "notify.create.ready.description"
	KeyUpdateDoneTitle          = "notify.update.done.title"
	KeyUpdateDoneDescription    = "notify.update.done.description"
	KeyUpdateFailedTitle        = "notify.update.failed.title"
	KeyDeleteDoneTitle          = "notify.delete.done.title"
	KeyDeleteFailedTitle        = "notify.delete.failed.title"
	KeySettingsPasswordRequired = "notify.settings.password.required"
	KeySettingsTownIDRequired   = "notify.settings.town_id.required"
)

// Messages renders notification text for one locale.
type Messages struct {
	printer *message.Printer
}

// NewMessages returns messages for the best catalog match of locale.
func NewMessages(locale string) Messages {
	return Messages{printer: catalog.Default().Printer(locale)}
}

// Text renders key with args.
func (m Messages) Text(key string, args ...any) string {
	if m.printer == nil {
		m.printer = catalog.Default().Printer(catalog.BaseLocale)
	}
	return m.printer.Sprintf(key, args...)
}

// Failure builds the error notification for action with a short title and the
// given description.
func (m Messages) Failure(action Action, description string) Notification {
	return Notification{
		Category:    CategoryError,
		Action:      action,
		Title:       m.Text(failureTitles[action]),
		Description: description,
	}
}

// Success builds a success notification for action.
func (m Messages) Success(action Action, title, description string, persistent bool) Notification {
	return Notification{
		Category:    CategorySuccess,
		Action:      action,
		Title:       title,
		Description: description,
		Persistent:  persistent,
	}
}

var failureTitles = map[Action]string{
	ActionJoin:   KeyJoinFailedTitle,
	ActionCreate: KeyCreateFailedTitle,
	ActionUpdate: KeyUpdateFailedTitle,
	ActionDelete: KeyDeleteFailedTitle,
}
