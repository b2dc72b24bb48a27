package notify

import (
	"context"
	"sync"

	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
	"github.com/secmon-lab/metaform/pkg/domain/types"
	"github.com/secmon-lab/metaform/pkg/utils/logging"
)

// Level of a notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is one message shown to the user
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Navigation is one request to open a record's detail view
type Navigation struct {
	Entity types.EntityName `json:"entity"`
	Key    string           `json:"key"`
}

// Logger writes notifications to the context logger
type Logger struct{}

var _ interfaces.Notifier = Logger{}

func (Logger) Success(ctx context.Context, msg string) {
	logging.From(ctx).Info(msg, "notification", LevelSuccess)
}

func (Logger) Error(ctx context.Context, msg, detail string) {
	logging.From(ctx).Warn(msg, "notification", LevelError, "detail", detail)
}

// Recorder keeps notifications and navigations so that a surface (HTTP
// response, terminal) can present them after the operation returns.
type Recorder struct {
	mu            sync.Mutex
	notifications []Notification
	navigations   []Navigation
}

var (
	_ interfaces.Notifier  = &Recorder{}
	_ interfaces.Navigator = &Recorder{}
)

func (r *Recorder) Success(ctx context.Context, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, Notification{Level: LevelSuccess, Message: msg})
}

func (r *Recorder) Error(ctx context.Context, msg, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, Notification{Level: LevelError, Message: msg, Detail: detail})
}

func (r *Recorder) NavigateToRecord(ctx context.Context, entity types.EntityName, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.navigations = append(r.navigations, Navigation{Entity: entity, Key: key})
}

// Notifications returns a copy of the recorded notifications
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notifications...)
}

// Navigations returns a copy of the recorded navigations
func (r *Recorder) Navigations() []Navigation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Navigation(nil), r.navigations...)
}

// Multi fans notifications out to several notifiers in order
type Multi []interfaces.Notifier

var _ interfaces.Notifier = Multi{}

func (m Multi) Success(ctx context.Context, msg string) {
	for _, n := range m {
		n.Success(ctx, msg)
	}
}

func (m Multi) Error(ctx context.Context, msg, detail string) {
	for _, n := range m {
		n.Error(ctx, msg, detail)
	}
}
