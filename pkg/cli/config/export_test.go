package config

import (
	"time"

	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
)

// NewSlackForTest creates a Slack config for testing purposes
func NewSlackForTest(botToken, channel string) *Slack {
	return &Slack{botToken: botToken, channel: channel}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, sqlitePath, recordAPIURL string) *Repository {
	return &Repository{backend: backend, sqlitePath: sqlitePath, recordAPIURL: recordAPIURL}
}

// NewWidgetForTest creates a Widget config for testing purposes
func NewWidgetForTest(path string) *Widget {
	return &Widget{path: path}
}

// NewSeedForTest creates a Seed config for testing purposes
func NewSeedForTest(path string) *Seed {
	return &Seed{path: path}
}

// NewMessagesForTest creates a Messages config for testing purposes
func NewMessagesForTest(path string) *Messages {
	return &Messages{path: path}
}

// NewUseCaseForTest creates a UseCase config for testing purposes
func NewUseCaseForTest(cacheTTL time.Duration, widgetPath string) *UseCase {
	return &UseCase{cacheTTL: cacheTTL, Widget: Widget{path: widgetPath}}
}

// NewNotifyUseCaseForTest creates a UseCase config with notification mirrors
func NewNotifyUseCaseForTest(notifyLog bool, slack *Slack) *UseCase {
	return &UseCase{notifyLog: notifyLog, Slack: *slack}
}

// MirrorForTest exposes the configured notification mirror
func (x *UseCase) MirrorForTest() (interfaces.Notifier, error) {
	return x.mirror()
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}
