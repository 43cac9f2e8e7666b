package deps

import (
	"context"
	"time"

	"github.com/pocketsnooze/snoozerd/internal/domain"
	"github.com/pocketsnooze/snoozerd/internal/logger"
)

// SnoozeAPI is the authenticated slice of the core the message endpoint
// exposes.
type SnoozeAPI interface {
	Snooze(ctx context.Context, url string, until int64) error
	Unsnooze(ctx context.Context, itemID string) error
	Archive(ctx context.Context, itemID string) error
	Sync(ctx context.Context, force bool) error
	ListSnoozed(ctx context.Context) ([]*domain.SnoozedItem, error)
}

// AuthAPI is the authentication collaborator slice.
type AuthAPI interface {
	IsAuthenticated(ctx context.Context) (bool, error)
	StartAuthentication(ctx context.Context) (string, error)
	FinishAuthentication(ctx context.Context, code string) error
}

// SettingsAPI reads and writes the wake-time preferences.
type SettingsAPI interface {
	Settings(ctx context.Context, defaults domain.Settings) (domain.Settings, error)
	SetSettings(ctx context.Context, settings domain.Settings) error
}

// Deps are the dependencies passed to route handlers.
type Deps struct {
	Logger           logger.Logger
	StartTime        time.Time
	Version          string
	Commit           string
	BuildDate        string
	GoVersion        string
	TimeNow          func() time.Time // for testing, defaults to time.Now
	AllowedCIDRS     []string         // IPs allowed to reach the API, empty = no filter
	TrustProxy       bool             // true when behind a trusted reverse proxy
	Snoozes          SnoozeAPI
	Auth             AuthAPI
	Settings         SettingsAPI
	SettingsDefaults domain.Settings
}
