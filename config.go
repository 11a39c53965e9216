package lessonloop

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/lessonloop/lessonloop-go/pkg/dispatch"
	"github.com/lessonloop/lessonloop-go/pkg/events"
	"github.com/lessonloop/lessonloop-go/pkg/logger"
	"github.com/lessonloop/lessonloop-go/pkg/supervise"
)

const (
	envURL   = "LESSONLOOP_URL"
	envCache = "LESSONLOOP_CACHE"
)

// Config configures a Client.
type Config struct {
	// URL of the remote authority, ws or wss scheme.
	URL string

	// CachePath is the SQLite file backing the local replica across
	// restarts. Empty keeps the replica in memory only.
	CachePath string

	// Logger defaults to a no-op logger.
	Logger logger.Logger

	// OnStateChange observes connection lifecycle transitions.
	OnStateChange func(supervise.State)

	// OnEvent observes every event after it is folded into the replica.
	OnEvent func(events.Event)

	// OnRejection is called when the authority explicitly rejects a
	// queued intent, after the optimistic write has been rolled back.
	OnRejection dispatch.RejectionHandler
}

// FromEnv builds a Config from LESSONLOOP_URL and LESSONLOOP_CACHE,
// loading a .env file from the working directory when present.
func FromEnv() (*Config, error) {
	_ = godotenv.Load()

	u := os.Getenv(envURL)
	if u == "" {
		return nil, fmt.Errorf("%s is not set", envURL)
	}

	return &Config{
		URL:       u,
		CachePath: os.Getenv(envCache),
	}, nil
}
