package instance

import (
	"os"

	"github.com/angelmondragon/tradeflow-backend/pkg/env"
)

const fallbackID = "local"

// ID identifies this process in logs. It prefers TRADEFLOW_INSTANCE_ID, then
// the platform dyno name, then the host name.
func ID() string {
	if id := env.First("TRADEFLOW_INSTANCE_ID", "DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
