package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable timeout values.
// Defaults can be overridden via environment variables, and the provision
// and network values additionally via the config file's timeouts section.
type Timeouts struct {
	Provision        time.Duration // Overall deadline for start-and-poll provisioning
	Network          time.Duration // Uniform bound for wait-mode network operations
	PollInitialDelay time.Duration // First delay between instance state polls
	PollMaxDelay     time.Duration // Cap for the poll backoff
	TransferRetries  int           // Retry attempts for push/pull on network failures
}

// LoadTimeouts loads timeout configuration from environment variables.
// If a variable is not set or invalid, the default is used.
//
// Environment Variables:
//   - SHIPYARD_TIMEOUT_PROVISION (default: 5m)
//   - SHIPYARD_TIMEOUT_NETWORK (default: 2m)
//   - SHIPYARD_POLL_INITIAL_DELAY (default: 2s)
//   - SHIPYARD_POLL_MAX_DELAY (default: 30s)
//   - SHIPYARD_TRANSFER_RETRIES (default: 3)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Provision:        parseDuration("SHIPYARD_TIMEOUT_PROVISION", 5*time.Minute),
		Network:          parseDuration("SHIPYARD_TIMEOUT_NETWORK", 2*time.Minute),
		PollInitialDelay: parseDuration("SHIPYARD_POLL_INITIAL_DELAY", 2*time.Second),
		PollMaxDelay:     parseDuration("SHIPYARD_POLL_MAX_DELAY", 30*time.Second),
		TransferRetries:  parseInt("SHIPYARD_TRANSFER_RETRIES", 3),
	}
}

func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}
