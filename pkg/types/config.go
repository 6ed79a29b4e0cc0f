package types

import (
	"errors"
	"time"
)

// Config holds backend selection and parameters for Shelter.Attach.
type Config struct {
	Backend      string        `json:"backend" yaml:"backend"`
	DataDir      string        `json:"data_dir" yaml:"data_dir"`
	ReferenceDir string        `json:"reference_dir,omitempty" yaml:"reference_dir,omitempty"`
	BusyTimeout  time.Duration `json:"busy_timeout,omitempty" yaml:"busy_timeout,omitempty"`
	Hash         HashParams    `json:"hash" yaml:"hash"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// DefaultBusyTimeout is how long a writer waits for the database lock
// before giving up.
const DefaultBusyTimeout = 5 * time.Second

// Config validation errors.
var (
	ErrBackendEmpty       = errors.New("backend must not be empty")
	ErrBackendUnknown     = errors.New("unknown backend")
	ErrHashParamsInvalid  = errors.New("hash parameters must be positive")
	ErrBusyTimeoutInvalid = errors.New("busy timeout must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure. A zero HashParams is valid and means
// DefaultHashParams.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.BusyTimeout < 0 {
		return ErrBusyTimeoutInvalid
	}
	if c.Hash != (HashParams{}) && !c.Hash.valid() {
		return ErrHashParamsInvalid
	}
	return nil
}

// GetBusyTimeout returns the configured busy timeout or DefaultBusyTimeout.
func (c Config) GetBusyTimeout() time.Duration {
	if c.BusyTimeout == 0 {
		return DefaultBusyTimeout
	}
	return c.BusyTimeout
}

// GetHashParams returns the configured hash parameters or DefaultHashParams.
func (c Config) GetHashParams() HashParams {
	if c.Hash == (HashParams{}) {
		return DefaultHashParams
	}
	return c.Hash
}
