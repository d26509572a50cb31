package config

import (
	"errors"
	"fmt"
)

// ErrMissing indicates a required configuration file or field is absent.
// It is always reported before any remote contact is made.
var ErrMissing = errors.New("required configuration missing")

// Instance identifies the remote compute target. Immutable after load.
type Instance struct {
	ID     string `yaml:"id"`
	Region string `yaml:"region"`
}

// Credentials hold the cloud API key pair. Immutable after load.
// When both fields are empty the ambient AWS credential chain is used.
type Credentials struct {
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// String redacts the key material so credentials never leak into logs
// or formatted errors.
func (c Credentials) String() string { return "<redacted>" }

// GoString redacts %#v output as well.
func (c Credentials) GoString() string { return "config.Credentials{<redacted>}" }

// IsZero reports whether no static credentials were configured.
func (c Credentials) IsZero() bool { return c.AccessKey == "" && c.SecretKey == "" }

// Remote describes how to reach and where to deploy on the instance.
type Remote struct {
	User       string `yaml:"user"`
	KeyPath    string `yaml:"key_path"`
	Directory  string `yaml:"directory"`
	KnownHosts string `yaml:"known_hosts"`
}

// FileSets name the path lists for each transfer direction. The "."
// sentinel stands for everything under the local working directory and is
// resolved exactly once per invocation by the fileset package.
type FileSets struct {
	Install  []string `yaml:"install"`
	Run      []string `yaml:"run"`
	Retrieve []string `yaml:"retrieve"`
}

// Commands hold the remote command for each operation.
type Commands struct {
	Install string `yaml:"install"`
	Run     string `yaml:"run"`
	Start   string `yaml:"start"`
	Stop    string `yaml:"stop"`
}

// Config is the full configuration surface, loaded once at startup and
// treated as read-only afterwards.
type Config struct {
	Instance          Instance    `yaml:"instance"`
	Credentials       Credentials `yaml:"credentials"`
	Remote            Remote      `yaml:"remote"`
	FileSets          FileSets    `yaml:"filesets"`
	Commands          Commands    `yaml:"commands"`
	AutoStop          bool        `yaml:"auto_stop"`
	AutoStopOnFailure bool        `yaml:"auto_stop_on_failure"`
	Timeouts          *Timeouts   `yaml:"-"`
}

// Validate checks required fields and returns a named-field error on the
// first violation.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return fmt.Errorf("%w: instance.id", ErrMissing)
	}
	if c.Instance.Region == "" {
		return fmt.Errorf("%w: instance.region", ErrMissing)
	}
	if c.Remote.KeyPath == "" {
		return fmt.Errorf("%w: remote.key_path", ErrMissing)
	}
	if (c.Credentials.AccessKey == "") != (c.Credentials.SecretKey == "") {
		return fmt.Errorf("%w: credentials require both access_key and secret_key", ErrMissing)
	}
	return nil
}
