package testing

import (
	"github.com/imamik/shipyard/internal/config"
)

// ConfigBuilder provides a fluent interface for constructing test configs.
// Each method mutates the builder and returns it for chaining.
type ConfigBuilder struct {
	cfg config.Config
}

// NewConfigBuilder creates a ConfigBuilder with the defaults a loaded
// config file would carry.
func NewConfigBuilder() *ConfigBuilder {
	b := &ConfigBuilder{
		cfg: config.Config{
			AutoStop:          true,
			AutoStopOnFailure: true,
			Timeouts:          config.LoadTimeouts(),
		},
	}
	b.cfg.Instance.ID = "i-0123456789abcdef0"
	b.cfg.Instance.Region = "eu-central-1"
	b.cfg.Remote.User = "ubuntu"
	b.cfg.Remote.KeyPath = "/tmp/test-key.pem"
	b.cfg.Remote.Directory = "/home/ubuntu/app"
	b.cfg.Remote.KnownHosts = "/tmp/test-known-hosts"
	b.cfg.FileSets.Install = []string{"."}
	b.cfg.FileSets.Run = []string{"."}
	b.cfg.FileSets.Retrieve = []string{"logs", "params"}
	b.cfg.Commands.Install = "bash install.sh"
	b.cfg.Commands.Run = "docker compose up"
	b.cfg.Commands.Start = "docker compose up -d"
	b.cfg.Commands.Stop = "docker compose down"
	return b
}

// WithInstance sets the instance identity.
func (b *ConfigBuilder) WithInstance(id, region string) *ConfigBuilder {
	b.cfg.Instance.ID = id
	b.cfg.Instance.Region = region
	return b
}

// WithRemote sets the remote user and deployment directory.
func (b *ConfigBuilder) WithRemote(user, directory string) *ConfigBuilder {
	b.cfg.Remote.User = user
	b.cfg.Remote.Directory = directory
	return b
}

// WithKeyPath sets the private key location.
func (b *ConfigBuilder) WithKeyPath(path string) *ConfigBuilder {
	b.cfg.Remote.KeyPath = path
	return b
}

// WithKnownHosts sets the trust store location.
func (b *ConfigBuilder) WithKnownHosts(path string) *ConfigBuilder {
	b.cfg.Remote.KnownHosts = path
	return b
}

// WithRetrieve sets the retrieve file set.
func (b *ConfigBuilder) WithRetrieve(entries ...string) *ConfigBuilder {
	b.cfg.FileSets.Retrieve = entries
	return b
}

// WithCommands sets all four remote commands at once.
func (b *ConfigBuilder) WithCommands(install, run, start, stop string) *ConfigBuilder {
	b.cfg.Commands.Install = install
	b.cfg.Commands.Run = run
	b.cfg.Commands.Start = start
	b.cfg.Commands.Stop = stop
	return b
}

// WithAutoStop sets the teardown flags.
func (b *ConfigBuilder) WithAutoStop(onSuccess, onFailure bool) *ConfigBuilder {
	b.cfg.AutoStop = onSuccess
	b.cfg.AutoStopOnFailure = onFailure
	return b
}

// Build returns the finished config.
func (b *ConfigBuilder) Build() *config.Config {
	cfg := b.cfg
	return &cfg
}
