package handlers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/shipyard/internal/config"
	"github.com/imamik/shipyard/internal/lifecycle"
	"github.com/imamik/shipyard/internal/platform/ec2"
	sshx "github.com/imamik/shipyard/internal/platform/ssh"
	shiptest "github.com/imamik/shipyard/internal/testing"
	"github.com/imamik/shipyard/internal/trust"
	"github.com/imamik/shipyard/internal/util/preflight"
)

func saveAndRestoreFactories(t *testing.T) {
	t.Helper()
	origLoadConfigFile := loadConfigFile
	origCheckPreflight := checkPreflight
	origNewPlatformClient := newPlatformClient
	origNewTrustStore := newTrustStore
	origNewObserver := newObserver
	origNewController := newController
	origNewTransport := newTransport
	origGetwd := getwd

	t.Cleanup(func() {
		loadConfigFile = origLoadConfigFile
		checkPreflight = origCheckPreflight
		newPlatformClient = origNewPlatformClient
		newTrustStore = origNewTrustStore
		newObserver = origNewObserver
		newController = origNewController
		newTransport = origNewTransport
		getwd = origGetwd
	})
}

type stubObserver struct{}

func (stubObserver) Printf(format string, v ...any) {}
func (stubObserver) Event(event lifecycle.Event)    {}

type stubController struct {
	running int
	stopped int
}

func (s *stubController) EnsureRunning(ctx context.Context) (string, error) {
	s.running++
	return "203.0.113.7", nil
}

func (s *stubController) EnsureStopped(ctx context.Context) error {
	s.stopped++
	return nil
}

type stubTransport struct {
	executed []string
}

func (s *stubTransport) Execute(ctx context.Context, command string, mode sshx.ExecMode) (sshx.Result, error) {
	s.executed = append(s.executed, command)
	return sshx.Result{}, nil
}

func (s *stubTransport) Push(ctx context.Context, localPaths []string, remoteDir string) error {
	return nil
}

func (s *stubTransport) Pull(ctx context.Context, remotePath string) (string, error) {
	out, err := os.CreateTemp("", "pulled-*.tar.gz")
	if err != nil {
		return "", err
	}
	out.Close()
	return out.Name(), nil
}

func testHandlerConfig(t *testing.T) *config.Config {
	t.Helper()
	return shiptest.NewConfigBuilder().
		WithKeyPath(filepath.Join(t.TempDir(), "missing-key.pem")).
		WithKnownHosts(filepath.Join(t.TempDir(), "known_hosts")).
		WithRetrieve("logs").
		Build()
}

// stubFactories injects a fully fake dependency graph and returns the
// transport so tests can inspect executed commands.
func stubFactories(t *testing.T, cfg *config.Config) *stubTransport {
	t.Helper()
	saveAndRestoreFactories(t)

	workDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "compose.yaml"), []byte("services: {}\n"), 0o644))

	st := &stubTransport{}
	loadConfigFile = func(path string) (*config.Config, error) { return cfg, nil }
	checkPreflight = func(cfg *config.Config) *preflight.CheckResults { return &preflight.CheckResults{} }
	newPlatformClient = func(ctx context.Context, region string, creds config.Credentials) (ec2.API, error) {
		return &ec2.MockAPI{}, nil
	}
	newObserver = func() lifecycle.Observer { return stubObserver{} }
	newController = func(api ec2.API, cfg *config.Config, store *trust.Store) lifecycle.Controller {
		return &stubController{}
	}
	newTransport = func(sess lifecycle.Session, store *trust.Store) (lifecycle.Transport, error) {
		return st, nil
	}
	getwd = func() (string, error) { return workDir, nil }
	return st
}

func TestInstallRunsConfiguredCommand(t *testing.T) {
	cfg := testHandlerConfig(t)
	st := stubFactories(t, cfg)

	require.NoError(t, Install(context.Background(), ""))

	require.NotEmpty(t, st.executed)
	assert.Contains(t, st.executed, "cd /home/ubuntu/app && bash install.sh")
}

func TestStartRunUsesStartCommand(t *testing.T) {
	cfg := testHandlerConfig(t)
	st := stubFactories(t, cfg)

	require.NoError(t, StartRun(context.Background(), "staging.yaml"))

	assert.Contains(t, st.executed, "cd /home/ubuntu/app && docker compose up -d")
}

func TestDeployReportsConfigErrorBeforeAnyCloudCall(t *testing.T) {
	saveAndRestoreFactories(t)

	loadConfigFile = func(path string) (*config.Config, error) {
		return nil, config.ErrMissing
	}
	platformCalls := 0
	newPlatformClient = func(ctx context.Context, region string, creds config.Credentials) (ec2.API, error) {
		platformCalls++
		return &ec2.MockAPI{}, nil
	}

	err := Run(context.Background(), "")
	require.ErrorIs(t, err, config.ErrMissing)
	assert.Zero(t, platformCalls)
}

func TestDeployDefaultsConfigPath(t *testing.T) {
	saveAndRestoreFactories(t)

	var seen string
	loadConfigFile = func(path string) (*config.Config, error) {
		seen = path
		return nil, errors.New("stop here")
	}

	require.Error(t, Connect(context.Background(), ""))
	assert.Equal(t, config.DefaultPath, seen)
}

func TestDeployStopsOnFailedPreflight(t *testing.T) {
	cfg := testHandlerConfig(t)
	stubFactories(t, cfg)

	checkPreflight = preflight.CheckDefault // the fixture key path does not exist

	platformCalls := 0
	newPlatformClient = func(ctx context.Context, region string, creds config.Credentials) (ec2.API, error) {
		platformCalls++
		return &ec2.MockAPI{}, nil
	}

	err := Run(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preflight")
	assert.Zero(t, platformCalls)
}

func TestDeployPropagatesPlatformClientError(t *testing.T) {
	cfg := testHandlerConfig(t)
	stubFactories(t, cfg)

	boom := errors.New("invalid credentials")
	newPlatformClient = func(ctx context.Context, region string, creds config.Credentials) (ec2.API, error) {
		return nil, boom
	}

	require.ErrorIs(t, Run(context.Background(), ""), boom)
}
