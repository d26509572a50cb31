package instance

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/imamik/shipyard/internal/config"
	"github.com/imamik/shipyard/internal/platform/ec2"
)

func fastTimeouts() *config.Timeouts {
	return &config.Timeouts{
		Provision:        200 * time.Millisecond,
		Network:          time.Second,
		PollInitialDelay: 5 * time.Millisecond,
		PollMaxDelay:     20 * time.Millisecond,
		TransferRetries:  3,
	}
}

type fakeScanner struct {
	calls int
	key   ssh.PublicKey
}

func (s *fakeScanner) Scan(_ context.Context, _ string) (ssh.PublicKey, error) {
	s.calls++
	return s.key, nil
}

type fakeTrust struct {
	registered []string
}

func (t *fakeTrust) Register(addr string, _ ssh.PublicKey) error {
	t.registered = append(t.registered, addr)
	return nil
}

func newKey(t *testing.T) ssh.PublicKey {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	key, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	return key
}

func TestEnsureRunning_AlreadyRunning(t *testing.T) {
	t.Parallel()
	api := &ec2.MockAPI{
		DescribeInstanceFunc: func(context.Context, string) (ec2.Status, error) {
			return ec2.Status{State: ec2.StateRunning, Address: "203.0.113.7"}, nil
		},
	}
	scanner := &fakeScanner{key: newKey(t)}
	trust := &fakeTrust{}
	c := NewController(api, "i-1", scanner, trust, fastTimeouts())

	addr, err := c.EnsureRunning(context.Background())
	require.NoError(t, err)
	require.Equal(t, "203.0.113.7", addr)

	// Running instances need no start request and no polling.
	require.Equal(t, 1, api.DescribeCalls)
	require.Zero(t, api.StartCalls)
	require.Equal(t, []string{"203.0.113.7"}, trust.registered)
}

func TestEnsureRunning_StartsStoppedInstance(t *testing.T) {
	t.Parallel()
	describes := 0
	api := &ec2.MockAPI{}
	api.DescribeInstanceFunc = func(context.Context, string) (ec2.Status, error) {
		describes++
		switch {
		case describes == 1:
			return ec2.Status{State: ec2.StateStopped}, nil
		case api.StartCalls > 0 && describes > 2:
			return ec2.Status{State: ec2.StateRunning, Address: "203.0.113.7"}, nil
		default:
			return ec2.Status{State: ec2.StatePending}, nil
		}
	}
	c := NewController(api, "i-1", &fakeScanner{key: newKey(t)}, &fakeTrust{}, fastTimeouts())

	addr, err := c.EnsureRunning(context.Background())
	require.NoError(t, err)
	require.Equal(t, "203.0.113.7", addr)
	require.Equal(t, 1, api.StartCalls)
}

func TestEnsureRunning_ProvisionTimeout(t *testing.T) {
	t.Parallel()
	var describeTimes []time.Time
	api := &ec2.MockAPI{
		DescribeInstanceFunc: func(context.Context, string) (ec2.Status, error) {
			describeTimes = append(describeTimes, time.Now())
			return ec2.Status{State: ec2.StatePending}, nil
		},
	}
	// The poll interval deliberately straddles the deadline: a sleep that
	// starts inside the window would wake past it.
	timeouts := fastTimeouts()
	timeouts.Provision = 60 * time.Millisecond
	timeouts.PollInitialDelay = 50 * time.Millisecond
	timeouts.PollMaxDelay = 100 * time.Millisecond
	c := NewController(api, "i-1", &fakeScanner{key: newKey(t)}, &fakeTrust{}, timeouts)

	start := time.Now()
	_, err := c.EnsureRunning(context.Background())
	require.ErrorIs(t, err, ErrProvisionTimeout)

	// Every provider call happened before the deadline, and none follow
	// the return.
	deadline := start.Add(timeouts.Provision)
	for _, ts := range describeTimes {
		require.Less(t, ts.Sub(start), deadline.Sub(start), "describe call after the provisioning deadline")
	}
	after := api.DescribeCalls
	time.Sleep(120 * time.Millisecond)
	require.Equal(t, after, api.DescribeCalls)
	require.Zero(t, api.StopCalls)
}

func TestEnsureRunning_Terminated(t *testing.T) {
	t.Parallel()
	api := &ec2.MockAPI{
		DescribeInstanceFunc: func(context.Context, string) (ec2.Status, error) {
			return ec2.Status{State: ec2.StateTerminated}, nil
		},
	}
	c := NewController(api, "i-1", &fakeScanner{key: newKey(t)}, &fakeTrust{}, fastTimeouts())

	_, err := c.EnsureRunning(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "terminated")
	require.Zero(t, api.StartCalls)
}

func TestEnsureStopped_Idempotent(t *testing.T) {
	t.Parallel()
	api := &ec2.MockAPI{
		DescribeInstanceFunc: func(context.Context, string) (ec2.Status, error) {
			return ec2.Status{State: ec2.StateStopped}, nil
		},
	}
	c := NewController(api, "i-1", nil, nil, fastTimeouts())

	require.NoError(t, c.EnsureStopped(context.Background()))
	require.NoError(t, c.EnsureStopped(context.Background()))

	// Two describes, zero stop requests.
	require.Equal(t, 2, api.DescribeCalls)
	require.Zero(t, api.StopCalls)
}

func TestEnsureStopped_StopsRunningInstance(t *testing.T) {
	t.Parallel()
	api := &ec2.MockAPI{
		DescribeInstanceFunc: func(context.Context, string) (ec2.Status, error) {
			return ec2.Status{State: ec2.StateRunning, Address: "203.0.113.7"}, nil
		},
	}
	c := NewController(api, "i-1", nil, nil, fastTimeouts())

	require.NoError(t, c.EnsureStopped(context.Background()))
	require.Equal(t, 1, api.StopCalls)
}
