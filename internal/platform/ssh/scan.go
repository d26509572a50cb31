package ssh

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/imamik/shipyard/internal/util/retry"
)

// Scanner fetches a host's public key without authenticating, for trust
// store registration before the first real connection.
type Scanner struct {
	// DialTimeout bounds each handshake attempt. Defaults to 10s.
	DialTimeout time.Duration
}

// Scan performs SSH handshakes against addr until the host presents its
// key or ctx expires. Retries cover the window between an instance
// reporting "running" and sshd accepting connections.
func (s *Scanner) Scan(ctx context.Context, addr string) (ssh.PublicKey, error) {
	timeout := s.DialTimeout
	if timeout == 0 {
		timeout = defaultDialTimeout
	}
	hostport := addr
	if _, _, err := net.SplitHostPort(addr); err != nil {
		hostport = net.JoinHostPort(addr, "22")
	}

	var captured ssh.PublicKey
	err := retry.WithExponentialBackoff(ctx, func() error {
		key, err := scanOnce(hostport, timeout)
		if err != nil {
			return err
		}
		captured = key
		return nil
	},
		retry.WithMaxRetries(30),
		retry.WithInitialDelay(2*time.Second),
		retry.WithMaxDelay(10*time.Second),
	)
	if err != nil {
		return nil, &NetworkError{Op: "scan host key of " + hostport, Err: err}
	}
	return captured, nil
}

// scanOnce completes a key exchange and aborts before authentication.
func scanOnce(hostport string, timeout time.Duration) (ssh.PublicKey, error) {
	var captured ssh.PublicKey
	config := &ssh.ClientConfig{
		HostKeyCallback: func(_ string, _ net.Addr, key ssh.PublicKey) error {
			captured = key
			return nil
		},
		Timeout: timeout,
	}

	conn, err := ssh.Dial("tcp", hostport, config)
	if conn != nil {
		conn.Close()
	}
	if captured != nil {
		// Auth is expected to fail; the key exchange already happened.
		return captured, nil
	}
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("no host key presented by %s", hostport)
}
