// Package trust maintains the host identity store for the transport layer.
//
// Identities live in a known_hosts file. A host is trusted on first
// registration; a later registration with a different key is treated as a
// possible man-in-the-middle and surfaced as ErrUntrustedHost, never
// silently overwritten.
package trust

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// ErrUntrustedHost indicates the host presented a key that conflicts with
// an existing trust entry. It is fatal and never auto-resolved.
var ErrUntrustedHost = errors.New("host key conflicts with existing trust entry")

// Store is a known_hosts-backed host identity store.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore opens (or creates) the store at path.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create trust store directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to open trust store: %w", err)
	}
	f.Close()
	return &Store{path: path}, nil
}

// Register records the key for addr. An unknown host is appended, a
// matching entry is a no-op, and a conflicting entry fails with
// ErrUntrustedHost.
func (s *Store) Register(addr string, key ssh.PublicKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hostport := withDefaultPort(addr)
	err := s.check(hostport, key)
	if err == nil {
		return nil
	}

	var keyErr *knownhosts.KeyError
	if !errors.As(err, &keyErr) {
		return fmt.Errorf("failed to consult trust store: %w", err)
	}
	if len(keyErr.Want) > 0 {
		return fmt.Errorf("%w: %s offered %s", ErrUntrustedHost, addr, key.Type())
	}

	line := knownhosts.Line([]string{hostport}, key)
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o600) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to append to trust store: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, line); err != nil {
		return fmt.Errorf("failed to append to trust store: %w", err)
	}
	return nil
}

// HostKeyCallback returns a callback enforcing the store for new
// connections. Conflicts surface as ErrUntrustedHost.
func (s *Store) HostKeyCallback() ssh.HostKeyCallback {
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		err := s.check(withDefaultPort(hostname), key)
		if err == nil {
			return nil
		}
		var keyErr *knownhosts.KeyError
		if errors.As(err, &keyErr) && len(keyErr.Want) > 0 {
			return fmt.Errorf("%w: %s", ErrUntrustedHost, hostname)
		}
		return err
	}
}

// check runs the knownhosts callback for hostport against the current file
// contents. Caller holds the lock.
func (s *Store) check(hostport string, key ssh.PublicKey) error {
	callback, err := knownhosts.New(s.path)
	if err != nil {
		return fmt.Errorf("failed to load trust store: %w", err)
	}
	host, port, splitErr := net.SplitHostPort(hostport)
	if splitErr != nil {
		return fmt.Errorf("invalid host address %q: %w", hostport, splitErr)
	}
	remote := &net.TCPAddr{IP: net.ParseIP(host), Port: atoiOr22(port)}
	return callback(hostport, remote, key)
}

func withDefaultPort(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, "22")
}

func atoiOr22(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 22
		}
		n = n*10 + int(r-'0')
	}
	if n == 0 {
		return 22
	}
	return n
}
