package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/crypto/ssh"
	"golang.org/x/term"
)

const (
	defaultPort        = 22
	defaultDialTimeout = 10 * time.Second

	// Lines of stderr kept for RemoteCommandError diagnostics.
	tailLines = 20
)

// ExecMode selects how a command is executed. It is always explicit,
// never inferred from the command.
type ExecMode int

const (
	// ModeWait fires the command and waits for completion with captured
	// streams.
	ModeWait ExecMode = iota

	// ModeAttach connects the local terminal to the remote command and
	// blocks until the session ends. No timeout applies.
	ModeAttach
)

func (m ExecMode) String() string {
	if m == ModeAttach {
		return "attach"
	}
	return "wait"
}

// Result carries the outcome of a wait-mode execution.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Config holds transport configuration for one remote host.
type Config struct {
	Host       string
	Port       int
	User       string
	PrivateKey []byte

	// DialTimeout bounds TCP connection establishment. Defaults to 10s.
	DialTimeout time.Duration

	// HostKeyCallback verifies the host identity against the trust store.
	// Required; the transport never connects unverified.
	HostKeyCallback ssh.HostKeyCallback
}

// Client executes commands and transfers files on one remote host.
// The private key is parsed once at construction; connections are opened
// per operation.
type Client struct {
	config *Config
	signer ssh.Signer
}

// NewClient validates the configuration and parses the private key.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("config host cannot be empty")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("config user cannot be empty")
	}
	if len(cfg.PrivateKey) == 0 {
		return nil, fmt.Errorf("config private key cannot be empty")
	}
	if cfg.HostKeyCallback == nil {
		return nil, fmt.Errorf("config host key callback cannot be nil")
	}

	configCopy := *cfg
	if configCopy.Port == 0 {
		configCopy.Port = defaultPort
	}
	if configCopy.DialTimeout == 0 {
		configCopy.DialTimeout = defaultDialTimeout
	}

	signer, err := ssh.ParsePrivateKey(configCopy.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &Client{config: &configCopy, signer: signer}, nil
}

func (c *Client) addr() string {
	return fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)
}

// connect opens one SSH connection. Single attempt; callers decide whether
// a failure is worth retrying.
func (c *Client) connect() (*ssh.Client, error) {
	config := &ssh.ClientConfig{
		User:            c.config.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(c.signer)},
		HostKeyCallback: c.config.HostKeyCallback,
		Timeout:         c.config.DialTimeout,
	}

	client, err := ssh.Dial("tcp", c.addr(), config)
	if err != nil {
		return nil, &NetworkError{Op: "dial " + c.addr(), Err: err}
	}
	return client, nil
}

// Execute runs command on the remote host in the given mode.
//
// In wait mode the caller's context bounds the whole operation; a non-zero
// exit surfaces as RemoteCommandError with the captured stderr tail. In
// attach mode the call blocks until the session ends; context cancellation
// triggers an explicit remote disconnect.
func (c *Client) Execute(ctx context.Context, command string, mode ExecMode) (Result, error) {
	client, err := c.connect()
	if err != nil {
		return Result{}, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return Result{}, &NetworkError{Op: "open session on " + c.addr(), Err: err}
	}
	defer session.Close()

	if mode == ModeAttach {
		return Result{}, c.attach(ctx, session, command)
	}
	return c.wait(ctx, session, command)
}

// wait runs command with captured streams.
func (c *Client) wait(ctx context.Context, session *ssh.Session, command string) (Result, error) {
	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	if err := session.Start(command); err != nil {
		return Result{}, &NetworkError{Op: "start command on " + c.addr(), Err: err}
	}
	go func() { done <- session.Wait() }()

	select {
	case <-ctx.Done():
		// Deadline or caller cancellation: tell the remote side before
		// tearing the session down.
		_ = session.Signal(ssh.SIGTERM)
		_ = session.Close()
		<-done
		return Result{}, &NetworkError{Op: "await command on " + c.addr(), Err: ctx.Err()}
	case err := <-done:
		res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
		if err == nil {
			return res, nil
		}
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitStatus()
			return res, &RemoteCommandError{
				Command:    command,
				ExitCode:   res.ExitCode,
				StderrTail: stderrTail(res.Stderr, tailLines),
			}
		}
		return res, &NetworkError{Op: "await command on " + c.addr(), Err: err}
	}
}

// attach wires the local terminal to the remote command. An empty command
// requests a login shell.
func (c *Client) attach(ctx context.Context, session *ssh.Session, command string) error {
	session.Stdin = os.Stdin
	session.Stdout = os.Stdout
	session.Stderr = os.Stderr

	fd := int(os.Stdin.Fd())
	if isatty.IsTerminal(os.Stdin.Fd()) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("failed to switch terminal to raw mode: %w", err)
		}
		defer func() { _ = term.Restore(fd, state) }()

		width, height, err := term.GetSize(fd)
		if err != nil {
			width, height = 80, 40
		}
		termName := os.Getenv("TERM")
		if termName == "" {
			termName = "xterm-256color"
		}
		modes := ssh.TerminalModes{
			ssh.ECHO:          1,
			ssh.TTY_OP_ISPEED: 14400,
			ssh.TTY_OP_OSPEED: 14400,
		}
		if err := session.RequestPty(termName, height, width, modes); err != nil {
			return &NetworkError{Op: "request pty on " + c.addr(), Err: err}
		}
	}

	var startErr error
	if command == "" {
		startErr = session.Shell()
	} else {
		startErr = session.Start(command)
	}
	if startErr != nil {
		return &NetworkError{Op: "start session on " + c.addr(), Err: startErr}
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	select {
	case <-ctx.Done():
		// Explicit disconnect: signal the remote process, then close the
		// session so the remote side observes EOF rather than a dead peer.
		_ = session.Signal(ssh.SIGHUP)
		_ = session.Close()
		<-done
		return ctx.Err()
	case err := <-done:
		if err == nil {
			return nil
		}
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return &RemoteCommandError{
				Command:  command,
				ExitCode: exitErr.ExitStatus(),
			}
		}
		return &NetworkError{Op: "attached session on " + c.addr(), Err: err}
	}
}
