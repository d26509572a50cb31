package ssh

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/pkg/sftp"
)

// Push copies localPaths (regular files) into remoteDir, creating the
// directory if needed and preserving file modes. Single attempt; the
// orchestrator owns the retry policy.
func (c *Client) Push(ctx context.Context, localPaths []string, remoteDir string) error {
	client, sftpc, err := c.sftp()
	if err != nil {
		return err
	}
	defer client.Close()
	defer sftpc.Close()

	if err := sftpc.MkdirAll(remoteDir); err != nil {
		return &NetworkError{Op: "create remote directory " + remoteDir, Err: err}
	}

	for _, local := range localPaths {
		if err := ctx.Err(); err != nil {
			return &NetworkError{Op: "push to " + c.addr(), Err: err}
		}
		if err := c.pushOne(sftpc, local, remoteDir); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) pushOne(sftpc *sftp.Client, local, remoteDir string) error {
	src, err := os.Open(local) // #nosec G304 -- paths come from the packager
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", local, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", local, err)
	}

	remote := path.Join(remoteDir, filepath.Base(local))
	dst, err := sftpc.Create(remote)
	if err != nil {
		return &NetworkError{Op: "create remote file " + remote, Err: err}
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return &NetworkError{Op: "upload " + remote, Err: err}
	}
	if err := dst.Close(); err != nil {
		return &NetworkError{Op: "upload " + remote, Err: err}
	}
	if err := sftpc.Chmod(remote, info.Mode().Perm()); err != nil {
		return &NetworkError{Op: "chmod " + remote, Err: err}
	}
	return nil
}

// Pull downloads remotePath into a local temporary file and returns its
// path. Single attempt, as with Push.
func (c *Client) Pull(ctx context.Context, remotePath string) (string, error) {
	client, sftpc, err := c.sftp()
	if err != nil {
		return "", err
	}
	defer client.Close()
	defer sftpc.Close()

	if err := ctx.Err(); err != nil {
		return "", &NetworkError{Op: "pull from " + c.addr(), Err: err}
	}

	src, err := sftpc.Open(remotePath)
	if err != nil {
		return "", &NetworkError{Op: "open remote file " + remotePath, Err: err}
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "shipyard-out-*.tar.gz")
	if err != nil {
		return "", fmt.Errorf("failed to create local file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", &NetworkError{Op: "download " + remotePath, Err: err}
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to finish download: %w", err)
	}
	return dst.Name(), nil
}

// sftp opens an SSH connection with an SFTP subsystem on top.
func (c *Client) sftp() (io.Closer, *sftp.Client, error) {
	client, err := c.connect()
	if err != nil {
		return nil, nil, err
	}
	sftpc, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, nil, &NetworkError{Op: "open sftp subsystem on " + c.addr(), Err: err}
	}
	return client, sftpc, nil
}
