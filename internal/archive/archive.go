// Package archive builds and unpacks the transfer archives.
//
// Archives are gzip-compressed tarballs. Member order is lexicographic, so
// packing the same resolved file set over unchanged directory contents
// produces the same member sequence. Mode bits, empty directories, and
// symlinks survive the round trip.
package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/imamik/shipyard/internal/fileset"
)

// Pack writes the resolved file set into a new archive in a temporary
// location and returns its path. An empty resolved set is an error, never a
// vacuous archive.
func Pack(rs fileset.Resolved) (string, error) {
	if len(rs.Paths) == 0 {
		return "", fileset.ErrEmptyFileSet
	}

	members, err := collect(rs)
	if err != nil {
		return "", err
	}

	out, err := os.CreateTemp("", "shipyard-*.tar.gz")
	if err != nil {
		return "", fmt.Errorf("failed to create archive file: %w", err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	for _, m := range members {
		if err := writeMember(tw, rs.Base, m); err != nil {
			os.Remove(out.Name())
			return "", err
		}
	}

	if err := tw.Close(); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("failed to finish archive: %w", err)
	}
	if err := gz.Close(); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("failed to finish archive: %w", err)
	}

	return out.Name(), nil
}

// collect walks every path in the set and returns the sorted relative
// member list.
func collect(rs fileset.Resolved) ([]string, error) {
	seen := make(map[string]struct{})
	for _, p := range rs.Paths {
		root := filepath.Join(rs.Base, p)
		err := filepath.WalkDir(root, func(path string, _ fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(rs.Base, path)
			if err != nil {
				return err
			}
			seen[filepath.ToSlash(rel)] = struct{}{}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
	}

	members := make([]string, 0, len(seen))
	for m := range seen {
		members = append(members, m)
	}
	sort.Strings(members)
	return members, nil
}

func writeMember(tw *tar.Writer, base, name string) error {
	path := filepath.Join(base, filepath.FromSlash(name))
	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", name, err)
	}

	link := ""
	if info.Mode()&fs.ModeSymlink != 0 {
		if link, err = os.Readlink(path); err != nil {
			return fmt.Errorf("failed to read symlink %s: %w", name, err)
		}
	}

	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return fmt.Errorf("failed to build header for %s: %w", name, err)
	}
	hdr.Name = name
	if info.IsDir() {
		hdr.Name += "/"
	}

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write header for %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	f, err := os.Open(path) // #nosec G304 -- path comes from the resolved file set
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to archive %s: %w", name, err)
	}
	return nil
}

// Unpack restores an archive under targetDir. Members that would escape
// targetDir are rejected.
func Unpack(archivePath, targetDir string) error {
	f, err := os.Open(archivePath) // #nosec G304 -- operator-supplied path
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read archive entry: %w", err)
		}
		if err := restore(tr, hdr, targetDir); err != nil {
			return err
		}
	}
}

func restore(tr *tar.Reader, hdr *tar.Header, targetDir string) error {
	name := filepath.FromSlash(strings.TrimSuffix(hdr.Name, "/"))
	if !filepath.IsLocal(name) {
		return fmt.Errorf("archive entry %q escapes the target directory", hdr.Name)
	}
	dest := filepath.Join(targetDir, name)

	switch hdr.Typeflag {
	case tar.TypeDir:
		if err := os.MkdirAll(dest, fs.FileMode(hdr.Mode)); err != nil { // #nosec G115 -- tar modes fit
			return err
		}
		// MkdirAll applies the mode through the umask; restore the
		// recorded bits exactly.
		return os.Chmod(dest, fs.FileMode(hdr.Mode)) // #nosec G115
	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		return os.Symlink(hdr.Linkname, dest)
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fs.FileMode(hdr.Mode)) // #nosec G304,G115
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", hdr.Name, err)
		}
		if _, err := io.Copy(out, tr); err != nil { // #nosec G110 -- trusted archive from our own pack
			out.Close()
			return fmt.Errorf("failed to restore %s: %w", hdr.Name, err)
		}
		if err := out.Close(); err != nil {
			return err
		}
		// OpenFile's create mode passes through the umask too.
		return os.Chmod(dest, fs.FileMode(hdr.Mode)) // #nosec G115
	default:
		// Other entry types (fifos, devices) have no business in a code tree.
		return fmt.Errorf("unsupported archive entry type %d for %q", hdr.Typeflag, hdr.Name)
	}
}
