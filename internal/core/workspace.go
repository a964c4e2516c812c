package core

// workspace.go implements the per-run staging directory.
//
// Layout under <staging root>/<run id>/:
//
//	uploads/<field>/<original filename>   raw uploaded files
//	folder/                               extracted configuration archive
//	empty_dff.xlsx                        synthesized reference table
//	output.xlsx                           generated result
//
// A workspace belongs to exactly one run, so concurrent requests never share
// paths. Remove deletes the whole tree.

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Fixed names inside a workspace.
const (
	UploadsDirName     = "uploads"
	ConfigFolderName   = "folder"
	EmptyReferenceName = "empty_dff.xlsx"
	OutputName         = "output.xlsx"
)

// ErrUnsafeArchivePath is returned for zip entries that would be written
// outside the extraction folder.
var ErrUnsafeArchivePath = errors.New("archive entry escapes extraction folder")

// ErrArchiveTooLarge is returned when extracted content exceeds the limit.
var ErrArchiveTooLarge = errors.New("archive exceeds maximum extracted size")

// Workspace is the staging directory of a single run.
type Workspace struct {
	ID  string
	Dir string
}

// NewWorkspace creates <root>/<id>. The root is created if needed.
func NewWorkspace(root, id string) (*Workspace, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create staging root: %w", err)
	}
	dir := filepath.Join(root, id)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{ID: id, Dir: dir}, nil
}

// Path joins name onto the workspace directory.
func (w *Workspace) Path(name ...string) string {
	return filepath.Join(append([]string{w.Dir}, name...)...)
}

// Save copies r to uploads/<field>/<base name of filename> and returns the path.
func (w *Workspace) Save(field, filename string, r io.Reader) (string, error) {
	dir := w.Path(UploadsDirName, field)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}

	path := filepath.Join(dir, safeBase(filename))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// Extract unpacks the zip at zipPath into the config folder and returns the
// folder path. At most maxBytes of uncompressed data are written; maxBytes
// <= 0 disables the limit.
func (w *Workspace) Extract(zipPath string, maxBytes int64) (string, error) {
	dest := w.Path(ConfigFolderName)
	if err := os.MkdirAll(dest, 0o700); err != nil {
		return "", err
	}

	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	remaining := maxBytes
	for _, entry := range zr.File {
		target, err := entryTarget(dest, entry.Name)
		if err != nil {
			return "", err
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o700); err != nil {
				return "", err
			}
			continue
		}

		written, err := extractEntry(entry, target, remaining, maxBytes > 0)
		if err != nil {
			return "", err
		}
		remaining -= written
	}

	return dest, nil
}

// Remove deletes the workspace and everything in it.
func (w *Workspace) Remove() error {
	return os.RemoveAll(w.Dir)
}

func entryTarget(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeArchivePath, name)
	}
	return target, nil
}

func extractEntry(entry *zip.File, target string, remaining int64, limited bool) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
		return 0, err
	}

	rc, err := entry.Open()
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", entry.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	var src io.Reader = rc
	if limited {
		src = io.LimitReader(rc, remaining+1)
	}

	n, err := io.Copy(out, src)
	if err != nil {
		return n, fmt.Errorf("extract %s: %w", entry.Name, err)
	}
	if limited && n > remaining {
		return n, ErrArchiveTooLarge
	}
	return n, nil
}

// safeBase reduces an uploaded filename to a plain file name.
func safeBase(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." || base == "" {
		return "upload"
	}
	return base
}
