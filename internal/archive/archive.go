// Package archive opens workbook files for extraction. A bare document
// (.twb) is used in place; a packaged workbook (.twbx) is a zip archive
// that gets unpacked to a temporary directory, locating the embedded
// document and any bundled data extract files.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/twbmeta/twbmeta/internal/logging"
	"github.com/twbmeta/twbmeta/pkg/twbmeta"
)

// Workbook is an opened workbook file. Close releases the temporary
// directory backing a packaged workbook; for a bare document it is a no-op.
type Workbook struct {
	// DocumentPath points at the workbook document XML on disk.
	DocumentPath string

	// ExtractFiles lists bundled data extract files (.hyper/.tde) found in
	// a packaged workbook, in archive order.
	ExtractFiles []string

	tempDir string
}

// Open prepares the workbook at path for extraction. Unrecognized
// extensions are rejected up front rather than sniffing content.
func Open(path string, log twbmeta.Logger) (*Workbook, error) {
	if log == nil {
		log = logging.NewNullLogger()
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", twbmeta.ErrFileNotFound, path)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", twbmeta.ErrFileNotFound, path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case twbmeta.DocumentExtension:
		return &Workbook{DocumentPath: path}, nil
	case twbmeta.PackagedExtension:
		return openPackaged(path, log)
	default:
		return nil, fmt.Errorf("%w: unsupported file extension %q", twbmeta.ErrInvalidConfig, filepath.Ext(path))
	}
}

// Close removes the temporary directory of a packaged workbook.
func (w *Workbook) Close() error {
	if w.tempDir == "" {
		return nil
	}
	return os.RemoveAll(w.tempDir)
}

func openPackaged(path string, log twbmeta.Logger) (*Workbook, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening packaged workbook %s: %w", path, err)
	}
	defer reader.Close()

	tempDir, err := os.MkdirTemp("", "twbmeta-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp directory: %w", err)
	}

	w := &Workbook{tempDir: tempDir}
	for _, file := range reader.File {
		dest, err := unpackFile(tempDir, file)
		if err != nil {
			w.Close()
			return nil, err
		}
		if dest == "" {
			continue
		}

		switch strings.ToLower(filepath.Ext(dest)) {
		case twbmeta.DocumentExtension:
			if w.DocumentPath == "" {
				w.DocumentPath = dest
			}
		case ".hyper", ".tde":
			w.ExtractFiles = append(w.ExtractFiles, dest)
		}
	}

	if w.DocumentPath == "" {
		w.Close()
		return nil, fmt.Errorf("%w in %s", twbmeta.ErrNoDocument, path)
	}

	log.Verbose("Unpacked %s: document %s, %d extract files",
		filepath.Base(path), filepath.Base(w.DocumentPath), len(w.ExtractFiles))

	return w, nil
}

// unpackFile writes one archive entry under dir, refusing paths that would
// escape it. Directory entries return an empty destination.
func unpackFile(dir string, file *zip.File) (string, error) {
	if file.FileInfo().IsDir() {
		return "", nil
	}

	dest := filepath.Join(dir, filepath.FromSlash(file.Name))
	if !strings.HasPrefix(dest, filepath.Clean(dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes extraction directory", file.Name)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("creating directory for %s: %w", file.Name, err)
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("reading archive entry %s: %w", file.Name, err)
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("writing %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return "", fmt.Errorf("extracting %s: %w", file.Name, err)
	}

	return dest, nil
}
