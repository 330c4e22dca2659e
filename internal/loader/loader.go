// Package loader turns an uploaded tariff document into records.
package loader

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"reimburse/internal/domain"
)

// Supported extensions.
const (
	ExtCSV  = ".csv"
	ExtJSON = ".json"
)

// Loader parses CSV and JSON uploads into records. Uploaded bytes are spooled
// to a temporary file that never outlives a Load call.
type Loader struct {
	// TempDir is where uploads are spooled; empty means os.TempDir().
	TempDir string
}

// New creates a loader spooling into the default temp directory.
func New() *Loader { return &Loader{} }

// SupportedExtensions returns the file extensions the loader accepts.
func (l *Loader) SupportedExtensions() []string {
	return []string{ExtCSV, ExtJSON}
}

// Load parses data according to the extension of fileName.
func (l *Loader) Load(data []byte, fileName string) ([]domain.Record, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext != ExtCSV && ext != ExtJSON {
		return nil, domain.NewError(domain.KindUnsupportedFormat,
			fmt.Sprintf("%q is not a .csv or .json file", fileName), nil)
	}

	path, cleanup, err := l.spool(data, ext)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open spooled upload: %w", err)
	}
	defer f.Close()

	source := filepath.Base(fileName)
	switch ext {
	case ExtCSV:
		return parseCSV(f, source)
	default:
		raw, err := readAll(f)
		if err != nil {
			return nil, err
		}
		return parseJSON(raw, source)
	}
}

// LoadFile reads the document at path and loads it.
func (l *Loader) LoadFile(path string) ([]domain.Record, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ExtCSV && ext != ExtJSON {
		return nil, domain.NewError(domain.KindUnsupportedFormat,
			fmt.Sprintf("%q is not a .csv or .json file", filepath.Base(path)), nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return l.Load(data, path)
}

// spool writes data to a temp file and returns a cleanup func that removes it.
func (l *Loader) spool(data []byte, ext string) (string, func(), error) {
	tmp, err := os.CreateTemp(l.TempDir, "upload-*"+ext)
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	path := tmp.Name()
	cleanup := func() { _ = os.Remove(path) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}
	return path, cleanup, nil
}

func readAll(f *os.File) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("read spooled upload: %w", err)
	}
	return buf.Bytes(), nil
}
