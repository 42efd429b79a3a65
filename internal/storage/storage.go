// Package storage persists imported hosts and enabled sources between runs.
package storage

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/google/renameio/v2"
)

// Blob names; both files are flat newline-delimited text with a stable format
const (
	HostsBlob   = "hosts_rules.txt"
	SourcesBlob = "hosts_sources.txt"
)

// Permissions for created files and directories
const (
	permDir  fs.FileMode = 0o755
	permFile fs.FileMode = 0o644
)

// Store is the durable storage for imported host data
type Store interface {
	// Write replaces the blob called name with data
	Write(ctx context.Context, name string, data []byte) (err error)

	// Read returns the blob called name, or nil data if it does not exist
	Read(ctx context.Context, name string) (data []byte, err error)
}

// FileStore keeps each blob in a file inside a directory
type FileStore struct {
	dir string
}

// NewFileStore returns a file store rooted at dir
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

var _ Store = (*FileStore)(nil)

// Write atomically replaces the file backing the blob
func (s *FileStore) Write(_ context.Context, name string, data []byte) (err error) {
	defer func() { err = errors.Annotate(err, "writing %q: %w", name) }()

	if err = os.MkdirAll(s.dir, permDir); err != nil {
		return fmt.Errorf("creating dir: %w", err)
	}

	return renameio.WriteFile(filepath.Join(s.dir, name), data, permFile)
}

// Read returns the content of the file backing the blob
func (s *FileStore) Read(_ context.Context, name string) (data []byte, err error) {
	data, err = os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("reading %q: %w", name, err)
	}

	return data, nil
}

// EncodeLines serializes values as newline-delimited text
func EncodeLines(values []string) []byte {
	var buf bytes.Buffer
	for _, v := range values {
		buf.WriteString(v)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// DecodeLines parses newline-delimited text, skipping blank lines
func DecodeLines(data []byte) ([]string, error) {
	var values []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			values = append(values, line)
		}
	}

	return values, scanner.Err()
}
