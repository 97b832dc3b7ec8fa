package reportstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/biotmed/biot-sdk-go/snapshot"
)

const reportFileExtension = ".json"

// FilesystemStore persists report documents as JSON files under a root
// directory, one file per report, named after the report. Writes go through
// a temp file and an atomic rename; it is not safe against concurrent
// writers of the same report name beyond per-file creation.
type FilesystemStore struct {
	root string
}

// NewFilesystemStore creates a filesystem-backed report store rooted at
// path, creating the directory if needed.
func NewFilesystemStore(root string) (*FilesystemStore, error) {
	if root == "" {
		return nil, errors.New("report store root directory must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}

	return &FilesystemStore{root: root}, nil
}

// sanitizeReportName maps a report name onto a flat file name and rejects
// anything that could escape the root.
func sanitizeReportName(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", snapshot.ErrEmptyReportName
	}
	if strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid report name contains '..'")
	}
	if strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid report name contains a path separator")
	}

	return name + reportFileExtension, nil
}

func (s *FilesystemStore) pathFor(name string) (string, error) {
	fileName, err := sanitizeReportName(name)
	if err != nil {
		return "", err
	}

	return filepath.Join(s.root, fileName), nil
}

// SaveReport writes the report document to a new file named after the
// report. The file path serves as the storage id.
func (s *FilesystemStore) SaveReport(_ context.Context, report snapshot.Report) (string, error) {
	path, err := s.pathFor(report.Name)
	if err != nil {
		return "", err
	}

	if _, statErr := os.Stat(path); statErr == nil {
		return "", snapshot.ErrReportExists
	}

	document, err := report.MarshalDocument()
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.root, ".tmp-report-*")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(document); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}

	return path, nil
}

// GetReportByName reads a stored report document back.
func (s *FilesystemStore) GetReportByName(_ context.Context, name string) (snapshot.Report, error) {
	path, err := s.pathFor(name)
	if err != nil {
		return snapshot.Report{}, err
	}

	document, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return snapshot.Report{}, snapshot.ErrReportNotFound
	}
	if err != nil {
		return snapshot.Report{}, err
	}

	return snapshot.UnmarshalReport(document)
}

var _ snapshot.ReportStore = (*FilesystemStore)(nil)
