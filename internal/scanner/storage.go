package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Storage persists the rectified card image of each scan, keyed by scan ID.
type Storage interface {
	// SaveScan stores the PNG-encoded card image for a scan.
	SaveScan(scanID string, png []byte) error

	// GetScan returns the stored card image for a scan.
	GetScan(scanID string) ([]byte, error)
}

// LocalStorage keeps scan images on the local filesystem, one
// "<scanID>.png" file per scan under a single directory.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates the storage directory if needed.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// scanPath maps a scan ID to its image file. Scan IDs arrive from URLs as
// well as the ID generator, so IDs that would escape the directory are
// rejected.
func (l *LocalStorage) scanPath(scanID string) (string, error) {
	if scanID == "" || strings.ContainsAny(scanID, `/\`) || scanID != filepath.Base(scanID) {
		return "", fmt.Errorf("invalid scan id %q", scanID)
	}
	return filepath.Join(l.basePath, scanID+".png"), nil
}

// SaveScan writes the scan image to "<scanID>.png".
func (l *LocalStorage) SaveScan(scanID string, png []byte) error {
	path, err := l.scanPath(scanID)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, png, 0644); err != nil {
		return fmt.Errorf("writing scan image: %w", err)
	}
	return nil
}

// GetScan reads the scan image back.
func (l *LocalStorage) GetScan(scanID string) ([]byte, error) {
	path, err := l.scanPath(scanID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scan image: %w", err)
	}
	return data, nil
}
