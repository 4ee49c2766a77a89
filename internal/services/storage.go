package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"candidate-evaluator/internal/evalerr"
)

// Storage resolves document bytes by storage path. Open fails with a
// NotFound kind when the path does not exist.
type Storage interface {
	Open(storagePath string) (io.ReadCloser, error)
	SaveUpload(file *multipart.FileHeader, docID uuid.UUID) (string, error)
	// LocalPath returns the absolute on-disk location for a relative
	// storage path, the fallback resolution used by indexing.
	LocalPath(storagePath string) string
}

type localStorage struct {
	root string
}

func NewLocalStorage(root string) (Storage, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &localStorage{root: root}, nil
}

func (s *localStorage) Open(storagePath string) (io.ReadCloser, error) {
	f, err := os.Open(s.LocalPath(storagePath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, evalerr.New(evalerr.KindNotFound, "file not found: %s", storagePath)
		}
		return nil, fmt.Errorf("failed to open %s: %w", storagePath, err)
	}
	return f, nil
}

// SaveUpload persists an uploaded file under uploads/<yyyy/mm/dd>/ and
// returns the relative storage path.
func (s *localStorage) SaveUpload(file *multipart.FileHeader, docID uuid.UUID) (string, error) {
	safeName := filepath.Base(strings.ReplaceAll(file.Filename, "\\", "/"))
	relPath := filepath.Join(
		"uploads",
		time.Now().Format("2006/01/02"),
		fmt.Sprintf("%s_%s", docID, safeName),
	)

	fullPath := filepath.Join(s.root, relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return filepath.ToSlash(relPath), nil
}

func (s *localStorage) LocalPath(storagePath string) string {
	if filepath.IsAbs(storagePath) {
		return storagePath
	}
	return filepath.Join(s.root, filepath.FromSlash(storagePath))
}
