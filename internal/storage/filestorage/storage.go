package storage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	basestorage "storyshelf/internal/storage"

	"github.com/google/uuid"
)

// AudioStorage holds recorded audio labels. Clips are referenced by bare
// filename only, so the base directory can move between installs.
type AudioStorage interface {
	Save(ctx context.Context, file *multipart.FileHeader) (filename string, fileSize int64, err error)
	Delete(ctx context.Context, filename string) error
	FullPath(filename string) string
	BaseURL() string
	BaseDir() string
}

var allowedAudioExtensions = map[string]struct{}{
	".m4a": {},
	".mp3": {},
	".aac": {},
	".wav": {},
	".ogg": {},
}

// LocalAudioStorage stores clips in one flat directory on the local
// filesystem under generated filenames.
type LocalAudioStorage struct {
	baseDir string
	baseURL string
	maxSize int64
}

func NewLocalAudioStorage(baseDir, baseURL string, maxSize int64) (*LocalAudioStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	return &LocalAudioStorage{
		baseDir: baseDir,
		baseURL: baseURL,
		maxSize: maxSize,
	}, nil
}

// Save copies the uploaded clip into the audio directory under a fresh
// generated filename and returns that filename.
func (s *LocalAudioStorage) Save(ctx context.Context, file *multipart.FileHeader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if _, ok := allowedAudioExtensions[ext]; !ok {
		return "", 0, fmt.Errorf("%w: %s", basestorage.ErrInvalidFileType, ext)
	}

	if s.maxSize > 0 && file.Size > s.maxSize {
		return "", 0, fmt.Errorf("%w: %d bytes", basestorage.ErrFileTooLarge, file.Size)
	}

	filename := uuid.New().String() + ext
	filePath := filepath.Join(s.baseDir, filename)

	src, err := file.Open()
	if err != nil {
		return "", 0, fmt.Errorf("failed to open source file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filePath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	done := make(chan struct{})
	var size int64
	var copyErr error

	go func() {
		size, copyErr = io.Copy(dst, src)
		close(done)
	}()

	select {
	case <-done:
		if copyErr != nil {
			_ = os.Remove(filePath)
			return "", 0, fmt.Errorf("failed to copy file: %w", copyErr)
		}
	case <-ctx.Done():
		_ = os.Remove(filePath)
		return "", 0, ctx.Err()
	}

	return filename, size, nil
}

// Delete removes a clip from the audio directory. Deleting a filename that
// does not exist is reported as ErrFileNotFound.
func (s *LocalAudioStorage) Delete(ctx context.Context, filename string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// filename is caller data; never let it escape the base dir
	fullPath := filepath.Join(s.baseDir, filepath.Base(filename))

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", basestorage.ErrFileNotFound, filename)
		}
		return err
	}

	return nil
}

// FullPath returns the on-disk path for a stored clip filename.
func (s *LocalAudioStorage) FullPath(filename string) string {
	return filepath.Join(s.baseDir, filepath.Base(filename))
}

func (s *LocalAudioStorage) BaseURL() string {
	return s.baseURL
}

func (s *LocalAudioStorage) BaseDir() string {
	return s.baseDir
}
