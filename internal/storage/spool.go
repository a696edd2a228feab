package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Spool — временное локальное хранилище байтов изображения на время, пока у
// записи ещё нет постоянного URL. Ссылка живёт только внутри процесса:
// владелец обязан освободить её после сохранения записи или при её удалении.
// Чужие удалённые URL спул никогда не трогает.
type Spool struct {
	rootPath string
	maxBytes int64
}

// NewSpool создаёт каталог спула.
func NewSpool(rootPath string, maxUploadMB int64) (*Spool, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("spool: не удалось создать каталог %s: %w", rootPath, err)
	}

	return &Spool{
		rootPath: rootPath,
		maxBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

// Save записывает байты записи во временный файл и возвращает путь.
func (s *Spool) Save(ctx context.Context, id uuid.UUID, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	targetPath := s.pathFor(id)
	tempPath := targetPath + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return "", 0, fmt.Errorf("spool: не удалось создать файл: %w", err)
	}
	defer f.Close()

	limitedReader := io.LimitedReader{R: r, N: s.maxBytes + 1}
	written, err := io.Copy(f, &limitedReader)
	if err != nil {
		_ = os.Remove(tempPath)
		return "", 0, fmt.Errorf("spool: ошибка записи файла: %w", err)
	}

	if written > s.maxBytes {
		_ = os.Remove(tempPath)
		return "", 0, fmt.Errorf("spool: размер файла превышает лимит %d байт", s.maxBytes)
	}

	if err := f.Close(); err != nil {
		return "", 0, fmt.Errorf("spool: ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tempPath, targetPath); err != nil {
		return "", 0, fmt.Errorf("spool: не удалось переименовать файл: %w", err)
	}

	return targetPath, written, nil
}

// Lookup возвращает путь к локальной копии, если она существует.
func (s *Spool) Lookup(id uuid.UUID) (string, bool) {
	path := s.pathFor(id)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// Open открывает локальную копию на чтение.
func (s *Spool) Open(id uuid.UUID) (io.ReadCloser, error) {
	f, err := os.Open(s.pathFor(id))
	if err != nil {
		return nil, fmt.Errorf("spool: не удалось открыть файл: %w", err)
	}
	return f, nil
}

// Release освобождает локальную ссылку. Отсутствующий файл не ошибка:
// освобождение идемпотентно.
func (s *Spool) Release(id uuid.UUID) error {
	if err := os.Remove(s.pathFor(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("spool: не удалось удалить файл: %w", err)
	}
	return nil
}

// Sweep удаляет все файлы спула. Вызывается на старте: локальные ссылки не
// переживают перезапуск процесса.
func (s *Spool) Sweep() error {
	entries, err := os.ReadDir(s.rootPath)
	if err != nil {
		return fmt.Errorf("spool: не удалось прочитать каталог: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.rootPath, entry.Name())); err != nil {
			return fmt.Errorf("spool: не удалось удалить файл %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func (s *Spool) pathFor(id uuid.UUID) string {
	return filepath.Join(s.rootPath, id.String())
}
