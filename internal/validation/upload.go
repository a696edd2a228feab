package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Константы валидации загрузки
const (
	MaxUploadBytes    = 10 * 1024 * 1024 // 10 MiB
	MaxFilenameLength = 255
	ImageMimePrefix   = "image/"
)

// ValidateUpload проверяет заявленные параметры файла до любых сетевых
// вызовов. Ошибка валидации не имеет побочных эффектов — пользователь может
// сразу повторить загрузку.
func ValidateUpload(filename, mimeType string, size int64) error {
	if filename == "" {
		return fmt.Errorf("имя файла обязательно")
	}
	if utf8.RuneCountInString(filename) > MaxFilenameLength {
		return fmt.Errorf("имя файла должно быть не более %d символов", MaxFilenameLength)
	}
	if !strings.HasPrefix(mimeType, ImageMimePrefix) {
		return fmt.Errorf("можно загружать только изображения (JPG, PNG, WebP)")
	}
	if size <= 0 {
		return fmt.Errorf("файл не может быть пустым")
	}
	if size > MaxUploadBytes {
		return fmt.Errorf("размер файла превышает лимит 10 МБ")
	}
	return nil
}
