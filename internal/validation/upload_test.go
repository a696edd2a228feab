package validation

import (
	"strings"
	"testing"
)

func TestValidateUpload(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		mimeType string
		size     int64
		wantErr  bool
	}{
		{"валидный png", "photo.png", "image/png", 1024, false},
		{"валидный jpeg на границе лимита", "photo.jpg", "image/jpeg", MaxUploadBytes, false},
		{"валидный webp", "photo.webp", "image/webp", 500, false},
		{"пустое имя", "", "image/png", 1024, true},
		{"слишком длинное имя", strings.Repeat("ф", MaxFilenameLength+1), "image/png", 1024, true},
		{"не изображение", "notes.txt", "text/plain", 1024, true},
		{"пустой mime", "photo.png", "", 1024, true},
		{"нулевой размер", "photo.png", "image/png", 0, true},
		{"отрицательный размер", "photo.png", "image/png", -1, true},
		{"превышение лимита", "photo.png", "image/png", MaxUploadBytes + 1, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateUpload(tc.filename, tc.mimeType, tc.size)
			if tc.wantErr && err == nil {
				t.Fatal("ожидалась ошибка валидации")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("неожиданная ошибка: %v", err)
			}
		})
	}
}
