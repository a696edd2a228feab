package repository

import (
	"testing"

	"github.com/google/uuid"

	"github.com/ignatzorin/gallery-backend/internal/pkg/apperror"
)

func TestDecodeAnalysis_Valid(t *testing.T) {
	raw := []byte(`{"title":"Закат","description":"Тёплые тона","tags":["закат","небо"]}`)

	analysis, err := decodeAnalysis(raw)
	if err != nil {
		t.Fatalf("декодирование не удалось: %v", err)
	}
	if analysis.Title != "Закат" {
		t.Fatalf("заголовок %q, ожидался %q", analysis.Title, "Закат")
	}
	if len(analysis.Tags) != 2 {
		t.Fatalf("тегов %d, ожидалось 2", len(analysis.Tags))
	}
}

func TestDecodeAnalysis_NormalizesNilTags(t *testing.T) {
	raw := []byte(`{"title":"Без тегов","description":"Описание"}`)

	analysis, err := decodeAnalysis(raw)
	if err != nil {
		t.Fatalf("декодирование не удалось: %v", err)
	}
	if analysis.Tags == nil {
		t.Fatal("tags должен быть пустым срезом, не nil")
	}
	if len(analysis.Tags) != 0 {
		t.Fatalf("тегов %d, ожидалось 0", len(analysis.Tags))
	}
}

func TestDecodeAnalysis_ShapeMismatch(t *testing.T) {
	cases := []struct {
		name string
		raw  []byte
	}{
		{"не json", []byte(`{{{`)},
		{"теги не массив", []byte(`{"title":"x","description":"y","tags":"закат"}`)},
		{"заголовок не строка", []byte(`{"title":42,"description":"y","tags":[]}`)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := decodeAnalysis(tc.raw); err == nil {
				t.Fatal("ожидалась ошибка декодирования")
			} else if !apperror.IsDecode(err) {
				t.Fatalf("ожидался код DECODE_ERROR, получено: %v", err)
			}
		})
	}
}

func TestImageRowToModel_WithoutAnalysis(t *testing.T) {
	row := imageRow{
		ID:        uuid.New(),
		OwnerID:   uuid.New(),
		Name:      "img_0001.png",
		Type:      "image/png",
		Size:      1024,
		CreatedAt: 1756700000000,
		URL:       "https://storage.example.com/gallery/images/a",
	}

	img, err := row.toModel()
	if err != nil {
		t.Fatalf("преобразование не удалось: %v", err)
	}
	if img.Analysis != nil {
		t.Fatal("анализ должен отсутствовать")
	}
	if img.URL == nil || *img.URL != row.URL {
		t.Fatal("url должен переноситься как есть")
	}
}
