package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/ignatzorin/gallery-backend/internal/models"
	"github.com/ignatzorin/gallery-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gallery-backend/internal/storage"
)

// fakePersistence — in-memory реализация шлюза хранения для тестов.
type fakePersistence struct {
	images    []models.StoredImage
	saveCalls int
	failSave  bool
	failFetch bool
}

func (f *fakePersistence) Save(ctx context.Context, img *models.StoredImage, body io.Reader) error {
	f.saveCalls++
	if f.failSave {
		return fmt.Errorf("storage down")
	}
	if _, err := io.ReadAll(body); err != nil {
		return err
	}
	url := "http://blobs.local/images/" + img.ID.String()
	img.URL = &url
	// Новые записи первыми, как это делает ORDER BY created_at DESC
	f.images = append([]models.StoredImage{*img}, f.images...)
	return nil
}

func (f *fakePersistence) FetchAll(ctx context.Context, owner uuid.UUID) ([]models.StoredImage, error) {
	if f.failFetch {
		return nil, fmt.Errorf("storage down")
	}
	out := make([]models.StoredImage, len(f.images))
	copy(out, f.images)
	return out, nil
}

func (f *fakePersistence) Fetch(ctx context.Context, owner, id uuid.UUID) (*models.StoredImage, error) {
	for i := range f.images {
		if f.images[i].ID == id {
			img := f.images[i]
			return &img, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (f *fakePersistence) Delete(ctx context.Context, owner, id uuid.UUID) error {
	out := f.images[:0]
	for _, img := range f.images {
		if img.ID != id {
			out = append(out, img)
		}
	}
	f.images = out
	return nil
}

// fakeAnalyzer считает вызовы и возвращает заранее заданный результат.
type fakeAnalyzer struct {
	calls  int
	result *models.ImageAnalysis
}

func (f *fakeAnalyzer) AnalyzeImageWithFallback(ctx context.Context, data []byte, mimeType string) *models.ImageAnalysis {
	f.calls++
	if f.result != nil {
		return f.result
	}
	return &models.ImageAnalysis{Title: "Image", Description: "Analysis failed or was skipped.", Tags: []string{}}
}

func newTestGallery(t *testing.T, persistence *fakePersistence, analyzer *fakeAnalyzer) *GalleryService {
	t.Helper()
	spool, err := storage.NewSpool(t.TempDir(), 10)
	if err != nil {
		t.Fatalf("не удалось создать спул: %v", err)
	}
	return NewGalleryService(persistence, analyzer, spool)
}

func TestGalleryService_Upload_RejectsNonImage(t *testing.T) {
	persistence := &fakePersistence{}
	analyzer := &fakeAnalyzer{}
	svc := newTestGallery(t, persistence, analyzer)

	_, err := svc.Upload(context.Background(), uuid.New(), "report.pdf", "application/pdf", 1024, bytes.NewReader([]byte("pdf")))
	if err == nil {
		t.Fatal("ожидалась ошибка валидации")
	}
	if !apperror.IsValidation(err) {
		t.Fatalf("ожидалась VALIDATION_ERROR, получили: %v", err)
	}
	if analyzer.calls != 0 {
		t.Fatal("анализ не должен вызываться для невалидного файла")
	}
	if persistence.saveCalls != 0 {
		t.Fatal("сохранение не должно вызываться для невалидного файла")
	}
	if len(svc.Snapshot()) != 0 {
		t.Fatal("список должен остаться пустым")
	}
}

func TestGalleryService_Upload_RejectsOversize(t *testing.T) {
	persistence := &fakePersistence{}
	analyzer := &fakeAnalyzer{}
	svc := newTestGallery(t, persistence, analyzer)

	// 10 MiB + 1 байт: отказ до любых сетевых вызовов
	_, err := svc.Upload(context.Background(), uuid.New(), "big.png", "image/png", 10*1024*1024+1, bytes.NewReader([]byte("x")))
	if err == nil || !apperror.IsValidation(err) {
		t.Fatalf("ожидалась VALIDATION_ERROR, получили: %v", err)
	}
	if analyzer.calls != 0 || persistence.saveCalls != 0 {
		t.Fatal("невалидная загрузка не должна доходить до анализа и сохранения")
	}
}

func TestGalleryService_Upload_Success(t *testing.T) {
	persistence := &fakePersistence{}
	analyzer := &fakeAnalyzer{result: &models.ImageAnalysis{
		Title:       "Sunset",
		Description: "A sunset over hills",
		Tags:        []string{"sunset", "hills", "sky"},
	}}
	svc := newTestGallery(t, persistence, analyzer)

	owner := uuid.New()
	data := bytes.Repeat([]byte{0x42}, 2*1024*1024)
	img, err := svc.Upload(context.Background(), owner, "photo.png", "image/png", int64(len(data)), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("загрузка не удалась: %v", err)
	}

	if analyzer.calls != 1 {
		t.Fatalf("анализ должен вызваться ровно один раз, вызван %d", analyzer.calls)
	}
	if img.URL == nil || *img.URL == "" {
		t.Fatal("после сохранения у записи должен быть URL")
	}
	if img.Size != int64(len(data)) {
		t.Fatalf("размер записи %d, ожидался %d", img.Size, len(data))
	}

	list := svc.List(context.Background(), owner)
	if len(list) != 1 {
		t.Fatalf("в списке %d записей, ожидалась 1", len(list))
	}
	got := list[0]
	if got.ID != img.ID {
		t.Fatal("в списке нет загруженной записи")
	}
	if got.Analysis == nil || got.Analysis.Title != "Sunset" || len(got.Analysis.Tags) != 3 {
		t.Fatalf("анализ не сохранился: %+v", got.Analysis)
	}

	// Локальная ссылка освобождается после сохранения
	if _, ok := svc.ResolveDisplaySource(&got); !ok {
		t.Fatal("запись с URL должна отображаться")
	}
	if src, _ := svc.ResolveDisplaySource(&got); src.Kind != models.SourceRemote {
		t.Fatal("после сохранения источник должен быть удалённым")
	}
}

func TestGalleryService_Upload_PersistFailure(t *testing.T) {
	persistence := &fakePersistence{failSave: true}
	analyzer := &fakeAnalyzer{}
	svc := newTestGallery(t, persistence, analyzer)

	_, err := svc.Upload(context.Background(), uuid.New(), "photo.png", "image/png", 3, bytes.NewReader([]byte("png")))
	if err == nil {
		t.Fatal("ожидалась ошибка сохранения")
	}
	if apperror.IsValidation(err) {
		t.Fatal("сбой сохранения — не ошибка валидации")
	}
	if len(svc.Snapshot()) != 0 {
		t.Fatal("запись не должна попасть в список при сбое сохранения")
	}
}

func TestGalleryService_Search(t *testing.T) {
	persistence := &fakePersistence{}
	svc := newTestGallery(t, persistence, &fakeAnalyzer{})

	url := "http://blobs.local/a"
	persistence.images = []models.StoredImage{
		{ID: uuid.New(), Name: "IMG_0001.jpg", URL: &url, Analysis: &models.ImageAnalysis{Title: "Sunset", Description: "A sunset over hills", Tags: []string{"sunset", "hills", "sky"}}},
		{ID: uuid.New(), Name: "cat.png", URL: &url, Analysis: &models.ImageAnalysis{Title: "Sleepy Cat", Description: "A cat on a sofa", Tags: []string{"cat", "pet"}}},
		{ID: uuid.New(), Name: "noanalysis.webp", URL: &url},
	}
	svc.List(context.Background(), uuid.New())

	// Пустой запрос возвращает всё в исходном порядке
	all := svc.Search("")
	if len(all) != 3 {
		t.Fatalf("пустой запрос должен вернуть 3 записи, вернул %d", len(all))
	}
	if all[0].Name != "IMG_0001.jpg" || all[2].Name != "noanalysis.webp" {
		t.Fatal("пустой запрос должен сохранить порядок")
	}

	cases := []struct {
		query string
		want  int
	}{
		{"SUNSET", 1},      // регистронезависимо, по заголовку и тегам
		{"sofa", 1},        // по описанию
		{"pet", 1},         // по тегу
		{"img_0001", 1},    // по имени файла
		{"noanalysis", 1},  // запись без анализа ищется по имени
		{"missing", 0},
	}
	for _, tc := range cases {
		got := svc.Search(tc.query)
		if len(got) != tc.want {
			t.Errorf("Search(%q): %d записей, ожидалось %d", tc.query, len(got), tc.want)
		}
	}
}

func TestGalleryService_Delete(t *testing.T) {
	persistence := &fakePersistence{}
	analyzer := &fakeAnalyzer{}
	svc := newTestGallery(t, persistence, analyzer)

	owner := uuid.New()
	img, err := svc.Upload(context.Background(), owner, "photo.png", "image/png", 3, bytes.NewReader([]byte("png")))
	if err != nil {
		t.Fatalf("загрузка не удалась: %v", err)
	}

	if err := svc.Delete(context.Background(), owner, img.ID); err != nil {
		t.Fatalf("удаление не удалось: %v", err)
	}

	for _, got := range svc.List(context.Background(), owner) {
		if got.ID == img.ID {
			t.Fatal("удалённая запись не должна возвращаться из списка")
		}
	}
}

func TestGalleryService_List_StaleOnError(t *testing.T) {
	persistence := &fakePersistence{}
	svc := newTestGallery(t, persistence, &fakeAnalyzer{})

	url := "http://blobs.local/a"
	persistence.images = []models.StoredImage{
		{ID: uuid.New(), Name: "kept.png", URL: &url},
	}
	owner := uuid.New()
	svc.List(context.Background(), owner)

	// Хранилище падает: снапшот не трогаем, отдаём устаревший список
	persistence.failFetch = true
	list := svc.List(context.Background(), owner)
	if len(list) != 1 || !strings.HasPrefix(list[0].Name, "kept") {
		t.Fatalf("при сбое чтения должен вернуться прежний снапшот, вернулось: %+v", list)
	}
}
