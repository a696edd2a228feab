package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newCompletionServer поднимает фейковый chat/completions endpoint,
// возвращающий заданный текст в первом choice.
func newCompletionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("неожиданный путь: %s", r.URL.Path)
		}

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("невалидное тело запроса: %v", err)
		}
		if payload["model"] == "" {
			t.Error("в запросе должна быть модель")
		}

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

var testImage = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func TestAnalyzeImage_Success(t *testing.T) {
	srv := newCompletionServer(t, `{"title":"Sunset","description":"A sunset over hills","tags":["sunset","hills","sky"]}`)
	defer srv.Close()

	client := NewClient(srv.URL, "test-model")
	analysis, err := client.AnalyzeImage(context.Background(), testImage, "image/png")
	if err != nil {
		t.Fatalf("анализ не удался: %v", err)
	}

	if analysis.Title != "Sunset" {
		t.Errorf("title = %q", analysis.Title)
	}
	if analysis.Description != "A sunset over hills" {
		t.Errorf("description = %q", analysis.Description)
	}
	if len(analysis.Tags) != 3 {
		t.Errorf("tags = %v", analysis.Tags)
	}
}

func TestAnalyzeImage_MarkdownWrappedJSON(t *testing.T) {
	srv := newCompletionServer(t, "```json\n{\"title\":\"Cat\",\"description\":\"A cat\",\"tags\":[\"cat\"]}\n```")
	defer srv.Close()

	client := NewClient(srv.URL, "test-model")
	analysis, err := client.AnalyzeImage(context.Background(), testImage, "image/png")
	if err != nil {
		t.Fatalf("анализ не удался: %v", err)
	}
	if analysis.Title != "Cat" {
		t.Errorf("title = %q", analysis.Title)
	}
}

func TestAnalyzeImage_EmptyData(t *testing.T) {
	client := NewClient("http://localhost:1", "test-model")
	if _, err := client.AnalyzeImage(context.Background(), nil, "image/png"); err == nil {
		t.Fatal("пустые данные должны возвращать ошибку")
	}
}

func TestAnalyzeImageWithFallback_NeverFails(t *testing.T) {
	badServers := map[string]http.HandlerFunc{
		"http 500": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"не JSON": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("sorry, no"))
		},
		"пустые choices": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":[]}`))
		},
		"битый контент": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":[{"message":{"content":"{\"description\":\"no title\"}"}}]}`))
		},
	}

	for name, handler := range badServers {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			client := NewClient(srv.URL, "test-model")
			analysis := client.AnalyzeImageWithFallback(context.Background(), testImage, "image/png")

			if analysis == nil {
				t.Fatal("fallback обязан вернуть результат")
			}
			if analysis.Title != "Image" || analysis.Description != "Analysis failed or was skipped." {
				t.Errorf("ожидался фиксированный fallback, получили %+v", analysis)
			}
			if len(analysis.Tags) != 0 {
				t.Errorf("у fallback не должно быть тегов: %v", analysis.Tags)
			}
		})
	}
}

func TestAnalyzeImageWithFallback_UnreachableEndpoint(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "test-model")
	analysis := client.AnalyzeImageWithFallback(context.Background(), testImage, "image/png")
	if analysis == nil || analysis.Title != "Image" {
		t.Fatalf("недоступный endpoint должен давать fallback, получили %+v", analysis)
	}
}

func TestParseAnalysisFromText(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"чистый JSON", `{"title":"A","description":"B","tags":["c"]}`, false},
		{"JSON с преамбулой", `Here is the result: {"title":"A","description":"B","tags":[]}`, false},
		{"нет JSON", "no json here", true},
		{"нет title", `{"description":"B","tags":[]}`, true},
		{"битый JSON", `{"title":`, true},
		{"tags неверного типа", `{"title":"A","description":"B","tags":"not-a-list"}`, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			analysis, err := parseAnalysisFromText(tc.text)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ожидалась ошибка, получили %+v", analysis)
				}
				return
			}
			if err != nil {
				t.Fatalf("неожиданная ошибка: %v", err)
			}
			if analysis.Tags == nil {
				t.Error("tags не должны быть nil")
			}
		})
	}
}
