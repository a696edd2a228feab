package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ignatzorin/gallery-backend/internal/logger"
	"github.com/ignatzorin/gallery-backend/internal/models"
)

// analysisPrompt — фиксированная инструкция для vision модели. Формат ответа
// жёстко закреплён, чтобы его можно было распарсить в ImageAnalysis.
const analysisPrompt = `Analyze this image. Provide a creative title, a short descriptive summary (max 30 words), and 3-5 relevant visual tags. Respond with a single JSON object: {"title": string, "description": string, "tags": string[]}.`

// Client отправляет изображения на OpenAI-совместимый vision endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient создаёт экземпляр клиента.
func NewClient(baseURL, model string) *Client {
	apiKey := os.Getenv("BOTHUB_ACCESS_TOKEN")
	if apiKey == "" {
		apiKey = os.Getenv("AI_API_KEY")
	}

	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// FallbackAnalysis возвращает фиксированный результат, который подставляется
// вместо любого сбоя анализа, чтобы пайплайн загрузки никогда не падал из-за AI.
func FallbackAnalysis() *models.ImageAnalysis {
	return &models.ImageAnalysis{
		Title:       "Image",
		Description: "Analysis failed or was skipped.",
		Tags:        []string{},
	}
}

// AnalyzeImage выполняет один запрос к vision модели и возвращает
// структурированный результат. Ошибки не прячутся — их схлопывает
// AnalyzeImageWithFallback на границе пайплайна.
func (c *Client) AnalyzeImage(ctx context.Context, data []byte, mimeType string) (*models.ImageAnalysis, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("ai: baseURL не задан")
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("ai: пустые данные изображения")
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))

	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{
						"type":      "image_url",
						"image_url": map[string]string{"url": dataURL},
					},
					{
						"type": "text",
						"text": analysisPrompt,
					},
				},
			},
		},
		"max_tokens":      512,
		"temperature":     0.7,
		"response_format": map[string]string{"type": "json_object"},
	}

	raw, err := c.chatCompletion(ctx, payload)
	if err != nil {
		return nil, err
	}

	analysis, err := parseAnalysisFromText(raw)
	if err != nil {
		return nil, err
	}

	return analysis, nil
}

// AnalyzeImageWithFallback гарантирует результат: любой сбой (кодирование,
// сеть, битый ответ) заменяется фиксированным fallback. Без ретраев и
// backoff — единственный таймаут задаёт http клиент.
func (c *Client) AnalyzeImageWithFallback(ctx context.Context, data []byte, mimeType string) *models.ImageAnalysis {
	analysis, err := c.AnalyzeImage(ctx, data, mimeType)
	if err != nil {
		logger.WithComponent("ai").Warnf("анализ изображения не удался, используем fallback: %v", err)
		return FallbackAnalysis()
	}
	return analysis
}

// chatCompletion выполняет запрос chat/completions и возвращает текст ответа.
func (c *Client) chatCompletion(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := c.baseURL
	if !strings.HasSuffix(url, "/") {
		url += "/"
	}
	url += "chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errorBody map[string]any
		json.NewDecoder(resp.Body).Decode(&errorBody)
		return "", fmt.Errorf("ai: код ответа %d: %v", resp.StatusCode, errorBody)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("ai: пустой ответ")
	}

	return result.Choices[0].Message.Content, nil
}

// parseAnalysisFromText извлекает JSON объект из текста ответа. Модели часто
// оборачивают JSON в markdown-блоки, поэтому ищем первую и последнюю скобки.
func parseAnalysisFromText(text string) (*models.ImageAnalysis, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("ai: в ответе нет JSON объекта")
	}

	var analysis models.ImageAnalysis
	if err := json.Unmarshal([]byte(text[start:end+1]), &analysis); err != nil {
		return nil, fmt.Errorf("ai: не удалось распарсить ответ: %w", err)
	}

	if analysis.Title == "" {
		return nil, fmt.Errorf("ai: в ответе отсутствует title")
	}
	if analysis.Tags == nil {
		analysis.Tags = []string{}
	}

	return &analysis, nil
}
