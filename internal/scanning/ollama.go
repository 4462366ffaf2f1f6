package scanning

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Ollama implements the Scanner interface using a local Ollama vision model
type Ollama struct {
	baseURL  string
	model    string
	maxPages int
	client   *http.Client
}

// NewOllama creates a new Ollama Scanner instance
// Vision models with decent French OCR:
//   - qwen2.5vl (best on dense tables)
//   - llava:1.6
//   - minicpm-v
func NewOllama(baseURL string, modelName string, maxPages int) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "llava"
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	return &Ollama{
		baseURL:  baseURL,
		model:    modelName,
		maxPages: maxPages,
		client: &http.Client{
			Timeout: 180 * time.Second, // vision models are slow on multi-page reports
		},
	}, nil
}

// ollamaChatRequest represents the request body for Ollama's chat API
type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// ollamaChatResponse represents the response from Ollama's chat API
type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// ScanDocument transcribes the report one page at a time
func (o *Ollama) ScanDocument(data []byte, contentType string) (*ScanResult, error) {
	pages, err := pagePNGs(data, contentType, o.maxPages)
	if err != nil {
		return nil, err
	}

	res := &ScanResult{Method: MethodOllama, Pages: len(pages)}
	texts := make([]string, 0, len(pages))
	for i, page := range pages {
		text, err := o.transcribe(page)
		if err != nil {
			return nil, fmt.Errorf("transcribing page %d: %w", i+1, err)
		}
		if text != "" {
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		return nil, ErrNoText
	}
	res.Text = joinPages(texts)
	return res, nil
}

func (o *Ollama) transcribe(png []byte) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 180*time.Second)
	defer cancel()

	reqBody := ollamaChatRequest{
		Model:  o.model,
		Stream: false,
		Messages: []ollamaMessage{
			{
				Role:    "system",
				Content: "Tu es un assistant de saisie. Tu recopies fidèlement le texte des rapports d'expertise automobile.",
			},
			{
				Role:    "user",
				Content: transcriptionPrompt,
				Images:  []string{base64.StdEncoding.EncodeToString(png)},
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", o.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	return cleanTranscription(chatResp.Message.Content), nil
}

// Close closes the Ollama client (no-op for HTTP client)
func (o *Ollama) Close() error {
	return nil
}
