// Package inference wraps the remote multimodal chat-completion API that
// produces answers about uploaded drawings.
package inference

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"drawing-qa-backend/internal/common"
	"drawing-qa-backend/internal/imaging"
)

// systemPrompt fixes the specialist persona and constrains output to plain
// text without markup.
const systemPrompt = `Ты — специалист по психологическому тесту "Рисунок человека".
Ты используешь научные методики (Венгер, Маховер, Гуденаф и др.) для анализа рисунков.
Отвечай строго в формате простого текста без Markdown.`

// Fixed generation parameters for reproducibility.
const (
	temperature = 0.7
	topP        = 1.0
	maxTokens   = 3072
	seed        = 42
)

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			// Multimodal completions can run for tens of seconds.
			Timeout: 5 * time.Minute,
		},
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	TopP        float64   `json:"top_p"`
	MaxTokens   int       `json:"max_tokens"`
	Seed        int       `json:"seed"`
	Stream      bool      `json:"stream"`
}

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Ask sends one chat completion carrying the question and the base64 PNG
// image, reads the streamed response and returns the chunks concatenated in
// arrival order. Failures of any kind match common.ErrInference. No retry is
// performed here.
func (c *Client) Ask(ctx context.Context, imageBase64, question string) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: question},
				{Type: "image_url", ImageURL: &imageURL{URL: imaging.DataURI(imageBase64)}},
			}},
		},
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
		Seed:        seed,
		Stream:      true,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: failed to marshal request: %v", common.ErrInference, err)
	}

	url := strings.TrimSuffix(c.baseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", common.ErrInference, err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: failed to execute request: %v", common.ErrInference, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status %d, body: %s", common.ErrInference, resp.StatusCode, string(body))
	}

	answer, err := readStream(resp.Body)
	if err != nil {
		return "", err
	}
	return answer, nil
}

// readStream concatenates delta content from SSE "data:" lines in arrival
// order until the [DONE] marker or end of stream.
func readStream(r io.Reader) (string, error) {
	var b strings.Builder

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return "", fmt.Errorf("%w: malformed stream chunk: %v", common.ErrInference, err)
		}

		if len(chunk.Choices) > 0 {
			b.WriteString(chunk.Choices[0].Delta.Content)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: failed to read stream: %v", common.ErrInference, err)
	}

	return b.String(), nil
}
