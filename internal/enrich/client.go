// Package enrich provides the HTTP client for the optional LLM enrichment
// step. The model's output is treated as untrusted input: the normalizer
// re-validates every returned candidate before anything is persisted.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable indicates the enrichment backend is unreachable.
var ErrUnavailable = errors.New("enrichment service unavailable")

// ErrBadResponse indicates the backend returned a shape outside the
// contract (neither a JSON array nor an {"items": [...]} wrapper).
var ErrBadResponse = errors.New("enrichment response violates contract")

const defaultTimeout = 180 * time.Second

// Item is one element of the enrichment request chunk: the record's own
// content layered under the accumulated course and module context.
type Item struct {
	OriginalID     string `json:"original_id"`
	CategoryHint   string `json:"category_hint,omitempty"`
	Title          string `json:"title"`
	BodyText       string `json:"body_text"`
	WeekHint       string `json:"week_hint,omitempty"`
	Dates          Dates  `json:"dates"`
	ParsedDateHint string `json:"parsed_date_hint,omitempty"`
}

// Dates carries the record's structured date fields into the prompt.
type Dates struct {
	DueAt    string `json:"due_at,omitempty"`
	PostedAt string `json:"posted_at,omitempty"`
}

// Candidate is one NormalizedItem-shaped object returned by the backend.
// Every field is advisory until the normalizer's validation/backfill pass
// confirms it.
type Candidate struct {
	OriginalID       string `json:"original_id"`
	Category         string `json:"category"`
	Title            string `json:"title"`
	WeekIndex        int    `json:"week_index"`
	DueDate          string `json:"due_date"`
	InferredDate     string `json:"inferred_date"`
	ContentClean     string `json:"content_clean"`
	IsActionRequired bool   `json:"is_action_required"`
}

// Client talks to an Ollama-compatible chat endpoint in JSON mode.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a new enrichment client. timeout of 0 means the
// default (local inference backends routinely take minutes per chunk).
func NewClient(baseURL, model string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   string         `json:"format"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

const systemPromptTemplate = `You are a strict data normalizer. Today is %s.
Convert raw academic items into a standardized database schema.
Analyze 'week_hint', 'body_text', and 'dates' to infer the correct metadata.

[OUTPUT SCHEMA]
A JSON array. Each element:
{
  "original_id": "string (MUST match the input 'original_id' exactly)",
  "category": "assignment|quiz|notice|material|video",
  "week_index": integer (0 if unknown/common),
  "title": "string",
  "is_action_required": boolean,
  "due_date": "YYYY-MM-DD HH:MM" or null,
  "inferred_date": "YYYY-MM-DD" (if relative date in text, calculate from posted_at),
  "content_clean": "concise summary including all dates and constraints (Korean)"
}

[RULES]
1. Week inference: trust 'week_hint' first, then 'N주차' in title/body.
2. Date inference: if 'due_at' exists, use it as 'due_date'. For relative
   expressions ("next week", "until Friday") calculate from the item's
   'posted_at', never from today.
3. Output ONLY the JSON array. No conversational text.`

// NormalizeItems sends one chunk to the backend and decodes the candidate
// list. The contract is strict: the model must return a JSON array, or the
// {"items": [...]} wrapper Ollama's JSON mode routinely emits; anything else
// is ErrBadResponse.
func (c *Client) NormalizeItems(ctx context.Context, courseName string, chunk []Item) ([]Candidate, error) {
	userContent, err := json.Marshal(chunk)
	if err != nil {
		return nil, fmt.Errorf("marshal chunk: %w", err)
	}

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf(systemPromptTemplate, time.Now().Format("2006-01-02"))},
			{Role: "user", Content: fmt.Sprintf("Context: Course %q\nData:\n%s", courseName, userContent)},
		},
		Stream:  false,
		Format:  "json",
		Options: map[string]any{"temperature": 0.0, "num_ctx": 8192},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("enrichment backend returned %d", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return decodeCandidates(chat.Message.Content)
}

// Health checks that the backend is reachable.
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy status: %d", resp.StatusCode)
	}
	return nil
}

// decodeCandidates enforces the response contract. Markdown code fences are
// stripped first since models wrap JSON in them despite instructions.
func decodeCandidates(content string) ([]Candidate, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	if content == "" {
		return nil, fmt.Errorf("%w: empty content", ErrBadResponse)
	}

	if strings.HasPrefix(content, "[") {
		var candidates []Candidate
		if err := json.Unmarshal([]byte(content), &candidates); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
		}
		return candidates, nil
	}

	var wrapper struct {
		Items []Candidate `json:"items"`
	}
	if err := json.Unmarshal([]byte(content), &wrapper); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if wrapper.Items == nil {
		return nil, fmt.Errorf("%w: neither array nor items wrapper", ErrBadResponse)
	}
	return wrapper.Items, nil
}
