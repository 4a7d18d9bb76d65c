package supervisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Default prompts for vision description requests.
const (
	defaultSystemPrompt = "You are a precise assistant that describes images so they can be searched and organized."
	defaultUserPrompt   = "Describe this image in detail."
)

// InferOptions is the request gateway input.
type InferOptions struct {
	Config       ServerConfig
	Prompt       string
	SystemPrompt string
	// ImageBase64 and ImagePath are mutually exclusive image sources.
	ImageBase64 string
	ImagePath   string
	MaxTokens   int
	Temperature float32
}

// completionError is the error envelope llama-server returns on failures.
type completionError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Infer runs one vision inference request: validate input, ensure a matching
// server via the lifecycle lane, issue a single bounded HTTP completion call,
// and return the extracted text. The caller's ctx aborts only the in-flight
// HTTP request, never the server process.
func (s *Supervisor) Infer(ctx context.Context, opts InferOptions) (string, error) {
	if strings.TrimSpace(opts.Config.ModelPath) == "" {
		return "", ErrModelNotConfigured()
	}
	hasImage := opts.ImageBase64 != "" || opts.ImagePath != ""
	if hasImage && opts.Config.ProjectorPath == "" {
		return "", ErrAuxiliaryModelMissing()
	}

	s.disarmIdle()
	started := time.Now()
	defer func() {
		inferDuration.Observe(time.Since(started).Seconds())
		s.mu.Lock()
		s.lastUsed = time.Now()
		s.mu.Unlock()
		s.armIdle()
	}()

	if err := s.ensure(ctx, opts.Config); err != nil {
		return "", err
	}

	// The process may have died between ensure returning and this request.
	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()
	if proc == nil || !proc.alive() || proc.port == 0 {
		return "", ErrServerNotRunning()
	}

	payload, err := s.buildCompletionRequest(opts, hasImage)
	if err != nil {
		return "", err
	}
	return s.postCompletion(ctx, proc.port, payload)
}

func (s *Supervisor) buildCompletionRequest(opts InferOptions, hasImage bool) (openai.ChatCompletionRequest, error) {
	system := opts.SystemPrompt
	if system == "" {
		system = defaultSystemPrompt
	}
	prompt := opts.Prompt
	if prompt == "" {
		prompt = defaultUserPrompt
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = s.opts.MaxTokens
	}
	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = s.opts.Temperature
	}

	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if hasImage {
		dataURL, err := resolveImage(opts.ImageBase64, opts.ImagePath)
		if err != nil {
			return openai.ChatCompletionRequest{}, err
		}
		user.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
		}
	} else {
		user.Content = prompt
	}

	return openai.ChatCompletionRequest{
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			user,
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}, nil
}

// postCompletion issues the single bounded completion call and translates the
// response. The body read is capped at MaxResponseBytes and aborted mid-stream
// beyond it.
func (s *Supervisor) postCompletion(ctx context.Context, port int, payload openai.ChatCompletionRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()
	url := fmt.Sprintf("http://127.0.0.1:%d/v1/chat/completions", port)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	limit := s.opts.MaxResponseBytes
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("read completion response: %w", err)
	}
	if int64(len(data)) > limit {
		return "", responseTooLargeError{limit: limit}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ce completionError
		if json.Unmarshal(data, &ce) == nil && ce.Error.Message != "" {
			return "", fmt.Errorf("server error: %s", ce.Error.Message)
		}
		return "", fmt.Errorf("server error: %s", resp.Status)
	}

	var cr openai.ChatCompletionResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(cr.Choices) == 0 || strings.TrimSpace(cr.Choices[0].Message.Content) == "" {
		return "", emptyResponseError{}
	}
	return cr.Choices[0].Message.Content, nil
}
