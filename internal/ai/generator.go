package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/sync/semaphore"
)

// GenerateOptions controls a single model request.
type GenerateOptions struct {
	System      string
	Temperature float32
	TopP        float32
	TopK        int32
	MaxTokens   int32
	Schema      *genai.Schema
}

// Generator turns a prompt into raw model text.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// GeminiGenerator is a Generator backed by the Gemini API. Calls across all
// callers share one concurrency cap.
type GeminiGenerator struct {
	client  *genai.Client
	model   string
	sem     *semaphore.Weighted
	timeout time.Duration
}

// NewGeminiGenerator creates a Gemini-backed generator.
func NewGeminiGenerator(client *genai.Client, model string, maxConcurrent int64, timeout time.Duration) *GeminiGenerator {
	return &GeminiGenerator{
		client:  client,
		model:   model,
		sem:     semaphore.NewWeighted(max(maxConcurrent, 1)),
		timeout: timeout,
	}
}

// Generate performs one request and returns the concatenated text parts of
// the first candidate.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("failed to acquire model semaphore: %w", err)
	}
	defer g.sem.Release(1)

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	model := g.client.GenerativeModel(g.model)
	if opts.System != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(opts.System))
	}
	if opts.Schema != nil {
		model.ResponseMIMEType = ApplicationJSON
		model.ResponseSchema = opts.Schema
	}
	model.SetTemperature(opts.Temperature)
	model.SetTopP(opts.TopP)
	model.SetTopK(opts.TopK)
	model.SetMaxOutputTokens(opts.MaxTokens)

	response, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil ||
		len(response.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no response from Gemini", ErrModelResponse)
	}

	var sb strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: unexpected response format from Gemini", ErrModelResponse)
	}

	return sb.String(), nil
}
