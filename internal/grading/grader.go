package grading

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

// ErrAIGradingFailed wraps every provider failure: transport errors, non-2xx
// statuses, and malformed payloads.
var ErrAIGradingFailed = errors.New("ai grading failed")

// Result is one graded open-ended answer.
type Result struct {
	Score    float64 `json:"score"` // 0..1
	Feedback string  `json:"feedback"`
}

// Grader is the external text-grading capability.
type Grader interface {
	Grade(ctx context.Context, question, rubric, answer string) (Result, error)
}

const systemPrompt = `You are a strict grader.
Given the rubric and the student's answer,
respond ONLY with valid JSON: {"score": float 0-1, "feedback": string}`

// HTTPGrader talks to an OpenAI-compatible chat-completions endpoint.
type HTTPGrader struct {
	http    *http.Client
	baseURL string
	apiKey  string
	model   string
}

type HTTPGraderConfig struct {
	BaseURL string // e.g. https://api.openai.com/v1
	APIKey  string
	Model   string
	Timeout time.Duration
}

func NewHTTPGrader(cfg HTTPGraderConfig) *HTTPGrader {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPGrader{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}
}

func (g *HTTPGrader) Grade(ctx context.Context, question, rubric, answer string) (Result, error) {
	user := fmt.Sprintf("QUESTION:\n%s\n\nRUBRIC:\n%s\n\nSTUDENT:\n%s", question, rubric, answer)
	body, _ := json.Marshal(map[string]any{
		"model": g.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": user},
		},
		"response_format": map[string]string{"type": "json_object"},
		"temperature":     0.0,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	res, err := g.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrAIGradingFailed, err)
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return Result{}, fmt.Errorf("%w: %s", ErrAIGradingFailed, res.Status)
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(res.Body).Decode(&completion); err != nil {
		return Result{}, fmt.Errorf("%w: decode: %v", ErrAIGradingFailed, err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return Result{}, fmt.Errorf("%w: empty completion", ErrAIGradingFailed)
	}

	var out Result
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &out); err != nil {
		return Result{}, fmt.Errorf("%w: bad grade payload: %v", ErrAIGradingFailed, err)
	}
	if out.Score < 0 || out.Score > 1 {
		return Result{}, fmt.Errorf("%w: score %v out of range", ErrAIGradingFailed, out.Score)
	}
	return out, nil
}
