package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

const (
	DefaultModel        = "claude-sonnet-4-20250514"
	DefaultMaxTextChars = 8000
	fieldPromptChars    = 2000
	maxAttempts         = 3
)

const analysisSystemPrompt = `You are an expert patent analyst and intellectual property specialist. Evaluate inventions for patentability on four criteria:

1. Novelty: is the invention new and not disclosed in prior art?
2. Non-obviousness: would it be non-obvious to a person skilled in the art?
3. Utility: does it have practical application and solve a real problem?
4. Enablement: is it described in enough detail to be reproduced?

Score each criterion from 0.0 to 1.0 (0.0-0.3 poor, 0.4-0.6 moderate, 0.7-0.8 good, 0.9-1.0 excellent). Respond with strict JSON only.`

const fieldSystemPrompt = "You are a patent classification expert."

// TechnicalFields is the fixed classification used when a request does not
// name its field.
var TechnicalFields = []string{
	"Software/Computing",
	"Electronics/Hardware",
	"Mechanical/Manufacturing",
	"Chemical/Materials",
	"Biotechnology/Medical",
	"Telecommunications",
	"Energy/Environmental",
	"Other",
}

const FallbackField = "Other"

type llmFailureClass int

const (
	failureNone llmFailureClass = iota
	failureTimeout
	failureRateLimit
	failureServer
	failureClient
)

type LLMCaller interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
	ModelName() string
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicCaller struct {
	messages AnthropicMessager
	model    string
}

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient = defaultAnthropicCreator

func NewAnthropicCaller(apiKey, model string) (*AnthropicCaller, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("anthropic api key not configured")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &AnthropicCaller{messages: newAnthropicClient(apiKey), model: model}, nil
}

func (a *AnthropicCaller) ModelName() string { return a.model }

func (a *AnthropicCaller) Generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   4096,
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

// AnthropicAnalyzer scores inventions and classifies their technical field
// through an LLMCaller.
type AnthropicAnalyzer struct {
	caller       LLMCaller
	log          *zap.Logger
	maxTextChars int
	backoff      func(attempt int) time.Duration
}

func NewAnthropicAnalyzer(caller LLMCaller, log *zap.Logger, maxTextChars int) *AnthropicAnalyzer {
	if log == nil {
		log = zap.NewNop()
	}
	if maxTextChars <= 0 {
		maxTextChars = DefaultMaxTextChars
	}
	return &AnthropicAnalyzer{caller: caller, log: log, maxTextChars: maxTextChars, backoff: backoffDelay}
}

func (a *AnthropicAnalyzer) Analyze(ctx context.Context, title, text, field string) (Criteria, error) {
	var out Criteria
	prompt := analysisPrompt(title, clip(text, a.maxTextChars), field)
	attempts, err := a.runJSON(ctx, StageAnalysis, analysisSystemPrompt, prompt, &out, func() error { return out.Validate() })
	if err != nil {
		return Criteria{}, err
	}
	a.log.Info("analysis_done",
		zap.String("project_title", title),
		zap.String("model", a.caller.ModelName()),
		zap.Int("attempts", attempts),
	)
	return out, nil
}

// IdentifyField never fails: any error or unrecognised answer yields "Other".
func (a *AnthropicAnalyzer) IdentifyField(ctx context.Context, text string) string {
	var sb strings.Builder
	sb.WriteString("Classify the following invention into one of these technical fields:\n")
	for _, f := range TechnicalFields {
		sb.WriteString("- " + f + "\n")
	}
	sb.WriteString("\nInvention: " + clip(text, fieldPromptChars) + "\n\nRespond with just the field name.")

	raw, err := a.caller.Generate(ctx, fieldSystemPrompt, sb.String())
	if err != nil {
		a.log.Warn("field_identification_failed", zap.Error(err))
		return FallbackField
	}
	field := matchField(raw)
	a.log.Debug("field_identified", zap.String("field", field), zap.String("raw", clip(raw, 80)))
	return field
}

func matchField(raw string) string {
	answer := strings.ToLower(strings.Trim(strings.TrimSpace(raw), "\"'`.*- "))
	for _, f := range TechnicalFields {
		if answer == strings.ToLower(f) {
			return f
		}
	}
	for _, f := range TechnicalFields {
		if strings.Contains(answer, strings.ToLower(f)) {
			return f
		}
	}
	return FallbackField
}

func analysisPrompt(title, text, field string) string {
	var sb strings.Builder
	sb.WriteString("Analyze the following invention for patent potential.\n\n")
	sb.WriteString("Project Title: " + title + "\n")
	if field != "" {
		sb.WriteString("Technical Field: " + field + "\n")
	}
	sb.WriteString("\nInvention Description:\n" + text + "\n\n")
	sb.WriteString(`Return JSON with this structure:
{
  "novelty_score": 0.0-1.0,
  "non_obviousness_score": 0.0-1.0,
  "utility_score": 0.0-1.0,
  "enablement_score": 0.0-1.0,
  "confidence_level": 0.0-1.0,
  "summary": "2-3 sentence executive summary of the patent potential",
  "recommendations": ["specific, actionable recommendation"],
  "key_features": ["most novel and valuable feature"],
  "risk_factors": ["risk, weakness or likely prior-art concern"]
}`)
	return sb.String()
}

// runJSON asks for strict JSON up to three times. Transient transport
// failures back off; empty, malformed or invalid content is re-prompted with
// feedback.
func (a *AnthropicAnalyzer) runJSON(ctx context.Context, stage, system, prompt string, out any, validate func() error) (int, error) {
	feedback := ""
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		fullPrompt := prompt + "\n\nRespond with only valid JSON matching the schema."
		if feedback != "" {
			fullPrompt += "\n\n" + feedback
		}

		raw, err := a.caller.Generate(ctx, system, fullPrompt)
		if err != nil {
			class := classifyTransportError(err)
			if class == failureTimeout || class == failureRateLimit || class == failureServer {
				if attempt < maxAttempts {
					a.log.Warn("llm_retry", zap.String("stage", stage), zap.Int("attempt", attempt), zap.Error(err))
					if werr := sleepCtx(ctx, a.backoff(attempt)); werr != nil {
						return attempt, fmt.Errorf("%s transport failure: %w", stage, werr)
					}
					continue
				}
			}
			return attempt, fmt.Errorf("%s transport failure: %w", stage, err)
		}

		raw = strings.TrimSpace(raw)
		if raw == "" {
			if attempt < maxAttempts {
				feedback = "Your previous response was empty. Respond with valid JSON."
				continue
			}
			return attempt, fmt.Errorf("%s failed: empty response", stage)
		}
		if err := json.Unmarshal([]byte(stripCodeFences(raw)), out); err != nil {
			if attempt < maxAttempts {
				feedback = "Your previous response was not valid JSON. Respond with only valid JSON."
				continue
			}
			return attempt, fmt.Errorf("%s failed json parse: %w", stage, err)
		}
		if err := validate(); err != nil {
			if attempt < maxAttempts {
				feedback = fmt.Sprintf("Your response failed validation: %s. Fix these issues.", err)
				continue
			}
			return attempt, fmt.Errorf("%s failed validation: %w", stage, err)
		}
		return attempt, nil
	}
	return maxAttempts, fmt.Errorf("%s failed after retries", stage)
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

func classifyTransportError(err error) llmFailureClass {
	if errors.Is(err, context.DeadlineExceeded) {
		return failureTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return failureTimeout
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			return failureRateLimit
		case apiErr.StatusCode >= 500:
			return failureServer
		case apiErr.StatusCode >= 400:
			return failureClient
		}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"):
		return failureRateLimit
	case strings.Contains(msg, "status code: 5") || strings.Contains(msg, "server error"):
		return failureServer
	case strings.Contains(msg, "status code: 4"):
		return failureClient
	default:
		return failureServer
	}
}

func backoffDelay(attempt int) time.Duration {
	return time.Duration(1<<(attempt-1)) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
