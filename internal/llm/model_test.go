package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func TestIsFatalAPIError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("connection reset"), false},
		{"credit balance", errors.New("insufficient credit balance"), true},
		{"quota exceeded", errors.New("quota exceeded for model"), true},
		{"billing issue", errors.New("billing account inactive"), true},
		{"invalid api key", errors.New("invalid api key"), true},
		{"authentication failed", errors.New("authentication failed"), true},
		{"unauthorized", errors.New("unauthorized request"), true},
		{"401 status", errors.New("HTTP 401: not allowed"), true},
		{"403 status", errors.New("HTTP 403: forbidden"), true},
		{"wrapped error", fmt.Errorf("classify: %w", errors.New("credit balance too low")), true},
		{"rate limit not fatal", errors.New("rate limit exceeded"), false},
		{"404 not fatal", errors.New("HTTP 404: not found"), false},
		{"timeout not fatal", errors.New("context deadline exceeded"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isFatalAPIError(tt.err)
			if got != tt.fatal {
				t.Errorf("isFatalAPIError(%v) = %v, want %v", tt.err, got, tt.fatal)
			}
		})
	}
}

func TestWrapFatalError(t *testing.T) {
	t.Run("wraps fatal error", func(t *testing.T) {
		wrapped := wrapFatalError(errors.New("invalid api key provided"))
		assert.ErrorIs(t, wrapped, ErrFatalAPI)
	})

	t.Run("quota wins over 429", func(t *testing.T) {
		wrapped := wrapFatalError(errors.New("429: You exceeded your current quota"))
		assert.ErrorIs(t, wrapped, ErrFatalAPI)
		assert.NotErrorIs(t, wrapped, ErrRateLimited)
	})

	t.Run("wraps rate limit", func(t *testing.T) {
		wrapped := wrapFatalError(errors.New("HTTP 429: too many requests"))
		assert.ErrorIs(t, wrapped, ErrRateLimited)
	})

	t.Run("wraps server-side failures", func(t *testing.T) {
		for _, msg := range []string{
			"HTTP 503: Service Unavailable",
			"googleapi: Error 500: Internal error encountered",
			"529 overloaded_error: Overloaded",
			"rpc error: code = Unavailable desc = connection refused",
		} {
			wrapped := wrapFatalError(errors.New(msg))
			assert.ErrorIs(t, wrapped, ErrProviderUnavailable, msg)
			assert.NotErrorIs(t, wrapped, ErrFatalAPI, msg)
		}
	})

	t.Run("auth wins over 5xx wording", func(t *testing.T) {
		wrapped := wrapFatalError(errors.New("403 permission denied: billing account unavailable"))
		assert.ErrorIs(t, wrapped, ErrFatalAPI)
		assert.NotErrorIs(t, wrapped, ErrProviderUnavailable)
	})

	t.Run("passes through other errors", func(t *testing.T) {
		err := errors.New("network timeout")
		assert.Same(t, err, wrapFatalError(err))
	})

	t.Run("nil error", func(t *testing.T) {
		assert.NoError(t, wrapFatalError(nil))
	})
}

// fakeLLM is a langchaingo model returning canned answers.
type fakeLLM struct {
	answer   string
	err      error
	messages []llms.MessageContent
}

func (f *fakeLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.answer}}}, nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestModelClassify(t *testing.T) {
	fake := &fakeLLM{answer: "```json\n" + `{"classifications": [
		{"term": "Thomas Jefferson", "classification": "PERSON"},
		{"term": "Monticello", "classification": "PLACE"}
	]}` + "\n```"}
	m := NewModelFrom(fake, "test-model")

	labels, err := m.Classify(context.Background(), []string{"Thomas Jefferson", "Monticello", "tobacco"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Thomas Jefferson": "PERSON", "Monticello": "PLACE"}, labels)

	require.Len(t, fake.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, fake.messages[0].Role)
	assert.Equal(t, llms.TextContent{Text: "Thomas Jefferson\nMonticello\ntobacco"}, fake.messages[1].Parts[0])
}

func TestModelClassify_Errors(t *testing.T) {
	t.Run("fatal provider error", func(t *testing.T) {
		m := NewModelFrom(&fakeLLM{err: errors.New("HTTP 401: invalid api key")}, "m")
		_, err := m.Classify(context.Background(), []string{"x"})
		assert.ErrorIs(t, err, ErrFatalAPI)
	})

	t.Run("malformed answer", func(t *testing.T) {
		m := NewModelFrom(&fakeLLM{answer: "I think it is a person"}, "m")
		_, err := m.Classify(context.Background(), []string{"x"})
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("no terms skips the call", func(t *testing.T) {
		fake := &fakeLLM{err: errors.New("should not be called")}
		labels, err := NewModelFrom(fake, "m").Classify(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, labels)
		assert.Nil(t, fake.messages)
	})
}
