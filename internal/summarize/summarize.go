// Package summarize turns a transcript into a short bullet-point recap through
// an OpenAI-compatible chat-completion endpoint.
package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/snarg/scribe/internal/metrics"
)

const SystemPrompt = "You are Summarize.AI, an intelligent assistant that turns meeting transcripts into concise summaries. " +
	"Your goal is to capture the essence of the discussion in a few clear sentences or bullet points.\n\n" +
	"Analyze the transcript and write a short recap (around 3–6 bullet points) that includes: main topics discussed, " +
	"important insights or updates, key decisions or agreements (if any), and next steps or follow-up notes (only if mentioned).\n\n" +
	"Guidelines: keep it short, neutral, and easy to skim; avoid unnecessary details or greetings; " +
	"if something is unclear, summarize what’s understood instead of guessing; write in plain, natural language.\n\n" +
	"Output format: 3–6 bullet points summarizing the meeting with no title or intro."

const userPromptFormat = "Meeting language: %s\nProvide a short summary (3-5 bullet points) for this transcript:\n\n%s"

// Kind classifies why a summary could not be produced.
type Kind string

const (
	KindMissingKey      Kind = "missing_key"
	KindEmptyTranscript Kind = "empty_transcript"
	KindTransport       Kind = "transport"
	KindMalformed       Kind = "malformed"
	KindNoChoices       Kind = "no_choices"
	KindNoText          Kind = "no_text"
)

// Error is the failure half of a summary result. Its message is the
// human-readable reason shown to the caller.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string { return e.Reason }
func (e *Error) Unwrap() error { return e.Err }

// Request is one summary request. APIKey is required; callers resolve any
// process-wide default before calling.
type Request struct {
	Text     string
	Language string
	APIKey   string
}

// Options configures a Client.
type Options struct {
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	Log         zerolog.Logger
}

// Client issues a single chat-completion call per summary, without retries.
type Client struct {
	opts   Options
	client *http.Client
	log    zerolog.Logger
}

// New creates a summary client.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Client{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		log:    opts.Log,
	}
}

// Model returns the chat model used for summaries.
func (c *Client) Model() string { return c.opts.Model }

// Summarize returns either a non-empty summary and a nil error, or "" and an
// *Error carrying the reason. Preconditions are checked before any network call.
func (c *Client) Summarize(ctx context.Context, req Request) (string, error) {
	summary, err := c.summarize(ctx, req)
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			metrics.SummariesTotal.WithLabelValues(string(se.Kind)).Inc()
		}
		return "", err
	}
	metrics.SummariesTotal.WithLabelValues("ok").Inc()
	return summary, nil
}

func (c *Client) summarize(ctx context.Context, req Request) (string, error) {
	if req.APIKey == "" {
		return "", &Error{Kind: KindMissingKey, Reason: "Add an OpenAI API key to generate a summary."}
	}
	transcript := strings.TrimSpace(req.Text)
	if transcript == "" {
		return "", &Error{Kind: KindEmptyTranscript, Reason: "Transcript is empty, nothing to summarize."}
	}

	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = "auto"
	}

	cfg := openai.DefaultConfig(req.APIKey)
	cfg.BaseURL = c.opts.BaseURL
	cfg.HTTPClient = c.client
	client := openai.NewClientWithConfig(cfg)

	start := time.Now()
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.opts.Model,
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(userPromptFormat, language, transcript)},
		},
	})
	if err != nil {
		kind := classify(err)
		c.log.Error().Err(err).Str("kind", string(kind)).Msg("summary generation failed")
		if kind == KindMalformed {
			return "", &Error{Kind: kind, Reason: "OpenAI response could not be parsed.", Err: err}
		}
		return "", &Error{Kind: kind, Reason: err.Error(), Err: err}
	}

	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindNoChoices, Reason: "OpenAI response did not contain choices."}
	}
	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	if summary == "" {
		return "", &Error{Kind: KindNoText, Reason: "OpenAI response did not include text."}
	}

	c.log.Info().
		Str("model", c.opts.Model).
		Int("transcript_chars", len(transcript)).
		Int("total_tokens", resp.Usage.TotalTokens).
		Dur("took", time.Since(start)).
		Msg("summary generated")
	return summary, nil
}

// classify separates HTTP/transport failures from undecodable success bodies.
func classify(err error) Kind {
	var (
		apiErr *openai.APIError
		reqErr *openai.RequestError
		urlErr *url.Error
	)
	switch {
	case errors.As(err, &apiErr), errors.As(err, &reqErr), errors.As(err, &urlErr):
		return KindTransport
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindTransport
	}

	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr),
		errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return KindMalformed
	}
	return KindTransport
}
