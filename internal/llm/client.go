// Package llm wraps the Gemini client used for the two LLM-assisted fix
// generator operations (spec §4.G, §6): alt-text suggestion and legal
// paragraph drafting. Every output is degradable — the fix generator
// always has a deterministic template fallback, so a client failure
// never blocks a fix (spec §9).
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
	"google.golang.org/genai"

	"compliscan/internal/config"
	"compliscan/internal/logging"
	"compliscan/internal/scanerr"
)

// Client generates alt text and legal paragraph drafts via Gemini,
// capping concurrent outbound calls with a semaphore (spec §5: default 8)
// and retrying once on a 5xx before giving up.
type Client struct {
	genai *genai.Client
	model string
	sem   *semaphore.Weighted
	retry bool
}

func New(cfg config.LLMConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, scanerr.Dependencyf("llm_no_api_key", nil, "no LLM API key configured")
	}
	timer := logging.StartTimer(logging.CategoryLLM, "NewClient")
	defer timer.Stop()

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, scanerr.Dependencyf("llm_client_init_failed", err, "could not create Gemini client")
	}

	return &Client{
		genai: client,
		model: cfg.Model,
		sem:   semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		retry: cfg.RetryOn5xx,
	}, nil
}

// AltTextResult is the LLM's suggestion plus a confidence in [0,1]; the
// fix generator only marks the resulting fix auto_fixable when
// confidence >= 0.7 (spec §4.G).
type AltTextResult struct {
	Text       string
	Confidence float64
}

// GenerateAltText asks the model to describe an image in the context of
// the surrounding page, grounded in the page title and nearby text.
func (c *Client) GenerateAltText(ctx context.Context, imageURL, surroundingText, pageTitle string) (AltTextResult, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return AltTextResult{}, scanerr.CancelledErr()
	}
	defer c.sem.Release(1)

	timer := logging.StartTimer(logging.CategoryLLM, "GenerateAltText")
	defer timer.Stop()

	prompt := fmt.Sprintf(
		"Write a concise WCAG-compliant alt text (max 125 characters) for the image at %s. "+
			"Page title: %q. Surrounding text: %q. "+
			"Respond with only the alt text, no quotes or preamble.",
		imageURL, pageTitle, surroundingText,
	)

	text, err := c.generateWithRetry(ctx, prompt)
	if err != nil {
		return AltTextResult{}, err
	}
	// A model response this short is treated as low-confidence;
	// callers degrade to a guide-type fix rather than auto-apply it.
	confidence := 0.85
	if len(text) < 8 {
		confidence = 0.4
	}
	return AltTextResult{Text: text, Confidence: confidence}, nil
}

// GenerateLegalParagraph drafts a privacy-policy paragraph for a
// detected service, used when the per-service default purpose text needs
// enrichment beyond the catalog's static default_purpose field.
func (c *Client) GenerateLegalParagraph(ctx context.Context, serviceName, purposeHint string) (string, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", scanerr.CancelledErr()
	}
	defer c.sem.Release(1)

	timer := logging.StartTimer(logging.CategoryLLM, "GenerateLegalParagraph")
	defer timer.Stop()

	prompt := fmt.Sprintf(
		"Write one GDPR-compliant privacy-policy paragraph (German, formal register) describing "+
			"the use of %q for the purpose of %q. Cite Art. 6 GDPR. Plain text, no markdown.",
		serviceName, purposeHint,
	)
	return c.generateWithRetry(ctx, prompt)
}

func (c *Client) generateWithRetry(ctx context.Context, prompt string) (string, error) {
	text, err := c.generate(ctx, prompt)
	if err == nil {
		return text, nil
	}
	if !c.retry || !isRetryable(err) {
		return "", scanerr.Dependencyf("llm_generate_failed", err, "LLM generation failed")
	}
	logging.Get(logging.CategoryLLM).Warn("llm: retrying after transient failure: %v", err)
	select {
	case <-time.After(time.Second):
	case <-ctx.Done():
		return "", scanerr.CancelledErr()
	}
	text, err = c.generate(ctx, prompt)
	if err != nil {
		return "", scanerr.Dependencyf("llm_generate_failed", err, "LLM generation failed after retry")
	}
	return text, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	result, err := c.genai.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", err
	}
	return result.Text(), nil
}

// isRetryable reports whether err looks like a transient 5xx the spec
// says to retry once (spec §6: "retried once on 5xx with 1s backoff").
func isRetryable(err error) bool {
	// The genai client surfaces HTTP errors as plain errors; a substring
	// check on the formatted message is the pragmatic signal available
	// without depending on its internal error types.
	msg := err.Error()
	for _, code := range []string{"500", "502", "503", "504"} {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}
