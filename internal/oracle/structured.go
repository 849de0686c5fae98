package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/eppie/foresight/internal/model"
)

// Client wraps a Provider with a structured-output contract. Every
// query states the JSON shape it expects; the client retries with a
// self-correcting prompt until the reply parses and passes the
// caller's checks, or attempts run out. It is the sole channel through
// which the rest of the pipeline talks to the oracle — no other
// component parses oracle text directly.
type Client struct {
	provider Provider
	retries  int
	delay    time.Duration
	logger   *slog.Logger
}

// Check validates a decoded reply beyond bare JSON syntax (required
// keys, cardinality constraints). A non-nil error counts as a failed
// attempt and its message is fed back to the oracle.
type Check func() error

// NewClient creates a structured client around the given provider.
func NewClient(provider Provider, config model.OracleConfig, logger *slog.Logger) *Client {
	retries := config.Retries
	if retries <= 0 {
		retries = 3
	}
	delay := config.RetryDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		provider: provider,
		retries:  retries,
		delay:    delay,
		logger:   logger,
	}
}

// QueryObject asks the oracle for a JSON object and decodes it into
// out, which must be a pointer to a struct or map.
func (c *Client) QueryObject(ctx context.Context, op, system, user string, out any, checks ...Check) error {
	return c.query(ctx, op, system, user, out, false, checks)
}

// QueryArray asks the oracle for a JSON array and decodes it into out,
// which must be a pointer to a slice.
func (c *Client) QueryArray(ctx context.Context, op, system, user string, out any, checks ...Check) error {
	return c.query(ctx, op, system, user, out, true, checks)
}

// QueryText asks the oracle for free-form text. Only empty replies are
// retried; the caller owns any further interpretation.
func (c *Client) QueryText(ctx context.Context, op, system, user string) (string, error) {
	for attempt := 1; attempt <= c.retries; attempt++ {
		content, err := c.provider.Chat(ctx, ChatRequest{System: system, User: user})
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			c.logger.Warn("oracle call failed", "op", op, "attempt", attempt, "error", err)
			if err := c.wait(ctx); err != nil {
				return "", err
			}
			continue
		}
		if content != "" {
			return content, nil
		}
		c.logger.Warn("oracle returned empty content", "op", op, "attempt", attempt)
		if err := c.wait(ctx); err != nil {
			return "", err
		}
	}
	return "", &ContractError{Op: op, Reason: fmt.Sprintf("empty reply after %d attempts", c.retries)}
}

func (c *Client) query(ctx context.Context, op, system, user string, out any, wantArray bool, checks []Check) error {
	var last string
	prompt := user

	for attempt := 1; attempt <= c.retries; attempt++ {
		// Native JSON mode is object-shaped on some backends; array
		// replies rely on the repair loop alone.
		content, err := c.provider.Chat(ctx, ChatRequest{System: system, User: prompt, JSON: !wantArray})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("oracle call failed", "op", op, "attempt", attempt, "error", err)
			if err := c.wait(ctx); err != nil {
				return err
			}
			continue
		}

		if content == "" {
			c.logger.Warn("oracle returned empty content", "op", op, "attempt", attempt)
			if err := c.wait(ctx); err != nil {
				return err
			}
			continue
		}
		last = content

		reason := c.decode(content, out, wantArray, checks)
		if reason == "" {
			return nil
		}

		c.logger.Warn("oracle reply violated contract", "op", op, "attempt", attempt, "reason", reason)
		prompt = repairPrompt(user, content, reason)
		if err := c.wait(ctx); err != nil {
			return err
		}
	}

	return &ContractError{
		Op:         op,
		Reason:     fmt.Sprintf("no conforming reply after %d attempts", c.retries),
		LastOutput: last,
	}
}

// decode parses and validates one reply; it returns an empty string on
// success and otherwise the reason to feed back to the oracle.
// out is zeroed first: json.Unmarshal leaves absent fields untouched,
// and a field surviving from an earlier invalid attempt must not leak
// into (or fail checks against) a repaired reply.
func (c *Client) decode(content string, out any, wantArray bool, checks []Check) string {
	raw, ok := boundJSON(content, wantArray)
	if !ok {
		if wantArray {
			return "reply does not contain a JSON array"
		}
		return "reply does not contain a JSON object"
	}

	if v := reflect.ValueOf(out); v.Kind() == reflect.Pointer && !v.IsNil() {
		v.Elem().Set(reflect.Zero(v.Elem().Type()))
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Sprintf("invalid JSON: %v", err)
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err.Error()
		}
	}
	return ""
}

// wait sleeps between attempts, bailing out if the context is done.
func (c *Client) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.delay):
		return nil
	}
}

// boundJSON trims a reply down to its outermost JSON value, tolerating
// prose or reasoning preambles around it.
func boundJSON(s string, wantArray bool) (string, bool) {
	opening, closing := byte('{'), byte('}')
	if wantArray {
		opening, closing = byte('['), byte(']')
	}
	start := strings.IndexByte(s, opening)
	end := strings.LastIndexByte(s, closing)
	if start == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// repairPrompt rewrites the user prompt to include the invalid reply
// and an explicit correction instruction.
func repairPrompt(user, content, reason string) string {
	return fmt.Sprintf(
		"Your previous reply was not acceptable: %s. Return ONLY valid JSON in the requested shape, with no prose.\n\nPrevious reply:\n%s\n\nOriginal request:\n%s",
		reason, content, user,
	)
}
