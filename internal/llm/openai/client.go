package openai

import (
	"context"
	"encoding/json"
	"net"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/intake-tracker/internal/llm"
)

var _ llm.Completer = (*Client)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Temperature    float32           `json:"temperature"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete implements llm.Completer using chat/completions in JSON mode. Failures are marked
// llm.ErrRateLimited (429), llm.ErrTimeout (client or network timeouts), llm.ErrProvider (any other
// transport failure or non-2xx status) or llm.ErrMalformed (an undecodable envelope).
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", errors.Mark(errors.Wrap(err, "rate limiter wait"), llm.ErrTimeout)
		}
	}

	body := chatRequest{
		Model:          c.cfg.Model,
		Temperature:    c.cfg.Temperature,
		ResponseFormat: map[string]string{"type": "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	raw, status, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.log)
	if err != nil {
		return "", classifyTransport(err)
	}
	if status/100 != 2 {
		return "", statusError(status, raw)
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Warn("llm.openai.decode_error", zap.Error(err), zap.Int("raw_bytes", len(raw)))
		return "", errors.Mark(errors.Wrap(err, "decode openai response"), llm.ErrMalformed)
	}
	if len(cc.Choices) == 0 {
		return "", errors.Mark(errors.New("no choices in openai response"), llm.ErrMalformed)
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}

func classifyTransport(err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return errors.Mark(errors.Wrap(err, "openai request"), llm.ErrTimeout)
	}
	return errors.Mark(errors.Wrap(err, "openai request"), llm.ErrProvider)
}

func statusError(status int, raw []byte) error {
	msg := strings.TrimSpace(string(raw))
	var ae apiError
	if json.Unmarshal(raw, &ae) == nil && ae.Error.Message != "" {
		msg = ae.Error.Message
	}
	err := errors.Newf("openai status %d: %s", status, msg)
	switch {
	case status == 429:
		return errors.Mark(err, llm.ErrRateLimited)
	case status == 408 || status == 504:
		return errors.Mark(err, llm.ErrTimeout)
	}
	return errors.Mark(err, llm.ErrProvider)
}
