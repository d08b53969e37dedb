package llm

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/joseph-ayodele/intake-tracker/constants"
)

type scriptedCompleter struct {
	mu      sync.Mutex
	replies []reply
	calls   int
	users   []string
}

type reply struct {
	content string
	err     error
}

func (s *scriptedCompleter) Complete(_ context.Context, system, user string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, user)
	r := s.replies[min(s.calls, len(s.replies)-1)]
	s.calls++
	return r.content, r.err
}

type sleepRecorder struct {
	delays []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

var emailSchema = Schema{
	{Name: "client_name", Description: "Full name of the client or sender"},
	{Name: "email", Description: "Email address"},
}

func TestExtractor_Success(t *testing.T) {
	c := &scriptedCompleter{replies: []reply{{content: "```json\n" +
		`{"client_name": {"value": "Maria", "confidence": 0.9}, "email": {"value": "maria@example.gr", "confidence": 0.7}}` +
		"\n```"}}}
	ex := NewExtractor(c, zaptest.NewLogger(t))

	res, err := ex.Extract(context.Background(), Request{
		Content:      "From: Maria <maria@example.gr>",
		Schema:       emailSchema,
		DocumentType: constants.RecordTypeEmail,
		Instruction:  "This is an email message. Extract relevant client or invoice information.",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, "Maria", res.Fields["client_name"])
	assert.Equal(t, 0.7, res.FieldConfidences["email"])
	// 0.7*0.8 + 0.3*1.0
	assert.InDelta(t, 0.86, res.Confidence, 1e-9)

	require.Len(t, c.users, 1)
	assert.True(t, strings.HasPrefix(c.users[0], "You are a data extraction machine. This is an email message."))
	assert.Contains(t, c.users[0], "- client_name: Full name of the client or sender\n")
	assert.True(t, strings.HasSuffix(c.users[0], "From: Maria <maria@example.gr>\n\nJSON output:"))
}

func TestExtractor_RetriesWithBackoffThenSucceeds(t *testing.T) {
	c := &scriptedCompleter{replies: []reply{
		{err: errors.Mark(errors.New("429"), ErrRateLimited)},
		{content: "I could not find anything"},
		{content: `{"client_name": "Maria", "email": null}`},
	}}
	rec := &sleepRecorder{}
	ex := NewExtractor(c, zaptest.NewLogger(t), WithSleep(rec.sleep))

	res, err := ex.Extract(context.Background(), Request{Schema: emailSchema})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.delays)
	// bare value: 0.7*0.5 + 0.3*0.5
	assert.InDelta(t, 0.5, res.Confidence, 1e-9)
}

func TestExtractor_ExhaustedRetriesAreTyped(t *testing.T) {
	tests := []struct {
		name string
		r    reply
		kind Kind
	}{
		{"rate limit", reply{err: errors.Mark(errors.New("slow down"), ErrRateLimited)}, KindRateLimit},
		{"timeout", reply{err: errors.Mark(errors.New("deadline"), ErrTimeout)}, KindTimeout},
		{"api", reply{err: errors.Mark(errors.New("500"), ErrProvider)}, KindAPI},
		{"unmarked", reply{err: errors.New("boom")}, KindAPI},
		{"parse", reply{content: "not json at all"}, KindParse},
		{"contract", reply{content: `{"email": {"confidence": 0.9}}`}, KindParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &scriptedCompleter{replies: []reply{tt.r}}
			rec := &sleepRecorder{}
			ex := NewExtractor(c, zaptest.NewLogger(t), WithSleep(rec.sleep))

			_, err := ex.Extract(context.Background(), Request{Schema: emailSchema})
			require.Error(t, err)

			ee, ok := AsExtractionError(err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, ee.Kind)
			assert.Equal(t, 3, ee.Attempts)
			assert.Equal(t, 3, c.calls)
			assert.Len(t, rec.delays, 2)
		})
	}
}

func TestExtractor_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &scriptedCompleter{replies: []reply{{err: errors.Mark(errors.New("x"), ErrProvider)}}}
	ex := NewExtractor(c, zaptest.NewLogger(t), WithSleep(func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}))

	_, err := ex.Extract(ctx, Request{Schema: emailSchema})
	ee, ok := AsExtractionError(err)
	require.True(t, ok)
	assert.Equal(t, KindTimeout, ee.Kind)
	assert.Equal(t, 1, c.calls)
}

func TestExtractor_EmptySchema(t *testing.T) {
	_, err := NewExtractor(&scriptedCompleter{}, nil).Extract(context.Background(), Request{})
	assert.Error(t, err)
}

func TestBackoffDelay(t *testing.T) {
	assert.Equal(t, time.Second, BackoffDelay(time.Second, 1))
	assert.Equal(t, 2*time.Second, BackoffDelay(time.Second, 2))
	assert.Equal(t, 4*time.Second, BackoffDelay(time.Second, 3))
	assert.Equal(t, time.Second, BackoffDelay(time.Second, 0))
}

func TestExtractionError_Message(t *testing.T) {
	err := &ExtractionError{Kind: KindRateLimit, Attempts: 3}
	assert.Equal(t, "rate limit exceeded after 3 attempts", err.Error())
	assert.True(t, errors.Is(&ExtractionError{Kind: KindAPI, Cause: ErrProvider}, ErrProvider))
}
