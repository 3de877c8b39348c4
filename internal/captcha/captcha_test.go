package captcha

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securechat/securechat/internal/repositories/captchas"
)

// answerFor recomputes the expected answer from the question text.
func answerFor(t *testing.T, question string) string {
	t.Helper()
	fields := strings.Fields(question) // "What is A + B ?"
	a, err := strconv.Atoi(fields[2])
	require.NoError(t, err)
	b, err := strconv.Atoi(fields[4])
	require.NoError(t, err)
	return strconv.Itoa(a + b)
}

func TestProvider_CorrectAnswerPasses(t *testing.T) {
	p := NewProvider(captchas.NewMemoryRepository())
	ctx := context.Background()

	ch, err := p.Challenge(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, ch.ID)

	assert.True(t, p.Verify(ctx, ch.ID, answerFor(t, ch.Question)))
}

func TestProvider_WrongAnswerFailsAndBurnsChallenge(t *testing.T) {
	p := NewProvider(captchas.NewMemoryRepository())
	ctx := context.Background()

	ch, err := p.Challenge(ctx)
	require.NoError(t, err)

	assert.False(t, p.Verify(ctx, ch.ID, "999"))
	// the id is spent even though the answer was wrong
	assert.False(t, p.Verify(ctx, ch.ID, answerFor(t, ch.Question)))
}

func TestProvider_ReplayAlwaysFails(t *testing.T) {
	p := NewProvider(captchas.NewMemoryRepository())
	ctx := context.Background()

	ch, err := p.Challenge(ctx)
	require.NoError(t, err)
	answer := answerFor(t, ch.Question)

	assert.True(t, p.Verify(ctx, ch.ID, answer))
	assert.False(t, p.Verify(ctx, ch.ID, answer))
}

func TestProvider_UnknownAndEmptyInputs(t *testing.T) {
	p := NewProvider(captchas.NewMemoryRepository())
	ctx := context.Background()

	assert.False(t, p.Verify(ctx, "no-such-id", "5"))
	assert.False(t, p.Verify(ctx, "", "5"))
	assert.False(t, p.Verify(ctx, "id", ""))
}

func TestProvider_ConcurrentVerifySpendsOnce(t *testing.T) {
	p := NewProvider(captchas.NewMemoryRepository())
	ctx := context.Background()

	ch, err := p.Challenge(ctx)
	require.NoError(t, err)
	answer := answerFor(t, ch.Question)

	const n = 16
	results := make([]bool, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.Verify(ctx, ch.ID, answer)
		}(i)
	}
	wg.Wait()

	passed := 0
	for _, ok := range results {
		if ok {
			passed++
		}
	}
	assert.Equal(t, 1, passed, "exactly one concurrent verifier may succeed")
}
