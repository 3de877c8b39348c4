// Package captcha issues and verifies one-time arithmetic challenges that
// filter automated registrations. The answer lives in an external keyed
// store whose Take operation is atomic get-and-delete, so a challenge id
// can never be spent twice regardless of how many verifiers race on it.
package captcha

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/securechat/securechat/internal/models"
	"github.com/securechat/securechat/internal/repositories/captchas"
)

// DefaultTTL bounds how long an unanswered challenge stays valid.
const DefaultTTL = 5 * time.Minute

type Provider struct {
	repo captchas.Repository
	ttl  time.Duration
}

func NewProvider(repo captchas.Repository) *Provider {
	return &Provider{repo: repo, ttl: DefaultTTL}
}

// Challenge creates a fresh question/answer pair and stores the answer.
// The question is trivial arithmetic; the security property is the
// one-time id, not the puzzle difficulty.
func (p *Provider) Challenge(ctx context.Context) (*models.CaptchaChallenge, error) {
	a := rand.IntN(10) + 1
	b := rand.IntN(10) + 1

	id := uuid.NewString()
	answer := fmt.Sprintf("%d", a+b)

	if err := p.repo.Save(ctx, id, answer, time.Now().Add(p.ttl)); err != nil {
		return nil, fmt.Errorf("saving captcha: %w", err)
	}

	return &models.CaptchaChallenge{
		ID:       id,
		Question: fmt.Sprintf("What is %d + %d ?", a, b),
	}, nil
}

// Verify consumes the challenge and reports whether the answer matches.
// The id is invalidated on the first attempt, right or wrong; replays and
// unknown/expired ids simply fail.
func (p *Provider) Verify(ctx context.Context, id, answer string) bool {
	if id == "" || answer == "" {
		return false
	}
	// store trouble and unknown/expired ids both count as failure
	expected, err := p.repo.Take(ctx, id)
	if err != nil {
		return false
	}
	return expected == strings.TrimSpace(answer)
}
