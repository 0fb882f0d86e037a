package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"dugout/internal/model"
	"dugout/internal/repository"
)

// CodeAllocator issues short numeric join codes. Each attempt draws a
// uniform fixed-width candidate and claims it through the repository's
// transactional check-then-insert, so two concurrent allocators can
// never both be issued the same code. Attempts are sequential: parallel
// probing of the same random space would burn transactions on duplicate
// candidates for no benefit.
type CodeAllocator struct {
	codes       repository.JoinCodeRepo
	digits      int
	maxAttempts int
}

// NewCodeAllocator creates an allocator drawing codes of the given
// width. digits=6 keeps codes easy to read out or type by hand while
// leaving the draw space large against realistic allocation rates.
func NewCodeAllocator(codes repository.JoinCodeRepo, digits, maxAttempts int) *CodeAllocator {
	if digits <= 0 {
		digits = 6
	}
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &CodeAllocator{
		codes:       codes,
		digits:      digits,
		maxAttempts: maxAttempts,
	}
}

// Allocate issues a code bound to the session. After maxAttempts
// consecutive collisions it fails with ErrCodeExhausted; callers should
// treat that as retryable, not fatal.
func (a *CodeAllocator) Allocate(ctx context.Context, sessionID, ownerID string, expiresAt time.Time) (string, error) {
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		candidate, err := a.draw()
		if err != nil {
			return "", fmt.Errorf("draw code candidate: %w", err)
		}

		doc := &model.JoinCode{
			Code:      candidate,
			SessionID: sessionID,
			OwnerID:   ownerID,
			CreatedAt: time.Now(),
			ExpiresAt: expiresAt,
		}
		err = a.codes.CreateUnique(ctx, doc)
		if err == nil {
			return candidate, nil
		}
		if errors.Is(err, repository.ErrCodeTaken) {
			continue
		}
		return "", fmt.Errorf("create join code: %w", err)
	}
	return "", ErrCodeExhausted
}

// draw returns a uniform zero-padded numeric string of a.digits digits.
func (a *CodeAllocator) draw() (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(a.digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", a.digits, n), nil
}
