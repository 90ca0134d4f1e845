package links

import (
	"context"
	"strings"

	"github.com/IgorGrieder/shorty/internal/infrastructure/logger"
	"go.uber.org/zap"
)

const DefaultMaxAttempts = 5

// Allocator picks the code for a new link. It only reads the store; the
// caller must insert immediately afterwards and treat ErrDuplicateCode from
// the insert as authoritative.
type Allocator struct {
	store       Store
	gen         CodeGenerator
	codeLength  int
	maxAttempts int
}

func NewAllocator(store Store, gen CodeGenerator, codeLength, maxAttempts int) *Allocator {
	if codeLength < MinCodeLength || codeLength > MaxCodeLength {
		codeLength = DefaultCodeLength
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Allocator{
		store:       store,
		gen:         gen,
		codeLength:  codeLength,
		maxAttempts: maxAttempts,
	}
}

// Allocate returns candidate when it is well-formed and free, or a freshly
// generated code when candidate is empty. Generated codes fail closed with
// ErrCodeSpaceExhausted once every attempt has collided.
func (a *Allocator) Allocate(ctx context.Context, candidate string) (string, error) {
	candidate = strings.TrimSpace(candidate)
	if candidate != "" {
		return a.claim(ctx, candidate)
	}
	return a.generate(ctx)
}

func (a *Allocator) claim(ctx context.Context, code string) (string, error) {
	if !ValidCode(code) {
		return "", ErrInvalidCode
	}
	taken, err := a.store.Exists(ctx, code)
	if err != nil {
		return "", err
	}
	if taken {
		return "", ErrCodeExists
	}
	return code, nil
}

func (a *Allocator) generate(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		code, err := a.gen.Generate(a.codeLength)
		if err != nil {
			return "", err
		}
		if IsReserved(code) {
			continue
		}
		taken, err := a.store.Exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
		codeCollisions.WithLabelValues("check").Inc()
		logger.Debug("generated code already taken",
			zap.String("code", code),
			zap.Int("attempt", attempt),
		)
	}
	return "", ErrCodeSpaceExhausted
}
