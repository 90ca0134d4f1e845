package links

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/IgorGrieder/shorty/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Path segments that share the root namespace with codes and never resolve.
// Matching is exact: "Metrics" is an ordinary code.
var reservedSegments = map[string]struct{}{
	"api":     {},
	"healthz": {},
	"links":   {},
	"code":    {},
	"metrics": {},
}

type Service struct {
	store       Store
	allocator   *Allocator
	clicks      ClickRecorder
	maxAttempts int
	now         func() time.Time
}

type Options struct {
	CodeLength  int
	MaxAttempts int
	// Clicks overrides where redirects are recorded. Defaults to the store.
	Clicks ClickRecorder
}

func NewService(store Store, gen CodeGenerator, opts Options) *Service {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	clicks := opts.Clicks
	if clicks == nil {
		clicks = store
	}

	return &Service{
		store:       store,
		allocator:   NewAllocator(store, gen, opts.CodeLength, opts.MaxAttempts),
		clicks:      clicks,
		maxAttempts: opts.MaxAttempts,
		now:         time.Now,
	}
}

func (s *Service) CreateLink(ctx context.Context, in CreateLinkInput) (*Link, error) {
	target, err := validateTarget(in.Target)
	if err != nil {
		return nil, ErrInvalidTarget
	}

	candidate := strings.TrimSpace(in.Code)
	if candidate != "" {
		return s.createWithCode(ctx, candidate, target)
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		code, err := s.allocator.Allocate(ctx, "")
		if err != nil {
			return nil, err
		}

		link, err := s.store.Create(ctx, code, target, s.now().UTC())
		if errors.Is(err, ErrDuplicateCode) {
			// Lost the race between the existence check and the insert.
			codeCollisions.WithLabelValues("insert").Inc()
			logger.Warn("generated code taken at insert, retrying",
				zap.String("code", code),
				zap.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return nil, err
		}

		linksCreated.WithLabelValues("generated").Inc()
		return link, nil
	}

	return nil, ErrCodeSpaceExhausted
}

func (s *Service) createWithCode(ctx context.Context, candidate, target string) (*Link, error) {
	code, err := s.allocator.Allocate(ctx, candidate)
	if err != nil {
		return nil, err
	}

	link, err := s.store.Create(ctx, code, target, s.now().UTC())
	if errors.Is(err, ErrDuplicateCode) {
		return nil, ErrCodeExists
	}
	if err != nil {
		return nil, err
	}

	linksCreated.WithLabelValues("custom").Inc()
	return link, nil
}

func (s *Service) GetLink(ctx context.Context, code string) (*Link, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrNotFound
	}
	return s.store.Get(ctx, code)
}

func (s *Service) ListLinks(ctx context.Context) ([]Link, error) {
	return s.store.List(ctx)
}

func (s *Service) DeleteLink(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrNotFound
	}

	deleted, err := s.store.Delete(ctx, code)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

// Resolve looks up the link behind a redirect path segment. Reserved words
// and malformed codes are rejected without a storage round trip.
func (s *Service) Resolve(ctx context.Context, code string) (*Link, error) {
	if IsReserved(code) || !ValidCode(code) {
		return nil, ErrNotFound
	}
	return s.store.Get(ctx, code)
}

// RecordClick hands an accepted redirect to the configured recorder.
func (s *Service) RecordClick(ctx context.Context, code string) error {
	if strings.TrimSpace(code) == "" {
		return nil
	}
	return s.clicks.RecordClick(ctx, code, s.now().UTC())
}

// ApplyClick writes a click that happened at `at` straight to the store.
func (s *Service) ApplyClick(ctx context.Context, code string, at time.Time) error {
	if strings.TrimSpace(code) == "" {
		return ErrNotFound
	}
	return s.store.RecordClick(ctx, code, at.UTC())
}

// Ping reports whether the backing store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func IsReserved(segment string) bool {
	_, ok := reservedSegments[segment]
	return ok
}

func validateTarget(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidTarget
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return "", ErrInvalidTarget
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", ErrInvalidTarget
	}

	return raw, nil
}
