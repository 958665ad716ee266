package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	BackendAuto   = ""
	BackendGemini = "gemini"
	BackendVertex = "vertex"
	BackendOff    = "off"
)

// Config carries the credential and model choice explicitly; nothing is read
// from process-wide state.
type Config struct {
	Backend       string
	APIKey        string
	ProjectID     string
	Region        string
	Model         string
	RatePerMinute int
}

// New builds the configured extractor. It returns ErrDisabled when no
// credential is available so callers can fall back to positional naming.
func New(ctx context.Context, cfg Config) (Extractor, error) {
	var (
		ex  Extractor
		err error
	)
	switch strings.ToLower(cfg.Backend) {
	case BackendOff:
		return nil, ErrDisabled
	case BackendVertex:
		if cfg.ProjectID == "" {
			return nil, ErrDisabled
		}
		ex, err = NewVertexExtractor(ctx, cfg.ProjectID, cfg.Region, cfg.Model)
	case BackendGemini, BackendAuto:
		if cfg.APIKey == "" {
			return nil, ErrDisabled
		}
		ex, err = NewGeminiExtractor(ctx, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown extractor backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if cfg.RatePerMinute > 0 {
		ex = NewRateLimited(ex, cfg.RatePerMinute)
	}
	return ex, nil
}

// RateLimited throttles calls to the wrapped extractor with a token bucket.
type RateLimited struct {
	next    Extractor
	limiter *rate.Limiter
}

// NewRateLimited allows perMinute calls per minute with a burst of one.
func NewRateLimited(next Extractor, perMinute int) *RateLimited {
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

func (r *RateLimited) Extract(ctx context.Context, pdf []byte) (Fields, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Fields{}, fmt.Errorf("rate limiter: %w", err)
	}
	return r.next.Extract(ctx, pdf)
}
