package service

import (
	"context"
	"strings"

	"github.com/krafity/krafity/internal/cache"
	"github.com/krafity/krafity/internal/domain"
	"github.com/krafity/krafity/internal/logger"
	"github.com/krafity/krafity/internal/metrics"
	"github.com/krafity/krafity/internal/prompts"
	"github.com/krafity/krafity/internal/provider"
)

// EnrichmentService inspects reference images for overlaid annotations
// and produces a canonical clean frame for generation. Both the
// annotation description and the cleaned frame are cached by content
// hash, so identical bytes never trigger a repeat provider call.
type EnrichmentService struct {
	provider     provider.Provider
	descriptions *cache.Cache[string]
	cleanFrames  *cache.Cache[[]byte]
	logger       *logger.Logger
}

// NewEnrichmentService creates a new enrichment service.
func NewEnrichmentService(p provider.Provider, log *logger.Logger) *EnrichmentService {
	return &EnrichmentService{
		provider: p,
		descriptions: cache.New(
			cache.WithHitHook[string](func() { metrics.CacheHits.WithLabelValues("description").Inc() }),
			cache.WithMissHook[string](func() { metrics.CacheMisses.WithLabelValues("description").Inc() }),
		),
		cleanFrames: cache.New(
			cache.WithHitHook[[]byte](func() { metrics.CacheHits.WithLabelValues("clean_frame").Inc() }),
			cache.WithMissHook[[]byte](func() { metrics.CacheMisses.WithLabelValues("clean_frame").Inc() }),
		),
		logger: log,
	}
}

func (s *EnrichmentService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// Enrich returns a clean frame plus the annotation description for a
// reference image. When the description reports no annotations, the
// input bytes pass through untouched and the cleanup call is skipped;
// the description is still returned so generation prompts can reference
// detected context.
func (s *EnrichmentService) Enrich(ctx context.Context, imageBytes []byte) ([]byte, string, error) {
	mimeType, err := sniffImage(imageBytes)
	if err != nil {
		return nil, "", domain.NewValidationError("invalid reference image: %v", err)
	}

	description, err := s.descriptions.GetOrCompute(ctx, imageBytes, func(ctx context.Context, content []byte) (string, error) {
		return s.provider.Describe(ctx, content, mimeType)
	})
	if err != nil {
		return nil, "", domain.NewCollaboratorError("generation provider", err)
	}

	if IsCleanDescription(description) {
		s.log(ctx).WithField("description_len", len(description)).Debug("Reference image classified clean, skipping cleanup")
		return imageBytes, description, nil
	}

	cleaned, err := s.cleanFrames.GetOrCompute(ctx, imageBytes, func(ctx context.Context, content []byte) ([]byte, error) {
		return s.provider.Cleanup(ctx, content, mimeType, prompts.CleanupInstruction)
	})
	if err != nil {
		return nil, "", domain.NewCollaboratorError("generation provider", err)
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldSize: len(cleaned),
	}).Debug("Reference image cleaned")

	return cleaned, description, nil
}

// IsCleanDescription classifies an annotation description. An empty
// description or one matching any deny phrase means the image carries no
// annotations and cleanup can be skipped. The classifier trades a small
// false-negative risk for a large reduction in cleanup calls.
func IsCleanDescription(description string) bool {
	trimmed := strings.TrimSpace(description)
	if trimmed == "" {
		return true
	}
	lowered := strings.ToLower(trimmed)
	for _, phrase := range prompts.CleanPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}
