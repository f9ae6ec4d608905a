package question

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// SetStore is the persistence seam, implemented by the pgx repository.
type SetStore interface {
	GetSet(ctx context.Context, setID string) (*Set, error)
	ListSets(ctx context.Context, teacherID string) ([]Set, error)
	SaveSet(ctx context.Context, set *Set) error
	DeleteSet(ctx context.Context, setID, teacherID string) error
}

// Generator produces questions on demand when no stored set is requested.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) ([]Question, error)
}

// GenerateRequest describes the set to produce.
type GenerateRequest struct {
	Topic      string
	Grade      string
	Difficulty string
	Count      int
}

// Service is the question set gateway: stored sets come from the database
// through the cache, generated sets come from the AI generator with a
// built-in sample fallback. A load either returns a complete set or an
// error, never a partial one.
type Service struct {
	store  SetStore
	cache  SetCache
	ai     Generator
	logger zerolog.Logger
}

func NewService(store SetStore, cache SetCache, ai Generator, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		ai:     ai,
		logger: logger.With().Str("component", "question_service").Logger(),
	}
}

// Load implements the arena's question source. A set ID wins over a
// topic; with neither, the built-in sample set is served so a host can
// always run a demo match.
func (s *Service) Load(ctx context.Context, setID, topic string, count int) ([]Question, error) {
	if setID != "" {
		set, err := s.FetchSet(ctx, setID)
		if err != nil {
			return nil, err
		}
		return trimCount(set.Questions(), count), nil
	}
	if topic != "" {
		return s.GenerateQuestions(ctx, GenerateRequest{Topic: topic, Count: count})
	}
	return trimCount(SampleQuestions(), count), nil
}

// FetchSet returns a stored exam set, cache first.
func (s *Service) FetchSet(ctx context.Context, setID string) (*Set, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, setID); err == nil && cached != nil {
			return cached, nil
		}
	}
	set, err := s.store.GetSet(ctx, setID)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, fmt.Errorf("exam set %s not found", setID)
	}
	if s.cache != nil {
		if err := s.cache.Put(ctx, *set); err != nil {
			s.logger.Warn().Err(err).Str("set_id", setID).Msg("failed to cache exam set")
		}
	}
	return set, nil
}

// GenerateQuestions asks the AI generator for a fresh set and falls back
// to the sample bank when generation is unavailable or fails.
func (s *Service) GenerateQuestions(ctx context.Context, req GenerateRequest) ([]Question, error) {
	if req.Count <= 0 {
		req.Count = 10
	}
	if s.ai != nil {
		qs, err := s.ai.Generate(ctx, req)
		if err == nil && len(qs) > 0 {
			return trimCount(qs, req.Count), nil
		}
		if err != nil {
			s.logger.Warn().Err(err).Str("topic", req.Topic).Msg("generation failed, using sample set")
		}
	}
	sample := SampleQuestions()
	if len(sample) == 0 {
		return nil, fmt.Errorf("no questions available for topic %q", req.Topic)
	}
	return trimCount(sample, req.Count), nil
}

// ListSets returns a teacher's saved exam sets.
func (s *Service) ListSets(ctx context.Context, teacherID string) ([]Set, error) {
	return s.store.ListSets(ctx, teacherID)
}

// SaveSet persists a set and drops any stale cache entry.
func (s *Service) SaveSet(ctx context.Context, set *Set) error {
	if err := s.store.SaveSet(ctx, set); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, set.ID); err != nil {
			s.logger.Warn().Err(err).Str("set_id", set.ID).Msg("failed to invalidate set cache")
		}
	}
	return nil
}

// DeleteSet removes a teacher's set.
func (s *Service) DeleteSet(ctx context.Context, setID, teacherID string) error {
	if err := s.store.DeleteSet(ctx, setID, teacherID); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, setID); err != nil {
			s.logger.Warn().Err(err).Str("set_id", setID).Msg("failed to invalidate set cache")
		}
	}
	return nil
}

func trimCount(qs []Question, count int) []Question {
	if count > 0 && len(qs) > count {
		return qs[:count]
	}
	return qs
}
