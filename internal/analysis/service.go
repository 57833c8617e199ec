package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// AnalysisService is the ingest surface for analyzer output. Records are
// validated before they touch the store; a malformed analysis is rejected
// whole rather than partially persisted.
type AnalysisService interface {
	IngestAudio(ctx context.Context, a *AudioAnalysis) (*AudioAnalysis, error)
	IngestVideo(ctx context.Context, v *VideoAnalysis) (*VideoAnalysis, error)
	GetAudio(ctx context.Context, id string) (*AudioAnalysis, error)
	GetVideo(ctx context.Context, id string) (*VideoAnalysis, error)
	GetVideos(ctx context.Context, ids []string) (map[string]*VideoAnalysis, error)
	ListAudio(ctx context.Context) ([]*AudioAnalysis, error)
	ListVideos(ctx context.Context) ([]*VideoAnalysis, error)
	Counts(ctx context.Context) (audio int, video int, err error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) IngestAudio(ctx context.Context, a *AudioAnalysis) (*AudioAnalysis, error) {
	if a != nil && a.ID == "" {
		a.ID = NewID()
	}
	if err := ValidateAudio(a); err != nil {
		return nil, fmt.Errorf("audio analysis rejected: %w", err)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	if err := s.repo.SaveAudio(ctx, a); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("audio analysis ingested",
			"analysis_id", a.ID, "duration", a.Duration, "beats", len(a.Beats), "segments", len(a.Segments))
	}
	return a, nil
}

func (s *Service) IngestVideo(ctx context.Context, v *VideoAnalysis) (*VideoAnalysis, error) {
	if v != nil && v.ID == "" {
		v.ID = NewID()
	}
	if v != nil {
		for i := range v.Scenes {
			if v.Scenes[i].ID == "" {
				v.Scenes[i].ID = fmt.Sprintf("%s-s%d", v.ID, i+1)
			}
			v.Scenes[i].VideoID = v.ID
			v.Scenes[i].Duration = v.Scenes[i].EndTime - v.Scenes[i].StartTime
		}
	}
	if err := ValidateVideo(v); err != nil {
		return nil, fmt.Errorf("video analysis rejected: %w", err)
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}

	if err := s.repo.SaveVideo(ctx, v); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("video analysis ingested",
			"analysis_id", v.ID, "duration", v.Duration, "scenes", len(v.Scenes))
	}
	return v, nil
}

func (s *Service) GetAudio(ctx context.Context, id string) (*AudioAnalysis, error) {
	return s.repo.GetAudio(ctx, id)
}

func (s *Service) GetVideo(ctx context.Context, id string) (*VideoAnalysis, error) {
	return s.repo.GetVideo(ctx, id)
}

func (s *Service) GetVideos(ctx context.Context, ids []string) (map[string]*VideoAnalysis, error) {
	return s.repo.GetVideos(ctx, ids)
}

func (s *Service) ListAudio(ctx context.Context) ([]*AudioAnalysis, error) {
	return s.repo.ListAudio(ctx)
}

func (s *Service) ListVideos(ctx context.Context) ([]*VideoAnalysis, error) {
	return s.repo.ListVideos(ctx)
}

func (s *Service) Counts(ctx context.Context) (int, int, error) {
	return s.repo.CountAnalyses(ctx)
}
