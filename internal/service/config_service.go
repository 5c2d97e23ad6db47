package service

import (
	"context"

	"github.com/rs/zerolog"

	"inbox-pilot/internal/model"
	"inbox-pilot/internal/repository"
)

type configService struct {
	configRepo repository.ConfigRepository
	logger     zerolog.Logger
}

func NewConfigService(configRepo repository.ConfigRepository, log zerolog.Logger) ConfigService {
	return &configService{
		configRepo: configRepo,
		logger:     log.With().Str("component", "config").Logger(),
	}
}

func (s *configService) GetConfig(ctx context.Context, userID string) (*model.UserConfig, error) {
	return s.configRepo.Get(ctx, userID)
}

// UpdateConfig validates and persists new settings. Invalid values are
// rejected outright, never clamped.
func (s *configService) UpdateConfig(ctx context.Context, cfg *model.UserConfig) (*model.UserConfig, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := s.configRepo.Save(ctx, cfg); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", cfg.UserID).Int("interval", cfg.PollIntervalMinutes).Int("autonomy", cfg.AutonomyLevel).Msg("config updated")
	return s.configRepo.Get(ctx, cfg.UserID)
}
