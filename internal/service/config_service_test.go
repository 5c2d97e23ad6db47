package service_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inbox-pilot/internal/apperr"
	"inbox-pilot/internal/model"
	"inbox-pilot/internal/repository/memory"
	"inbox-pilot/internal/service"
)

func TestUpdateConfigPersistsValidChanges(t *testing.T) {
	configRepo := memory.NewInMemoryConfigRepository()
	svc := service.NewConfigService(configRepo, zerolog.Nop())

	cfg := model.DefaultConfig("user-1")
	cfg.AutonomyLevel = model.AutonomySmart
	cfg.PollIntervalMinutes = 5
	cfg.Timezone = "America/New_York"

	updated, err := svc.UpdateConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, model.AutonomySmart, updated.AutonomyLevel)
	assert.Equal(t, 5, updated.PollIntervalMinutes)

	stored, err := configRepo.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", stored.Timezone)
}

func TestUpdateConfigRejectsInvalidValues(t *testing.T) {
	configRepo := memory.NewInMemoryConfigRepository()
	svc := service.NewConfigService(configRepo, zerolog.Nop())

	cases := []struct {
		name   string
		mutate func(cfg *model.UserConfig)
	}{
		{"interval too low", func(cfg *model.UserConfig) { cfg.PollIntervalMinutes = 0 }},
		{"interval too high", func(cfg *model.UserConfig) { cfg.PollIntervalMinutes = 2000 }},
		{"start hour out of range", func(cfg *model.UserConfig) { cfg.PollStartHour = 24 }},
		{"window inverted", func(cfg *model.UserConfig) { cfg.PollStartHour = 18; cfg.PollEndHour = 8 }},
		{"autonomy level unknown", func(cfg *model.UserConfig) { cfg.AutonomyLevel = 4 }},
		{"threshold above one", func(cfg *model.UserConfig) { cfg.LowConfidenceThreshold = 1.5 }},
		{"negative lookback", func(cfg *model.UserConfig) { cfg.LookbackHours = -1 }},
		{"bogus timezone", func(cfg *model.UserConfig) { cfg.Timezone = "Mars/Olympus" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := model.DefaultConfig("user-1")
			tc.mutate(cfg)

			_, err := svc.UpdateConfig(context.Background(), cfg)
			assert.True(t, apperr.IsValidationError(err))

			// Nothing is persisted on a rejected update.
			_, err = configRepo.Get(context.Background(), "user-1")
			assert.ErrorIs(t, err, apperr.ErrNotFound)
		})
	}
}
