package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"inbox-pilot/internal/model"
	"inbox-pilot/internal/repository"
)

type authService struct {
	userRepo   repository.UserRepository
	configRepo repository.ConfigRepository
	logger     zerolog.Logger
}

func NewAuthService(userRepo repository.UserRepository, configRepo repository.ConfigRepository, log zerolog.Logger) AuthService {
	return &authService{
		userRepo:   userRepo,
		configRepo: configRepo,
		logger:     log.With().Str("component", "auth").Logger(),
	}
}

// GetOrCreateUser upserts the user on OAuth callback. The returned bool
// reports whether the user is new, which triggers background setup.
// New users get default settings; returning users are reactivated with
// refreshed tokens.
func (s *authService) GetOrCreateUser(ctx context.Context, googleID, email, name, accessToken, refreshToken string, tokenExpiry time.Time) (*model.User, bool, error) {
	existingUser, err := s.userRepo.FindByGoogleID(ctx, googleID)
	if err != nil {
		newUser := model.NewUser(googleID, email, name, accessToken, refreshToken, tokenExpiry)
		if err := s.userRepo.Create(ctx, newUser); err != nil {
			s.logger.Error().Err(err).Msg("failed to create user")
			return nil, false, err
		}
		if err := s.configRepo.Save(ctx, model.DefaultConfig(newUser.ID)); err != nil {
			s.logger.Error().Err(err).Msg("failed to save default config")
			return nil, false, err
		}
		s.logger.Info().Str("user_id", newUser.ID).Msg("created new user")
		return newUser, true, nil
	}

	existingUser.AccessToken = accessToken
	if refreshToken != "" {
		existingUser.RefreshToken = refreshToken
	}
	if !tokenExpiry.IsZero() {
		existingUser.TokenExpiry = tokenExpiry
	}
	existingUser.Active = true

	if err := s.userRepo.Update(ctx, existingUser); err != nil {
		s.logger.Error().Err(err).Msg("failed to update user")
		return nil, false, err
	}
	s.logger.Info().Str("user_id", existingUser.ID).Msg("updated existing user")
	return existingUser, false, nil
}

func (s *authService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

// DeactivateUser stops processing for the user; their scheduler job is
// torn down by the caller.
func (s *authService) DeactivateUser(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	user.Active = false
	return s.userRepo.Update(ctx, user)
}
