package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/vidstream/internal/apperr"
	"github.com/lalith-99/vidstream/internal/models"
)

// UserStore is the slice of the user repository the token service needs.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error
	SwapRefreshToken(ctx context.Context, id uuid.UUID, current, next string) (bool, error)
}

type Options struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Service issues, validates and rotates tokens. The user row holds the one
// live refresh token, so every login replaces the previous session.
type Service struct {
	users UserStore
	opts  Options
}

func NewService(users UserStore, opts Options) *Service {
	return &Service{users: users, opts: opts}
}

func (s *Service) AccessTTL() time.Duration  { return s.opts.AccessTTL }
func (s *Service) RefreshTTL() time.Duration { return s.opts.RefreshTTL }

func (s *Service) sign(u *models.User) (*TokenPair, error) {
	access, err := GenerateToken(Claims{
		UserID:   u.ID,
		UserName: u.UserName,
		Email:    u.Email,
		Kind:     KindAccess,
	}, s.opts.AccessSecret, s.opts.AccessTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := GenerateToken(Claims{
		UserID: u.ID,
		Kind:   KindRefresh,
	}, s.opts.RefreshSecret, s.opts.RefreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// IssueTokenPair signs a fresh pair and stores the refresh token on the
// user, overwriting whatever session was there.
func (s *Service) IssueTokenPair(ctx context.Context, u *models.User) (*TokenPair, error) {
	pair, err := s.sign(u)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to generate tokens")
	}
	if err := s.users.SetRefreshToken(ctx, u.ID, &pair.RefreshToken); err != nil {
		return nil, apperr.Wrap(err, "failed to generate tokens")
	}
	return pair, nil
}

// Authenticate resolves an access token to its user. Any failure, a
// deleted user included, is Unauthorized.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := ParseToken(token, s.opts.AccessSecret, KindAccess)
	if err != nil {
		return nil, apperr.Unauthorized("invalid access token")
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load user")
	}
	if u == nil {
		return nil, apperr.Unauthorized("invalid access token")
	}
	return u, nil
}

// Rotate trades a valid refresh token for a new pair.
//
// The presented token has to equal the stored one exactly, so a token
// that was already rotated away (or logged out) is dead even though its
// signature and expiry are still fine. The store swap is compare-and-set:
// if two requests rotate the same token concurrently, one of them loses
// and gets Unauthorized.
func (s *Service) Rotate(ctx context.Context, presented string) (*TokenPair, error) {
	if presented == "" {
		return nil, apperr.Unauthorized("unauthorized request")
	}

	claims, err := ParseToken(presented, s.opts.RefreshSecret, KindRefresh)
	if err != nil {
		return nil, apperr.Unauthorized("invalid refresh token")
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load user")
	}
	if u == nil {
		return nil, apperr.Unauthorized("invalid refresh token")
	}
	if u.RefreshToken == nil || *u.RefreshToken != presented {
		return nil, apperr.Unauthorized("refresh token is expired or used")
	}

	pair, err := s.sign(u)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to generate tokens")
	}

	swapped, err := s.users.SwapRefreshToken(ctx, u.ID, presented, pair.RefreshToken)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to rotate tokens")
	}
	if !swapped {
		return nil, apperr.Unauthorized("refresh token is expired or used")
	}
	return pair, nil
}

// Revoke clears the stored refresh token. Outstanding access tokens stay
// valid until they expire.
func (s *Service) Revoke(ctx context.Context, userID uuid.UUID) error {
	if err := s.users.SetRefreshToken(ctx, userID, nil); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}
