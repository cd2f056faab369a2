package user

import (
	"context"
	"errors"

	"github.com/delordemm1/go-auth-sessions/internal/apperr"
)

// CurrentAccount returns the profile of the authenticated user.
func (s *service) CurrentAccount(ctx context.Context, userID, sessionID string) (*CurrentAccount, error) {
	p, err := s.repos(s.conn).FindProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Error("failed to load profile", "user_id", userID, "err", err)
		}
		return nil, apperr.FromStore(err)
	}
	return &CurrentAccount{Profile: *p, SessionID: sessionID}, nil
}
