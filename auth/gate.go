package auth

import (
	apperrors "chat-hive/errors"
	"errors"
	"fmt"
	"log/slog"

	"chat-hive/contract"
	"chat-hive/domain"

	"github.com/golang-jwt/jwt/v5"
)

// Gate admits a connection's credential and resolves it to a real identity.
// It never registers the connection; registration is the caller's next step.
type Gate struct {
	secret []byte
	users  contract.IUserRepository
	log    *slog.Logger
}

func NewGate(secret []byte, users contract.IUserRepository, log *slog.Logger) *Gate {
	return &Gate{secret: secret, users: users, log: log}
}

// Admit verifies the credential's signature and expiry, then checks that the
// embedded subject still exists. On any failure the connection must not be
// admitted.
func (g *Gate) Admit(credential string) (domain.User, error) {
	if credential == "" {
		return domain.User{}, apperrors.ErrMissingCredential
	}

	claims, err := ValidateToken(g.secret, credential)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.User{}, fmt.Errorf("%w: %v", apperrors.ErrExpiredCredential, err)
		}
		return domain.User{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidCredential, err)
	}

	if claims.UserID == "" {
		return domain.User{}, apperrors.ErrInvalidCredential
	}

	user, err := g.users.FindUserByID(claims.UserID)
	if err != nil {
		g.log.Warn("Credential subject no longer exists", "user_id", claims.UserID)
		return domain.User{}, fmt.Errorf("%w: %s", apperrors.ErrUnknownIdentity, claims.UserID)
	}

	return user, nil
}
