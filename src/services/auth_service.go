package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/username/nanopos/src/database"
	"github.com/username/nanopos/src/logger"
	"github.com/username/nanopos/src/model"
	"github.com/username/nanopos/src/security"
)

const (
	minPINLength = 4
	maxPINLength = 12
)

type authServiceImpl struct {
	db     *sql.DB
	writer *database.Writer
	auth   *security.AuthService
}

func NewAuthService(db *sql.DB, writer *database.Writer, auth *security.AuthService) AuthService {
	return &authServiceImpl{db: db, writer: writer, auth: auth}
}

// SetPIN stores the bcrypt hash of pin. pin is 4 to 12 digits.
func (s *authServiceImpl) SetPIN(ctx context.Context, pin string) error {
	if len(pin) < minPINLength || len(pin) > maxPINLength {
		return fmt.Errorf("%w: must be %d to %d digits", ErrInvalidPIN, minPINLength, maxPINLength)
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: must contain digits only", ErrInvalidPIN)
		}
	}

	hash, err := s.auth.HashPIN(pin)
	if err != nil {
		return fmt.Errorf("hashing pin: %w", err)
	}
	if err := s.writer.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		return model.SetConfig(ctx, db, database.SectionSecurity, database.SettingPinHash, hash)
	}); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("Operator PIN updated")
	return nil
}

func (s *authServiceImpl) PINConfigured(ctx context.Context) (bool, error) {
	hash, ok, err := model.GetConfig(ctx, s.db, database.SettingPinHash)
	if err != nil {
		return false, err
	}
	return ok && hash != "", nil
}

// Login exchanges the operator PIN for a bearer token.
func (s *authServiceImpl) Login(ctx context.Context, pin string) (string, error) {
	hash, ok, err := model.GetConfig(ctx, s.db, database.SettingPinHash)
	if err != nil {
		return "", err
	}
	if !ok || hash == "" {
		return "", fmt.Errorf("%w: no pin configured", ErrInvalidPIN)
	}
	if err := s.auth.ComparePIN(hash, pin); err != nil {
		logger.FromContext(ctx).Warn("Operator login rejected")
		return "", ErrInvalidPIN
	}
	return s.auth.GenerateToken(security.OperatorSubject)
}

func (s *authServiceImpl) ValidateToken(token string) error {
	sub, err := s.auth.ValidateToken(token)
	if err != nil {
		return err
	}
	if sub != security.OperatorSubject {
		return fmt.Errorf("unexpected token subject %q", sub)
	}
	return nil
}
