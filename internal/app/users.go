package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"mediavault/internal/model"
	"mediavault/internal/mv"
)

// MinPasswordLength is the shortest password accepted for a user.
const MinPasswordLength = 8

// ErrBadCredentials reports an unknown user or a wrong password. The two are
// not distinguished.
var ErrBadCredentials = errors.New("bad credentials")

// AddUser provisions a user with a bcrypt hash of password.
func (a *MVApp) AddUser(ctx context.Context, name, password string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, a.track(fmt.Errorf("empty user name: %w", mv.ErrInvalidInput))
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, a.track(err)
	}

	user, err := a.catalog.CreateUser(ctx, name, hash, time.Now().UTC())
	if err != nil {
		return nil, a.track(fmt.Errorf("creating user %q: %w", name, err))
	}

	a.logger.Info("user created", "id", user.ID, "name", user.Name)
	return user, nil
}

// ChangePassword replaces the credential of the named user.
func (a *MVApp) ChangePassword(ctx context.Context, name, password string) error {
	user, err := a.catalog.FindUserByName(ctx, name)
	if err != nil {
		return a.track(fmt.Errorf("finding user: %w", err))
	}
	if user == nil {
		return a.track(fmt.Errorf("user %q: %w", name, mv.ErrNotFound))
	}

	hash, err := hashPassword(password)
	if err != nil {
		return a.track(err)
	}
	if err := a.catalog.UpdateUserCredential(ctx, user.ID, hash); err != nil {
		return a.track(fmt.Errorf("updating credential: %w", err))
	}

	a.logger.Info("user credential changed", "id", user.ID)
	return nil
}

// Authenticate verifies password for the named user and makes them the acting
// user for the rest of this app's operations.
func (a *MVApp) Authenticate(ctx context.Context, name, password string) (*model.User, error) {
	user, err := a.catalog.FindUserByName(ctx, name)
	if err != nil {
		return nil, a.track(fmt.Errorf("finding user: %w", err))
	}
	if user == nil {
		// Spend the same time as a real comparison.
		bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return nil, a.track(fmt.Errorf("user %q: %w", name, ErrBadCredentials))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.CredentialHash), []byte(password)); err != nil {
		a.logger.Warn("authentication failed", "user", name)
		return nil, a.track(fmt.Errorf("user %q: %w", name, ErrBadCredentials))
	}

	a.user = user
	a.logger.Debug("authenticated", "user", user.Name, "id", user.ID)
	return user, nil
}

// dummyHash is compared against when the user does not exist.
var dummyHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("mediavault-dummy"), bcrypt.DefaultCost)
	return hash
})

func hashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", fmt.Errorf("password shorter than %d characters: %w", MinPasswordLength, mv.ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}
