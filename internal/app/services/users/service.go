// Package users manages user progression records.
package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/bloom-app/progression/internal/app/domain/user"
	"github.com/bloom-app/progression/internal/app/storage"
	"github.com/bloom-app/progression/pkg/logger"
)

// Service creates and reads user records. Account credentials and sessions
// live elsewhere; this service only owns progression state.
type Service struct {
	store storage.UserStore
	log   *logger.Logger
}

// New constructs a user service.
func New(store storage.UserStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("users")
	}
	return &Service{store: store, log: log}
}

// Create registers a user starting at zero XP, level one.
func (s *Service) Create(ctx context.Context, username string) (user.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return user.User{}, fmt.Errorf("username is required")
	}

	u, err := s.store.CreateUser(ctx, user.User{Username: username})
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", u.ID).WithField("username", u.Username).Info("user created")
	return u, nil
}

// Get returns the user record.
func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	return s.store.GetUser(ctx, id)
}
