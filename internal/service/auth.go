package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dexfolio/internal/database"
	"dexfolio/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AuthService owns user accounts and bearer sessions.
type AuthService struct {
	mu     sync.RWMutex
	users  []*models.User
	byName map[string]*models.User
	byID   map[string]*models.User

	store    database.Collection[models.User]
	sessions SessionStore
	hasher   PasswordHasher
	phrase   PhraseGenerator
	log      *logrus.Logger
}

func NewAuthService(store database.Collection[models.User], sessions SessionStore, hasher PasswordHasher, log *logrus.Logger) *AuthService {
	return &AuthService{
		byName:   map[string]*models.User{},
		byID:     map[string]*models.User{},
		store:    store,
		sessions: sessions,
		hasher:   hasher,
		phrase:   RandomPhrase,
		log:      log,
	}
}

// Load replaces the in-memory users with the stored collection.
func (s *AuthService) Load(ctx context.Context) error {
	users, err := s.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = s.users[:0]
	s.byName = make(map[string]*models.User, len(users))
	s.byID = make(map[string]*models.User, len(users))
	for i := range users {
		u := users[i]
		s.users = append(s.users, &u)
		s.byName[u.Username] = &u
		s.byID[u.ID] = &u
	}
	s.log.Infof("loaded %d users", len(users))
	return nil
}

func (s *AuthService) Register(ctx context.Context, username, password string) (models.AuthPayload, error) {
	s.mu.Lock()
	if _, ok := s.byName[username]; ok {
		s.mu.Unlock()
		return models.AuthPayload{}, ErrAlreadyExists
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.mu.Unlock()
		return models.AuthPayload{}, fmt.Errorf("hash password: %w", err)
	}
	phrase, err := s.phrase()
	if err != nil {
		s.mu.Unlock()
		return models.AuthPayload{}, err
	}
	u := &models.User{
		ID:             uuid.NewString(),
		Username:       username,
		PasswordHash:   hash,
		RecoveryPhrase: phrase,
		CreatedAt:      time.Now().UTC(),
	}
	s.users = append(s.users, u)
	s.byName[u.Username] = u
	s.byID[u.ID] = u
	s.persistLocked(ctx)
	public := u.Public()
	s.mu.Unlock()

	s.log.Infof("registered user %s", public.ID)
	return s.issue(public)
}

// Login answers ErrInvalidCredentials for unknown users and wrong passwords
// alike.
func (s *AuthService) Login(ctx context.Context, username, password string) (models.AuthPayload, error) {
	s.mu.RLock()
	u, ok := s.byName[username]
	var public models.PublicUser
	valid := ok && s.hasher.Compare(u.PasswordHash, password)
	if valid {
		public = u.Public()
	}
	s.mu.RUnlock()

	if !valid {
		return models.AuthPayload{}, ErrInvalidCredentials
	}
	return s.issue(public)
}

// RecoverPassword replaces the password when phrase matches the stored one
// exactly.
func (s *AuthService) RecoverPassword(ctx context.Context, username, phrase, newPassword string) (models.AuthPayload, error) {
	s.mu.Lock()
	u, ok := s.byName[username]
	if !ok {
		s.mu.Unlock()
		return models.AuthPayload{}, ErrNotFound
	}
	if u.RecoveryPhrase != phrase {
		s.mu.Unlock()
		return models.AuthPayload{}, ErrInvalidRecoveryPhrase
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		s.mu.Unlock()
		return models.AuthPayload{}, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	s.persistLocked(ctx)
	public := u.Public()
	s.mu.Unlock()

	s.log.Infof("password recovered for user %s", public.ID)
	return s.issue(public)
}

func (s *AuthService) GetUserFromToken(token string) (models.PublicUser, bool) {
	if token == "" {
		return models.PublicUser{}, false
	}
	userID, ok := s.sessions.Lookup(token)
	if !ok {
		return models.PublicUser{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[userID]
	if !ok {
		return models.PublicUser{}, false
	}
	return u.Public(), true
}

func (s *AuthService) Logout(token string) {
	s.sessions.Delete(token)
}

func (s *AuthService) issue(user models.PublicUser) (models.AuthPayload, error) {
	token, err := randomHex(32)
	if err != nil {
		return models.AuthPayload{}, fmt.Errorf("generate token: %w", err)
	}
	s.sessions.Create(token, user.ID)
	return models.AuthPayload{Token: token, User: user}, nil
}

// persistLocked writes the whole user collection. Failures are logged and the
// in-memory state stays authoritative. Caller holds s.mu.
func (s *AuthService) persistLocked(ctx context.Context) {
	snapshot := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		snapshot = append(snapshot, *u)
	}
	if err := s.store.ReplaceAll(ctx, snapshot); err != nil {
		s.log.Errorf("error saving users: %v", err)
	}
}
