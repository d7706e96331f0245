package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/townhall/internal/models"
	"golang.org/x/crypto/bcrypt"
)

type memoryUser struct {
	user         models.User
	passwordHash []byte
}

// MemoryProvider is an in-process Provider for development and tests.
// Emails are unique without regard to case.
type MemoryProvider struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]*memoryUser
	byEmail map[string]uuid.UUID
	cost    int
	now     func() time.Time
}

// MemoryOption configures a MemoryProvider.
type MemoryOption func(*MemoryProvider)

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) MemoryOption {
	return func(p *MemoryProvider) {
		p.cost = cost
	}
}

// NewMemoryProvider creates an empty in-memory identity provider.
func NewMemoryProvider(opts ...MemoryOption) *MemoryProvider {
	p := &MemoryProvider{
		users:   make(map[uuid.UUID]*memoryUser),
		byEmail: make(map[string]uuid.UUID),
		cost:    bcrypt.DefaultCost,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SignUp hashes the password and registers a new unconfirmed identity.
func (p *MemoryProvider) SignUp(ctx context.Context, req SignUpRequest) (*models.User, error) {
	key := strings.ToLower(strings.TrimSpace(req.Email))

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), p.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.byEmail[key]; exists {
		return nil, ErrUserAlreadyRegistered
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user ID: %w", err)
	}

	u := &memoryUser{
		user: models.User{
			ID:        id,
			Email:     req.Email,
			Metadata:  cloneMetadata(req.Metadata),
			CreatedAt: p.now().UTC(),
		},
		passwordHash: hash,
	}
	p.users[id] = u
	p.byEmail[key] = id

	log.Debug().Str("user_id", id.String()).Msg("Registered identity")

	user := u.user
	user.Metadata = cloneMetadata(u.user.Metadata)
	return &user, nil
}

// DeleteUser removes an identity.
func (p *MemoryProvider) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, exists := p.users[userID]
	if !exists {
		return ErrUserNotFound
	}

	delete(p.byEmail, strings.ToLower(strings.TrimSpace(u.user.Email)))
	delete(p.users, userID)

	log.Debug().Str("user_id", userID.String()).Msg("Deleted identity")

	return nil
}

// Len returns the number of registered identities.
func (p *MemoryProvider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.users)
}

func cloneMetadata(m models.UserMetadata) models.UserMetadata {
	if m.Department != nil {
		dept := *m.Department
		m.Department = &dept
	}
	return m
}

var _ Provider = (*MemoryProvider)(nil)
