// Package auth registers marketplace users, gates sellers and transporters on
// admin approval, and issues bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"parcel-relay-go/internal/models"
	"parcel-relay-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type Service struct {
	users store.UserStore
	cost  int
}

func NewService(users store.UserStore) *Service {
	return &Service{users: users, cost: bcrypt.DefaultCost}
}

// NewServiceWithCost is NewService with a custom bcrypt cost, for tests.
func NewServiceWithCost(users store.UserStore, cost int) *Service {
	return &Service{users: users, cost: cost}
}

// Register creates a user. Buyers are approved immediately; sellers and
// transporters wait for an admin.
func (s *Service) Register(ctx context.Context, name, phone, password string, role models.Role) (*models.User, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" || phone == "" {
		return nil, fmt.Errorf("name and phone are required")
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	switch role {
	case models.RoleBuyer, models.RoleSeller, models.RoleTransporter:
	default:
		return nil, fmt.Errorf("role %q cannot self-register", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("unable to hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, store.CreateUserParams{
		Name:         name,
		Phone:        phone,
		Role:         role,
		PasswordHash: string(hash),
		Approved:     role == models.RoleBuyer,
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("User registered",
		zap.String("user_id", user.Id),
		zap.String("role", string(role)),
		zap.Bool("approved", user.Approved))
	return user, nil
}

// CreateAdmin registers an approved admin. It is only reachable from the command line.
func (s *Service) CreateAdmin(ctx context.Context, name, phone, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("unable to hash password: %w", err)
	}
	return s.users.CreateUser(ctx, store.CreateUserParams{
		Name:         name,
		Phone:        phone,
		Role:         models.RoleAdmin,
		PasswordHash: string(hash),
		Approved:     true,
	})
}

// Login checks credentials and returns a new bearer token.
func (s *Service) Login(ctx context.Context, phone, password string) (string, *models.User, error) {
	user, err := s.users.GetUserByPhone(ctx, strings.TrimSpace(phone))
	if errors.Is(err, models.ErrNotFound) {
		return "", nil, fmt.Errorf("%w: invalid phone or password", models.ErrAuth)
	}
	if err != nil {
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		zap.L().Warn("Login rejected", zap.String("user_id", user.Id))
		return "", nil, fmt.Errorf("%w: invalid phone or password", models.ErrAuth)
	}
	if !user.Approved {
		return "", nil, fmt.Errorf("%w: account awaiting approval", models.ErrAuth)
	}

	token := uuid.New().String()
	if err := s.users.StoreToken(ctx, token, user.Id); err != nil {
		return "", nil, err
	}

	zap.L().Info("User logged in", zap.String("user_id", user.Id), zap.String("role", string(user.Role)))
	return token, user, nil
}

func (s *Service) Approve(ctx context.Context, userId string) error {
	return s.users.ApproveUser(ctx, userId)
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", models.ErrAuth)
	}
	user, err := s.users.GetUserByToken(ctx, token)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown token", models.ErrAuth)
	}
	if err != nil {
		return nil, err
	}
	if !user.Approved {
		return nil, fmt.Errorf("%w: account awaiting approval", models.ErrAuth)
	}
	return user, nil
}

// DisplayName returns the user's name, or the id itself when it is unknown.
func (s *Service) DisplayName(ctx context.Context, userId string) string {
	user, err := s.users.GetUserById(ctx, userId)
	if err != nil {
		return userId
	}
	return user.Name
}
