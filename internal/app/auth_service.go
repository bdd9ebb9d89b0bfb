package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"taskhub/internal/model"
	"taskhub/internal/pkg/jwtutil"
	"taskhub/internal/repository"
)

// Password hashing cost. Slow enough to resist brute force, fast enough for
// a login path.
const bcryptCost = 8

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidEmail      = errors.New("email is invalid")
	ErrInvalidPassword   = errors.New("password must be at least 7 characters and must not contain \"password\"")
	ErrInvalidAge        = errors.New("age must be a non-negative number")
	ErrEmailExists       = errors.New("email already in use")
	ErrInvalidCredential = errors.New("unable to login")
	ErrUnknownField      = errors.New("invalid updates")
	ErrUnauthenticated   = errors.New("please authenticate")
)

// profileFields is the allow-list for partial profile updates. Any key
// outside this set rejects the whole update.
var profileFields = map[string]bool{
	"name":     true,
	"email":    true,
	"password": true,
	"age":      true,
}

// TokenCache is an optional read-through cache for the token -> user id
// resolution. Cache errors degrade to the database path, never to a denied
// or granted request.
type TokenCache interface {
	Get(ctx context.Context, token string) (uint, bool, error)
	Set(ctx context.Context, token string, userID uint) error
	Delete(ctx context.Context, tokens ...string) error
}

// Notifier dispatches account lifecycle emails. Implementations must be
// cheap to call inline; failures are logged and swallowed.
type Notifier interface {
	SendWelcome(ctx context.Context, to, name string) error
	SendCancellation(ctx context.Context, to, name string) error
}

type AuthService struct {
	userRepo      *repository.UserRepository
	sessionRepo   *repository.SessionRepository
	tokenCache    TokenCache
	notifier      Notifier
	jwtSecret     string
	jwtExpiration time.Duration
	validate      *validator.Validate
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Age      int
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResult struct {
	Token string
	User  *model.User
}

func NewAuthService(
	userRepo *repository.UserRepository,
	sessionRepo *repository.SessionRepository,
	tokenCache TokenCache,
	notifier Notifier,
	jwtSecret string,
	jwtExpiration time.Duration,
) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		sessionRepo:   sessionRepo,
		tokenCache:    tokenCache,
		notifier:      notifier,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		validate:      validator.New(),
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)

	if name == "" {
		return nil, ErrInvalidInput
	}
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, ErrInvalidEmail
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}
	if input.Age < 0 {
		return nil, ErrInvalidAge
	}

	existing, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Age:          input.Age,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.SendWelcome(ctx, user.Email, user.Name); err != nil {
			log.Printf("send welcome email to %s failed: %v", user.Email, err)
		}
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Login verifies credentials and issues a fresh token. A missing user and a
// wrong password produce the same error so the response never reveals which
// check failed.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredential
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredential
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Authenticate resolves a bearer token to its user. The token must carry a
// valid signature AND still exist as a session row, so a logged-out token is
// rejected even though its signature stays valid.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	claims, err := jwtutil.ParseToken(s.jwtSecret, token)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	active := false
	if s.tokenCache != nil {
		cachedID, hit, err := s.tokenCache.Get(ctx, token)
		if err != nil {
			log.Printf("token cache get failed: %v", err)
		} else if hit && cachedID == claims.UserID {
			active = true
		}
	}
	if !active {
		exists, err := s.sessionRepo.Exists(claims.UserID, token)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrUnauthenticated
		}
		if s.tokenCache != nil {
			if err := s.tokenCache.Set(ctx, token, claims.UserID); err != nil {
				log.Printf("token cache set failed: %v", err)
			}
		}
	}

	user, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// Logout revokes exactly the presented token; other sessions stay active.
func (s *AuthService) Logout(ctx context.Context, user *model.User, token string) error {
	if err := s.sessionRepo.DeleteByUserAndToken(user.ID, token); err != nil {
		return err
	}
	s.dropCachedTokens(ctx, token)
	return nil
}

// LogoutAll revokes every session the user has.
func (s *AuthService) LogoutAll(ctx context.Context, user *model.User) error {
	tokens, err := s.sessionRepo.ListTokensByUser(user.ID)
	if err != nil {
		return err
	}
	if err := s.sessionRepo.DeleteAllByUser(user.ID); err != nil {
		return err
	}
	s.dropCachedTokens(ctx, tokens...)
	return nil
}

// UpdateProfile applies a partial update. Every key must be in the
// allow-list and every value must pass validation before anything is
// written; an update with one bad key or value mutates nothing.
func (s *AuthService) UpdateProfile(ctx context.Context, user *model.User, updates map[string]interface{}) (*model.User, error) {
	if len(updates) == 0 {
		return nil, ErrInvalidInput
	}
	for key := range updates {
		if !profileFields[key] {
			return nil, ErrUnknownField
		}
	}

	if raw, ok := updates["name"]; ok {
		name, ok := raw.(string)
		if !ok || strings.TrimSpace(name) == "" {
			return nil, ErrInvalidInput
		}
		user.Name = strings.TrimSpace(name)
	}

	if raw, ok := updates["email"]; ok {
		value, ok := raw.(string)
		if !ok {
			return nil, ErrInvalidEmail
		}
		email := normalizeEmail(value)
		if err := s.validate.Var(email, "required,email"); err != nil {
			return nil, ErrInvalidEmail
		}
		if email != user.Email {
			existing, err := s.userRepo.GetByEmail(email)
			if err != nil {
				return nil, err
			}
			if existing != nil && existing.ID != user.ID {
				return nil, ErrEmailExists
			}
		}
		user.Email = email
	}

	if raw, ok := updates["password"]; ok {
		password, ok := raw.(string)
		if !ok {
			return nil, ErrInvalidPassword
		}
		if err := validatePassword(password); err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password failed: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if raw, ok := updates["age"]; ok {
		age, err := intFromJSON(raw)
		if err != nil || age < 0 {
			return nil, ErrInvalidAge
		}
		user.Age = age
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteAccount removes the user, the user's tasks and every active
// session, then fires the cancellation email.
func (s *AuthService) DeleteAccount(ctx context.Context, user *model.User) error {
	tokens, err := s.sessionRepo.ListTokensByUser(user.ID)
	if err != nil {
		return err
	}
	if err := s.userRepo.Delete(user); err != nil {
		return err
	}
	s.dropCachedTokens(ctx, tokens...)

	if s.notifier != nil {
		if err := s.notifier.SendCancellation(ctx, user.Email, user.Name); err != nil {
			log.Printf("send cancellation email to %s failed: %v", user.Email, err)
		}
	}
	return nil
}

func (s *AuthService) GetUserByID(id uint) (*model.User, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	return s.userRepo.GetByID(id)
}

func (s *AuthService) issueToken(user *model.User) (string, error) {
	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, user.ID)
	if err != nil {
		return "", err
	}
	if err := s.sessionRepo.Create(&model.Session{UserID: user.ID, Token: token}); err != nil {
		return "", err
	}
	return token, nil
}

func (s *AuthService) dropCachedTokens(ctx context.Context, tokens ...string) {
	if s.tokenCache == nil || len(tokens) == 0 {
		return
	}
	if err := s.tokenCache.Delete(ctx, tokens...); err != nil {
		log.Printf("token cache delete failed: %v", err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validatePassword(password string) error {
	if len(password) < 7 {
		return ErrInvalidPassword
	}
	if strings.Contains(strings.ToLower(password), "password") {
		return ErrInvalidPassword
	}
	return nil
}

// intFromJSON accepts the numeric types a decoded JSON document can carry.
func intFromJSON(raw interface{}) (int, error) {
	switch v := raw.(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, ErrInvalidInput
		}
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, ErrInvalidInput
	}
}
