// Package account is a demo credential store. Records are kept as one JSON
// document in a Storage and passwords are bcrypt hashed.
package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"arithmitra/pkg/logging"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UsersKey is the storage key holding every account record.
const UsersKey = "arithmitra_users"

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

var (
	ErrMissingName        = errors.New("account: name is required")
	ErrInvalidEmail       = errors.New("account: please enter a valid email address")
	ErrWeakPassword       = errors.New("account: password must be at least 6 characters")
	ErrAccountExists      = errors.New("account: account already exists, please login instead")
	ErrAccountNotFound    = errors.New("account: account not found, please sign up first")
	ErrInvalidCredentials = errors.New("account: invalid email or password")
)

// IsValidation reports whether err is a form validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingName) ||
		errors.Is(err, ErrInvalidEmail) ||
		errors.Is(err, ErrWeakPassword)
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// User is the identity handed to the rest of the service.
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// record is the stored form of an account. Federated accounts have no hash.
type record struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash,omitempty"`
	Provider     string `json:"provider,omitempty"`
}

// Store manages accounts. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	storage Storage
	cost    int
	logger  *logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) Option {
	return func(s *Store) {
		s.cost = cost
	}
}

// WithLogger sets the logger used for corrupt-store warnings.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a Store over storage.
func NewStore(storage Storage, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		cost:    bcrypt.DefaultCost,
		logger:  logging.L().Named("account"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// load must be called with mu held. A document that does not parse is
// logged, removed and treated as empty.
func (s *Store) load(ctx context.Context) ([]record, error) {
	raw, err := s.storage.Get(ctx, UsersKey)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("account: load: %w", err)
	}

	var records []record
	if err := json.Unmarshal(raw, &records); err != nil {
		s.logger.Warn("discarding corrupt account store", zap.Error(err))
		if err := s.storage.Delete(ctx, UsersKey); err != nil {
			return nil, fmt.Errorf("account: reset: %w", err)
		}
		return nil, nil
	}
	return records, nil
}

// save must be called with mu held.
func (s *Store) save(ctx context.Context, records []record) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("account: encode: %w", err)
	}
	if err := s.storage.Set(ctx, UsersKey, raw); err != nil {
		return fmt.Errorf("account: save: %w", err)
	}
	return nil
}

func find(records []record, email string) int {
	for i, r := range records {
		if strings.EqualFold(r.Email, email) {
			return i
		}
	}
	return -1
}

func checkCredentials(email, password string) error {
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// SignUp registers a new account. Emails are matched case-insensitively.
func (s *Store) SignUp(ctx context.Context, name, email, password string) (User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return User{}, ErrMissingName
	}
	if err := checkCredentials(email, password); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return User{}, err
	}
	if find(records, email) >= 0 {
		return User{}, ErrAccountExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("account: hash password: %w", err)
	}

	records = append(records, record{Name: name, Email: email, PasswordHash: string(hash)})
	if err := s.save(ctx, records); err != nil {
		return User{}, err
	}

	s.logger.Info("account created", zap.String("email", email))
	return User{Name: name, Email: email}, nil
}

// Login checks a password against the stored hash.
func (s *Store) Login(ctx context.Context, email, password string) (User, error) {
	email = strings.TrimSpace(email)
	if err := checkCredentials(email, password); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	records, err := s.load(ctx)
	s.mu.Unlock()
	if err != nil {
		return User{}, err
	}

	i := find(records, email)
	if i < 0 {
		return User{}, ErrAccountNotFound
	}
	r := records[i]
	if r.PasswordHash == "" {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(r.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	return User{Name: r.Name, Email: r.Email}, nil
}

// SignInFederated signs in an identity vouched for by an external provider,
// creating the account on first use. Such accounts cannot log in by password.
func (s *Store) SignInFederated(ctx context.Context, provider, name, email string) (User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return User{}, ErrMissingName
	}
	if !emailPattern.MatchString(email) {
		return User{}, ErrInvalidEmail
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return User{}, err
	}
	if find(records, email) < 0 {
		records = append(records, record{Name: name, Email: email, Provider: provider})
		if err := s.save(ctx, records); err != nil {
			return User{}, err
		}
		s.logger.Info("federated account created",
			zap.String("email", email),
			zap.String("provider", provider))
	}

	return User{Name: name, Email: email}, nil
}

// Count returns the number of stored accounts.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	return len(records), err
}
