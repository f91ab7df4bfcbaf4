package user

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"storefront/internal/domain"
	"storefront/internal/logger"
	tokenrepo "storefront/internal/repository/token"
	userrepo "storefront/internal/repository/user"
)

var (
	// ErrInvalidCredentials is returned when email/password do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailNotVerified blocks login until the confirmation link was opened.
	ErrEmailNotVerified = errors.New("email not verified")
	ErrInvalidToken     = errors.New("invalid or expired token")
)

type tokenIssuer interface {
	IssueUser(userID string) (string, error)
	IssueAdmin() (string, error)
}

// Mailer sends the account confirmation link.
type Mailer interface {
	EmailVerification(to, token string)
}

type Service struct {
	users         userrepo.Repository
	tokens        *tokenManager
	jwt           tokenIssuer
	mailer        Mailer
	adminPassword string
	verifyTTL     time.Duration
	passwordMin   int
	validate      *validator.Validate
	logger        *zap.Logger
}

func New(users userrepo.Repository, tokens tokenrepo.Repository, jwt tokenIssuer, mailer Mailer, adminPassword string, log *zap.Logger) *Service {
	log = logger.OrNop(log).Named("users")
	return &Service{
		users:         users,
		tokens:        newTokenManager(tokens, log),
		jwt:           jwt,
		mailer:        mailer,
		adminPassword: adminPassword,
		verifyTTL:     24 * time.Hour,
		passwordMin:   8,
		validate:      validator.New(),
		logger:        log,
	}
}

// Register creates an unverified account and mails the confirmation link. Registering
// again with the same credentials while still unverified sends a fresh link instead.
func (s *Service) Register(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, domain.Invalid("A valid email is required")
	}
	if err := validatePassword(password, s.passwordMin); err != nil {
		return nil, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u, err := s.users.Create(ctx, domain.User{Email: email, PasswordHash: string(hashed)})
	if errors.Is(err, domain.ErrAlreadyExists) {
		return s.resendVerification(ctx, email, password)
	}
	if err != nil {
		return nil, err
	}

	raw, err := s.tokens.Issue(ctx, u.ID, tokenrepo.KindEmailVerification, s.verifyTTL)
	if err != nil {
		s.logger.Error("issue verification token", zap.String("user_id", u.ID), zap.Error(err))
		return nil, err
	}
	s.sendVerification(u.Email, raw)
	s.logger.Info("user registered", zap.String("user_id", u.ID))
	return u, nil
}

// resendVerification handles a repeated registration. Only the holder of the stored
// password of an unverified account gets a new link; everything else is a conflict.
func (s *Service) resendVerification(ctx context.Context, email, password string) (*domain.User, error) {
	conflict := fmt.Errorf("%w: email already registered", domain.ErrConflict)
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, conflict
		}
		return nil, err
	}
	if u.EmailVerified || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, conflict
	}

	raw, err := s.tokens.Reissue(ctx, u.ID, tokenrepo.KindEmailVerification, s.verifyTTL)
	if err != nil {
		s.logger.Error("reissue verification token", zap.String("user_id", u.ID), zap.Error(err))
		return nil, err
	}
	s.sendVerification(u.Email, raw)
	s.logger.Info("verification resent", zap.String("user_id", u.ID))
	return u, nil
}

func (s *Service) sendVerification(to, raw string) {
	if s.mailer != nil {
		s.mailer.EmailVerification(to, raw)
	}
}

// ConfirmEmail marks the owner of raw as verified.
func (s *Service) ConfirmEmail(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrInvalidToken
	}
	userID, err := s.tokens.Consume(ctx, raw, tokenrepo.KindEmailVerification)
	if err != nil {
		return err
	}
	if err := s.users.MarkEmailVerified(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("email verified", zap.String("user_id", userID))
	return nil
}

// Login checks credentials and returns a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if !u.EmailVerified {
		return nil, "", ErrEmailNotVerified
	}
	token, err := s.jwt.IssueUser(u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// AdminLogin compares against the configured admin password. An empty configured
// password disables admin login.
func (s *Service) AdminLogin(password string) (string, error) {
	if s.adminPassword == "" || subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPassword)) != 1 {
		return "", ErrInvalidCredentials
	}
	return s.jwt.IssueAdmin()
}

func (s *Service) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// bcrypt rejects longer inputs.
const passwordMaxBytes = 72

func validatePassword(p string, min int) error {
	if len(p) < min {
		return domain.Invalid("Password must be at least %d characters", min)
	}
	if len(p) > passwordMaxBytes {
		return domain.Invalid("Password must be at most %d bytes", passwordMaxBytes)
	}
	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, r := range p {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return domain.Invalid("Password must contain at least 1 uppercase letter, 1 lowercase letter, and 1 number")
	}
	return nil
}
