package services

import (
	"errors"
	"fmt"
	"strings"

	"gemstore/internal/apperrors"
	"gemstore/internal/metrics"
	"gemstore/internal/models"
	"gemstore/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted at registration or
// profile update.
const MinPasswordLength = 6

// ErrAdminCredentialMismatch means an account holds the configured admin
// email but not the configured admin password, so it is not promoted.
var ErrAdminCredentialMismatch = errors.New("account with the admin email does not match the admin password")

// dummyHash is compared against when the email is unknown so a failed login
// costs the same bcrypt work either way.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("gemstore-dummy-password"), bcrypt.DefaultCost)

// AdminCredentials is the configured admin account. Both fields empty means
// no account is designated.
type AdminCredentials struct {
	Email    string
	Password string
}

func (a AdminCredentials) configured() bool {
	return a.Email != "" && a.Password != ""
}

// reserved reports whether email belongs to the designated admin account.
func (a AdminCredentials) reserved(email string) bool {
	return a.configured() && email == a.Email
}

// ProfileUpdate carries the fields of a partial profile update. Nil fields are
// left unchanged.
type ProfileUpdate struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// AuthService owns user credentials: registration, verification and profile
// changes.
type AuthService struct {
	userRepo repositories.UserRepository
	admin    AdminCredentials
	validate *validator.Validate
	logger   logrus.FieldLogger
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, admin AdminCredentials, logger logrus.FieldLogger) *AuthService {
	admin.Email = NormalizeEmail(admin.Email)
	return &AuthService{
		userRepo: userRepo,
		admin:    admin,
		validate: newValidator(),
		logger:   logger,
	}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) checkEmail(email string) error {
	if err := s.validate.Var(email, "required,email"); err != nil {
		return apperrors.Validation("email", "Invalid email address")
	}
	return nil
}

func checkPassword(password string) error {
	if len(password) < MinPasswordLength {
		return apperrors.Validation("password", fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	return nil
}

// Register creates an account and returns its public projection.
func (s *AuthService) Register(name, email, password string) (*models.UserView, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	switch {
	case name == "":
		return nil, apperrors.Validation("name", "Missing fields")
	case email == "":
		return nil, apperrors.Validation("email", "Missing fields")
	case password == "":
		return nil, apperrors.Validation("password", "Missing fields")
	}
	if err := s.checkEmail(email); err != nil {
		return nil, err
	}
	if err := checkPassword(password); err != nil {
		return nil, err
	}

	if s.admin.reserved(email) {
		return nil, apperrors.Conflict("Email already registered")
	}
	if _, err := s.userRepo.GetByEmail(email); err == nil {
		return nil, apperrors.Conflict("Email already registered")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.User{Name: name, Email: email, PasswordHash: string(hash)}
	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperrors.Conflict("Email already registered")
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	s.logger.WithField("user_id", user.ID).Info("user registered")
	return user.View(), nil
}

// Verify checks an email and password pair. Unknown emails and wrong
// passwords fail identically.
func (s *AuthService) Verify(email, password string) (*models.UserView, error) {
	invalid := apperrors.Unauthenticated("Invalid credentials")

	user, err := s.userRepo.GetByEmail(NormalizeEmail(email))
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("failed to load user: %w", err)
		}
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, invalid
	}
	return user.View(), nil
}

// Login verifies the credentials. A login with the configured admin pair
// re-asserts that account as the only admin.
func (s *AuthService) Login(email, password string) (*models.UserView, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.Validation("email", "Missing fields")
	}

	view, err := s.Verify(email, password)
	metrics.LoginAttempt(err == nil)
	if err != nil {
		return nil, err
	}

	if s.admin.configured() && email == s.admin.Email && password == s.admin.Password {
		if err := s.reconcileAdmin(); err != nil {
			return nil, err
		}
		view.IsAdmin = true
	}
	return view, nil
}

// EnsureAdminAccount creates the configured admin account when it is missing
// and makes it the only admin. An existing account is promoted only when its
// password is the configured admin password; otherwise flags are left alone
// and ErrAdminCredentialMismatch is returned. It is a no-op without
// configured credentials.
func (s *AuthService) EnsureAdminAccount() error {
	if !s.admin.configured() {
		return nil
	}

	existing, err := s.userRepo.GetByEmail(s.admin.Email)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		hash, err := bcrypt.GenerateFromPassword([]byte(s.admin.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash admin password: %w", err)
		}
		name := s.admin.Email
		if at := strings.Index(name, "@"); at > 0 {
			name = name[:at]
		}
		admin := &models.User{Name: name, Email: s.admin.Email, PasswordHash: string(hash), IsAdmin: true}
		if err := s.userRepo.Create(admin); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				// Created concurrently; check the winner's password.
				return s.EnsureAdminAccount()
			}
			return fmt.Errorf("failed to create admin account: %w", err)
		}
		s.logger.WithField("email", s.admin.Email).Info("admin account created")
	case err != nil:
		return fmt.Errorf("failed to look up admin account: %w", err)
	default:
		if bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash), []byte(s.admin.Password)) != nil {
			s.logger.WithFields(logrus.Fields{
				"email":   s.admin.Email,
				"user_id": existing.ID,
			}).Warn("admin email is held by an account with a different password; admin flags left unchanged")
			return ErrAdminCredentialMismatch
		}
	}

	return s.reconcileAdmin()
}

func (s *AuthService) reconcileAdmin() error {
	rows, err := s.userRepo.SetExclusiveAdmin(s.admin.Email)
	if err != nil {
		return fmt.Errorf("failed to reconcile admin: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"email": s.admin.Email, "rows": rows}).Debug("admin flag reconciled")
	return nil
}

// GetByID returns the public projection of a user.
func (s *AuthService) GetByID(userID uint) (*models.UserView, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("User not found")
		}
		return nil, err
	}
	return user.View(), nil
}

// UpdateProfile applies a partial update. It reports whether the password
// changed so callers can revoke other sessions.
func (s *AuthService) UpdateProfile(userID uint, update ProfileUpdate) (*models.UserView, bool, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, false, apperrors.NotFound("User not found")
		}
		return nil, false, err
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, false, apperrors.Validation("name", "Name cannot be empty")
		}
		user.Name = name
	}

	if update.Email != nil {
		email := NormalizeEmail(*update.Email)
		if err := s.checkEmail(email); err != nil {
			return nil, false, err
		}
		if email != user.Email {
			if s.admin.reserved(user.Email) {
				return nil, false, apperrors.Forbidden("The admin account email cannot be changed")
			}
			if s.admin.reserved(email) {
				return nil, false, apperrors.Conflict("Email already in use")
			}
			existing, err := s.userRepo.GetByEmail(email)
			if err == nil && existing.ID != user.ID {
				return nil, false, apperrors.Conflict("Email already in use")
			}
			if err != nil && !errors.Is(err, repositories.ErrNotFound) {
				return nil, false, fmt.Errorf("failed to check email: %w", err)
			}
			user.Email = email
		}
	}

	passwordChanged := false
	if update.Password != nil {
		if err := checkPassword(*update.Password); err != nil {
			return nil, false, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*update.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, false, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hash)
		passwordChanged = true
	}

	if err := s.userRepo.Update(user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, false, apperrors.Conflict("Email already in use")
		}
		return nil, false, fmt.Errorf("failed to update profile: %w", err)
	}
	return user.View(), passwordChanged, nil
}
