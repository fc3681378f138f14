package services_test

import (
	"errors"
	"testing"

	"gemstore/internal/apperrors"
	"gemstore/internal/logging"
	"gemstore/internal/models"
	"gemstore/internal/repositories"
	"gemstore/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(id uint) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Update(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) SetExclusiveAdmin(email string) (int64, error) {
	args := m.Called(email)
	return args.Get(0).(int64), args.Error(1)
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthService_Register(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, services.AdminCredentials{}, logging.Discard())

	mockRepo.On("GetByEmail", "a@x.com").Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("Create", mock.MatchedBy(func(u *models.User) bool {
		return u.Email == "a@x.com" && u.PasswordHash != "secret1" &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret1")) == nil
	})).Run(func(args mock.Arguments) {
		args.Get(0).(*models.User).ID = 1
	}).Return(nil).Once()

	user, err := authService.Register(" A ", " A@X.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, uint(1), user.ID)
	assert.Equal(t, "A", user.Name)
	assert.Equal(t, "a@x.com", user.Email)
	assert.False(t, user.IsAdmin)
	mockRepo.AssertExpectations(t)

	// Email already registered
	mockRepo.On("GetByEmail", "a@x.com").Return(&models.User{ID: 1, Email: "a@x.com"}, nil).Once()
	_, err = authService.Register("A", "a@x.com", "another")
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	mockRepo.AssertExpectations(t)

	// Lost the race at insert time
	mockRepo.On("GetByEmail", "b@x.com").Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("Create", mock.AnythingOfType("*models.User")).Return(repositories.ErrDuplicate).Once()
	_, err = authService.Register("B", "b@x.com", "secret1")
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	mockRepo.AssertExpectations(t)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, services.AdminCredentials{}, logging.Discard())

	cases := []struct {
		name, email, password, field, message string
	}{
		{"", "a@x.com", "secret1", "name", "Missing fields"},
		{"A", "", "secret1", "email", "Missing fields"},
		{"A", "a@x.com", "", "password", "Missing fields"},
		{"A", "not-an-email", "secret1", "email", "Invalid email address"},
		{"A", "a@x.com", "12345", "password", "Password must be at least 6 characters"},
	}
	for _, tc := range cases {
		_, err := authService.Register(tc.name, tc.email, tc.password)
		appErr, ok := apperrors.As(err)
		require.True(t, ok, "expected app error for %+v", tc)
		assert.True(t, errors.Is(err, apperrors.ErrValidation))
		assert.Equal(t, tc.field, appErr.Field)
		assert.Equal(t, tc.message, appErr.Message)
	}
	mockRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestAuthService_Verify(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, services.AdminCredentials{}, logging.Discard())
	user := &models.User{ID: 7, Name: "A", Email: "a@x.com", PasswordHash: hashed(t, "secret1")}

	mockRepo.On("GetByEmail", "a@x.com").Return(user, nil).Twice()
	view, err := authService.Verify("A@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, uint(7), view.ID)

	_, wrongPassword := authService.Verify("a@x.com", "secret2")

	mockRepo.On("GetByEmail", "ghost@x.com").Return(nil, repositories.ErrNotFound).Once()
	_, unknownEmail := authService.Verify("ghost@x.com", "secret1")

	assert.True(t, errors.Is(wrongPassword, apperrors.ErrUnauthenticated))
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	mockRepo.AssertExpectations(t)
}

func TestAuthService_LoginReconcilesAdmin(t *testing.T) {
	mockRepo := new(MockUserRepository)
	admin := services.AdminCredentials{Email: "Owner@x.com", Password: "ownerpass"}
	authService := services.NewAuthService(mockRepo, admin, logging.Discard())

	owner := &models.User{ID: 1, Name: "owner", Email: "owner@x.com", PasswordHash: hashed(t, "ownerpass")}
	mockRepo.On("GetByEmail", "owner@x.com").Return(owner, nil).Once()
	mockRepo.On("SetExclusiveAdmin", "owner@x.com").Return(int64(3), nil).Once()

	view, err := authService.Login("owner@x.com", "ownerpass")
	require.NoError(t, err)
	assert.True(t, view.IsAdmin)
	mockRepo.AssertExpectations(t)

	// An ordinary login never touches the admin flags.
	customer := &models.User{ID: 2, Name: "c", Email: "c@x.com", PasswordHash: hashed(t, "secret1")}
	mockRepo.On("GetByEmail", "c@x.com").Return(customer, nil).Once()
	view, err = authService.Login("c@x.com", "secret1")
	require.NoError(t, err)
	assert.False(t, view.IsAdmin)
	mockRepo.AssertNumberOfCalls(t, "SetExclusiveAdmin", 1)

	_, err = authService.Login("", "x")
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestAuthService_EnsureAdminAccount(t *testing.T) {
	mockRepo := new(MockUserRepository)
	admin := services.AdminCredentials{Email: "owner@gems.com", Password: "ownerpass"}
	authService := services.NewAuthService(mockRepo, admin, logging.Discard())

	mockRepo.On("GetByEmail", "owner@gems.com").Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("Create", mock.MatchedBy(func(u *models.User) bool {
		return u.Name == "owner" && u.Email == "owner@gems.com" && u.IsAdmin
	})).Return(nil).Once()
	mockRepo.On("SetExclusiveAdmin", "owner@gems.com").Return(int64(1), nil).Once()

	require.NoError(t, authService.EnsureAdminAccount())
	mockRepo.AssertExpectations(t)

	unconfigured := services.NewAuthService(new(MockUserRepository), services.AdminCredentials{}, logging.Discard())
	assert.NoError(t, unconfigured.EnsureAdminAccount())
}

func TestAuthService_EnsureAdminAccount_ExistingAccount(t *testing.T) {
	admin := services.AdminCredentials{Email: "owner@gems.com", Password: "ownerpass"}

	// Matching password: promoted.
	mockRepo := new(MockUserRepository)
	mockRepo.On("GetByEmail", "owner@gems.com").Return(&models.User{ID: 1, Email: "owner@gems.com", PasswordHash: hashed(t, "ownerpass")}, nil).Once()
	mockRepo.On("SetExclusiveAdmin", "owner@gems.com").Return(int64(1), nil).Once()
	require.NoError(t, services.NewAuthService(mockRepo, admin, logging.Discard()).EnsureAdminAccount())
	mockRepo.AssertExpectations(t)

	// Different password: flags untouched.
	mockRepo = new(MockUserRepository)
	mockRepo.On("GetByEmail", "owner@gems.com").Return(&models.User{ID: 2, Email: "owner@gems.com", PasswordHash: hashed(t, "mallory1")}, nil).Once()
	err := services.NewAuthService(mockRepo, admin, logging.Discard()).EnsureAdminAccount()
	assert.True(t, errors.Is(err, services.ErrAdminCredentialMismatch))
	mockRepo.AssertNotCalled(t, "SetExclusiveAdmin", mock.Anything)
}

func TestAuthService_AdminSeatCannotBeClaimed(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	admin := services.AdminCredentials{Email: "owner@gems.com", Password: "ownerpass"}
	authService := services.NewAuthService(repo, admin, logging.Discard())
	require.NoError(t, authService.EnsureAdminAccount())

	owner, err := authService.Login("owner@gems.com", "ownerpass")
	require.NoError(t, err)
	require.True(t, owner.IsAdmin)

	// The admin account keeps its email.
	moved := "me@owner.com"
	_, _, err = authService.UpdateProfile(owner.ID, services.ProfileUpdate{Email: &moved})
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	// Nobody else can register or move onto the admin email.
	_, err = authService.Register("Mallory", "Owner@Gems.com", "mallory1")
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	mallory, err := authService.Register("Mallory", "mallory@x.com", "mallory1")
	require.NoError(t, err)
	target := "owner@gems.com"
	_, _, err = authService.UpdateProfile(mallory.ID, services.ProfileUpdate{Email: &target})
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	require.NoError(t, authService.EnsureAdminAccount())
	stored, err := authService.GetByID(mallory.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsAdmin)
	stored, err = authService.GetByID(owner.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsAdmin)
}

func TestAuthService_EnsureAdminAccount_EmailTakenBeforeConfigured(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	open := services.NewAuthService(repo, services.AdminCredentials{}, logging.Discard())
	squatter, err := open.Register("Mallory", "owner@gems.com", "mallory1")
	require.NoError(t, err)
	existingAdmin, err := open.Register("Old Owner", "old@gems.com", "oldpass1")
	require.NoError(t, err)
	_, err = repo.SetExclusiveAdmin("old@gems.com")
	require.NoError(t, err)

	authService := services.NewAuthService(repo, services.AdminCredentials{Email: "owner@gems.com", Password: "ownerpass"}, logging.Discard())
	err = authService.EnsureAdminAccount()
	assert.True(t, errors.Is(err, services.ErrAdminCredentialMismatch))

	stored, err := authService.GetByID(squatter.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsAdmin)
	stored, err = authService.GetByID(existingAdmin.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsAdmin)

	_, err = authService.Login("owner@gems.com", "mallory1")
	require.NoError(t, err)
	stored, err = authService.GetByID(squatter.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsAdmin)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	authService := services.NewAuthService(repo, services.AdminCredentials{}, logging.Discard())

	a, err := authService.Register("A", "a@x.com", "secret1")
	require.NoError(t, err)
	_, err = authService.Register("B", "b@x.com", "secret1")
	require.NoError(t, err)

	taken := "B@x.com"
	_, _, err = authService.UpdateProfile(a.ID, services.ProfileUpdate{Email: &taken})
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	weak := "123"
	_, _, err = authService.UpdateProfile(a.ID, services.ProfileUpdate{Password: &weak})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	name, email, password := "Alice", "alice@x.com", "newsecret"
	view, changed, err := authService.UpdateProfile(a.ID, services.ProfileUpdate{Name: &name, Email: &email, Password: &password})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "Alice", view.Name)
	assert.Equal(t, "alice@x.com", view.Email)

	_, err = authService.Verify("alice@x.com", "secret1")
	assert.Error(t, err)
	_, err = authService.Verify("alice@x.com", "newsecret")
	assert.NoError(t, err)

	_, _, err = authService.UpdateProfile(99, services.ProfileUpdate{Name: &name})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
