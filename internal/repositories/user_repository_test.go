package repositories_test

import (
	"errors"
	"testing"

	"gemstore/internal/models"
	"gemstore/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userRepos(t *testing.T) map[string]repositories.UserRepository {
	return map[string]repositories.UserRepository{
		"gorm":   repositories.NewGORMUserRepository(newTestDB(t)),
		"memory": repositories.NewMockUserRepository(),
	}
}

func TestUserRepository_CreateAndLookup(t *testing.T) {
	for name, repo := range userRepos(t) {
		t.Run(name, func(t *testing.T) {
			user := &models.User{Name: "Ana", Email: "ana@example.com", PasswordHash: "hash"}
			require.NoError(t, repo.Create(user))
			assert.NotZero(t, user.ID)

			byEmail, err := repo.GetByEmail("ana@example.com")
			require.NoError(t, err)
			assert.Equal(t, user.ID, byEmail.ID)

			byID, err := repo.GetByID(user.ID)
			require.NoError(t, err)
			assert.Equal(t, "Ana", byID.Name)
			assert.False(t, byID.IsAdmin)

			_, err = repo.GetByEmail("nobody@example.com")
			assert.True(t, errors.Is(err, repositories.ErrNotFound))
			_, err = repo.GetByID(user.ID + 100)
			assert.True(t, errors.Is(err, repositories.ErrNotFound))
		})
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	for name, repo := range userRepos(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, repo.Create(&models.User{Name: "A", Email: "dup@example.com", PasswordHash: "h"}))
			err := repo.Create(&models.User{Name: "B", Email: "dup@example.com", PasswordHash: "h"})
			assert.True(t, errors.Is(err, repositories.ErrDuplicate), "got %v", err)
		})
	}
}

func TestUserRepository_UpdateRejectsTakenEmail(t *testing.T) {
	for name, repo := range userRepos(t) {
		t.Run(name, func(t *testing.T) {
			first := &models.User{Name: "A", Email: "a@example.com", PasswordHash: "h"}
			second := &models.User{Name: "B", Email: "b@example.com", PasswordHash: "h"}
			require.NoError(t, repo.Create(first))
			require.NoError(t, repo.Create(second))

			second.Email = "a@example.com"
			err := repo.Update(second)
			assert.True(t, errors.Is(err, repositories.ErrDuplicate), "got %v", err)

			second.Email = "b2@example.com"
			second.Name = "Bee"
			require.NoError(t, repo.Update(second))
			got, err := repo.GetByEmail("b2@example.com")
			require.NoError(t, err)
			assert.Equal(t, "Bee", got.Name)
		})
	}
}

func TestUserRepository_SetExclusiveAdmin(t *testing.T) {
	for name, repo := range userRepos(t) {
		t.Run(name, func(t *testing.T) {
			owner := &models.User{Name: "owner", Email: "owner@example.com", PasswordHash: "h"}
			other := &models.User{Name: "other", Email: "other@example.com", PasswordHash: "h"}
			require.NoError(t, repo.Create(owner))
			require.NoError(t, repo.Create(other))

			_, err := repo.SetExclusiveAdmin("other@example.com")
			require.NoError(t, err)
			_, err = repo.SetExclusiveAdmin("owner@example.com")
			require.NoError(t, err)

			got, err := repo.GetByID(owner.ID)
			require.NoError(t, err)
			assert.True(t, got.IsAdmin)
			got, err = repo.GetByID(other.ID)
			require.NoError(t, err)
			assert.False(t, got.IsAdmin)
		})
	}
}
