package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/BuzzLyutic/task-api/internal/model"
	"github.com/BuzzLyutic/task-api/internal/repo"
)

// MockUserRepository - мок репозитория пользователей
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u model.User) (model.User, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		password  string
		setupMock func(*MockUserRepository)
		wantErr   error
	}{
		{
			name:     "successful registration",
			email:    "User@Example.com",
			password: "secret123",
			setupMock: func(m *MockUserRepository) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(u model.User) bool {
					// email normalized, password never stored in cleartext
					return u.Email == "user@example.com" && u.PasswordHash != "secret123"
				})).Return(model.User{ID: uuid.New(), Email: "user@example.com"}, nil)
			},
		},
		{
			name:     "duplicate email",
			email:    "taken@example.com",
			password: "secret123",
			setupMock: func(m *MockUserRepository) {
				m.On("Create", mock.Anything, mock.Anything).Return(model.User{}, repo.ErrorConflict)
			},
			wantErr: ErrEmailTaken,
		},
		{
			name:      "invalid email",
			email:     "not-an-email",
			password:  "secret123",
			setupMock: func(m *MockUserRepository) {},
			wantErr:   ErrValidation,
		},
		{
			name:      "short password",
			email:     "user@example.com",
			password:  "abc",
			setupMock: func(m *MockUserRepository) {},
			wantErr:   ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			service := NewAuthService(mockRepo, "test-secret", time.Hour)
			user, err := service.Register(context.Background(), tt.email, tt.password)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.NotEqual(t, uuid.Nil, user.ID)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	userID := uuid.New()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.DefaultCost)
	require.NoError(t, err)

	storedUser := model.User{
		ID:           userID,
		Email:        "user@example.com",
		PasswordHash: string(hash),
	}

	t.Run("successful login issues parseable token", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("GetByEmail", mock.Anything, "user@example.com").Return(storedUser, nil)

		service := NewAuthService(mockRepo, "test-secret", time.Hour)
		token, err := service.Login(context.Background(), "user@example.com", "secret123")

		require.NoError(t, err)
		require.NotEmpty(t, token)

		parsedID, err := service.ParseToken(token)
		require.NoError(t, err)
		assert.Equal(t, userID, parsedID)
	})

	t.Run("unknown email", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(model.User{}, repo.ErrorNotFound)

		service := NewAuthService(mockRepo, "test-secret", time.Hour)
		_, err := service.Login(context.Background(), "ghost@example.com", "secret123")

		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("GetByEmail", mock.Anything, "user@example.com").Return(storedUser, nil)

		service := NewAuthService(mockRepo, "test-secret", time.Hour)
		_, err := service.Login(context.Background(), "user@example.com", "wrong-password")

		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestAuthService_ParseToken(t *testing.T) {
	userID := uuid.New()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.DefaultCost)
	require.NoError(t, err)

	storedUser := model.User{
		ID:           userID,
		Email:        "user@example.com",
		PasswordHash: string(hash),
	}

	login := func(t *testing.T, service *AuthService) string {
		t.Helper()
		mockRepo := service.users.(*MockUserRepository)
		mockRepo.On("GetByEmail", mock.Anything, "user@example.com").Return(storedUser, nil)

		token, err := service.Login(context.Background(), "user@example.com", "secret123")
		require.NoError(t, err)
		return token
	}

	t.Run("garbage token", func(t *testing.T) {
		service := NewAuthService(new(MockUserRepository), "test-secret", time.Hour)

		_, err := service.ParseToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("empty token", func(t *testing.T) {
		service := NewAuthService(new(MockUserRepository), "test-secret", time.Hour)

		_, err := service.ParseToken("")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		service := NewAuthService(new(MockUserRepository), "test-secret", -time.Minute)
		token := login(t, service)

		_, err := service.ParseToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong signing secret", func(t *testing.T) {
		issuer := NewAuthService(new(MockUserRepository), "test-secret", time.Hour)
		token := login(t, issuer)

		verifier := NewAuthService(new(MockUserRepository), "other-secret", time.Hour)
		_, err := verifier.ParseToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
