package testutils

import (
	"context"

	"studytrack/studytrack/database"
	"studytrack/studytrack/models"
	"studytrack/studytrack/services"

	"github.com/stretchr/testify/mock"
)

// MockTaskService mocks the TaskServiceInterface for testing
type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) CreateTask(ctx context.Context, db *database.Database, ownerID int64, input models.TaskInput) (models.Task, error) {
	args := m.Called(ownerID, input)
	return args.Get(0).(models.Task), args.Error(1)
}

func (m *MockTaskService) GetTaskById(ctx context.Context, db *database.Database, ownerID, id int64) (models.Task, error) {
	args := m.Called(ownerID, id)
	return args.Get(0).(models.Task), args.Error(1)
}

func (m *MockTaskService) UpdateTask(ctx context.Context, db *database.Database, ownerID, id int64, patch models.TaskPatch) (models.Task, error) {
	args := m.Called(ownerID, id, patch)
	return args.Get(0).(models.Task), args.Error(1)
}

func (m *MockTaskService) DeleteTask(ctx context.Context, db *database.Database, ownerID, id int64) error {
	args := m.Called(ownerID, id)
	return args.Error(0)
}

func (m *MockTaskService) GetTasks(ctx context.Context, db *database.Database, ownerID int64, filter models.TaskFilter, sort models.TaskSort) ([]models.Task, error) {
	args := m.Called(ownerID, filter, sort)
	return args.Get(0).([]models.Task), args.Error(1)
}

func (m *MockTaskService) GetTaskStats(ctx context.Context, db *database.Database, ownerID int64) (models.TaskStats, error) {
	args := m.Called(ownerID)
	return args.Get(0).(models.TaskStats), args.Error(1)
}

// MockUserService mocks the UserServiceInterface for testing
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) CreateUser(ctx context.Context, db *database.Database, email, passwordHash string, name *string) (models.User, error) {
	args := m.Called(email, passwordHash, name)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockUserService) GetUserById(ctx context.Context, db *database.Database, id int64) (models.User, error) {
	args := m.Called(id)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockUserService) GetUserByEmail(ctx context.Context, db *database.Database, email string) (models.User, error) {
	args := m.Called(email)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockUserService) Register(ctx context.Context, db *database.Database, input services.RegisterInput) (models.User, string, error) {
	args := m.Called(input)
	return args.Get(0).(models.User), args.String(1), args.Error(2)
}

func (m *MockUserService) Login(ctx context.Context, db *database.Database, email, password string) (models.User, string, error) {
	args := m.Called(email, password)
	return args.Get(0).(models.User), args.String(1), args.Error(2)
}

// MockAuthService mocks the credential contract
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) GenerateToken(userID int64, email string) (string, error) {
	args := m.Called(userID, email)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) ValidateToken(tokenString string) (*services.JWTClaims, error) {
	args := m.Called(tokenString)
	claims, _ := args.Get(0).(*services.JWTClaims)
	return claims, args.Error(1)
}

func (m *MockAuthService) HashPassword(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) ComparePasswords(hashedPassword, password string) error {
	args := m.Called(hashedPassword, password)
	return args.Error(0)
}
