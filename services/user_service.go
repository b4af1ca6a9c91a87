package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"studytrack/studytrack/database"
	"studytrack/studytrack/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// bcrypt ignores everything past this length and refuses to hash longer input.
const maxPasswordBytes = 72

type RegisterInput struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name"`
}

type UserServiceInterface interface {
	CreateUser(ctx context.Context, db *database.Database, email, passwordHash string, name *string) (models.User, error)
	GetUserById(ctx context.Context, db *database.Database, id int64) (models.User, error)
	GetUserByEmail(ctx context.Context, db *database.Database, email string) (models.User, error)
	Register(ctx context.Context, db *database.Database, input RegisterInput) (models.User, string, error)
	Login(ctx context.Context, db *database.Database, email, password string) (models.User, string, error)
}

type UserService struct {
	authService AuthServiceInterface
	logger      logrus.FieldLogger

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(authService AuthServiceInterface, logger logrus.FieldLogger) *UserService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &UserService{authService: authService, logger: logger}
}

// CreateUser inserts a user after checking the email is free. The check and
// the insert share one transaction; a concurrent insert that slips past the
// check still surfaces as a conflict through the unique index.
func (s *UserService) CreateUser(ctx context.Context, db *database.Database, email, passwordHash string, name *string) (models.User, error) {
	user := models.User{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
	}

	err := db.Transaction(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return conflictError("User with this email already exists")
		}

		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return conflictError("User with this email already exists")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (s *UserService) GetUserById(ctx context.Context, db *database.Database, id int64) (models.User, error) {
	var user models.User
	if err := db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *UserService) GetUserByEmail(ctx context.Context, db *database.Database, email string) (models.User, error) {
	var user models.User
	if err := db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *UserService) Register(ctx context.Context, db *database.Database, input RegisterInput) (models.User, string, error) {
	if input.Email == "" || input.Password == "" {
		return models.User{}, "", validationError("Email and password are required")
	}
	if len(input.Password) > maxPasswordBytes {
		return models.User{}, "", validationError(fmt.Sprintf("Password must be at most %d bytes", maxPasswordBytes))
	}

	hash, err := s.authService.HashPassword(input.Password)
	if err != nil {
		return models.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	var name *string
	if input.Name != nil && *input.Name != "" {
		name = input.Name
	}

	user, err := s.CreateUser(ctx, db, input.Email, hash, name)
	if err != nil {
		return models.User{}, "", err
	}

	signed, err := s.authService.GenerateToken(user.ID, user.Email)
	if err != nil {
		return models.User{}, "", fmt.Errorf("issue token: %w", err)
	}

	s.logger.WithField("user_id", user.ID).Info("User registered")
	return user, signed, nil
}

// Login answers unknown emails and wrong passwords with the same error so
// that callers cannot tell which emails are registered.
func (s *UserService) Login(ctx context.Context, db *database.Database, email, password string) (models.User, string, error) {
	if email == "" || password == "" {
		return models.User{}, "", validationError("Email and password are required")
	}

	user, err := s.GetUserByEmail(ctx, db, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Spend the same bcrypt work as a real comparison.
			_ = s.authService.ComparePasswords(s.unknownUserHash(), password)
			return models.User{}, "", ErrInvalidCredentials
		}
		return models.User{}, "", err
	}

	if err := s.authService.ComparePasswords(user.PasswordHash, password); err != nil {
		return models.User{}, "", ErrInvalidCredentials
	}

	signed, err := s.authService.GenerateToken(user.ID, user.Email)
	if err != nil {
		return models.User{}, "", fmt.Errorf("issue token: %w", err)
	}

	return user, signed, nil
}

func (s *UserService) unknownUserHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.authService.HashPassword("studytrack-unknown-user")
		if err != nil {
			s.logger.WithError(err).Warn("Failed to prepare login timing hash")
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
