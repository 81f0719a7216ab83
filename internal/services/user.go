package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nemoguigrat/uralintern/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserService struct {
	db     *gorm.DB
	cache  ReportCache
	mailer Mailer
}

// NewUserService builds the service. mailer may be nil, in which case
// credentials cannot be mailed.
func NewUserService(db *gorm.DB, cache ReportCache, mailer Mailer) *UserService {
	if cache == nil {
		cache = noopReportCache{}
	}
	return &UserService{db: db, cache: cache, mailer: mailer}
}

type UserInput struct {
	Username  string
	Email     string
	Password  string
	Role      string
	SocialURL string
	IsStaff   bool
}

// CreateUserWithProfile creates the user together with the Trainee, Curator
// or Expert row its role requires. An empty password is replaced by a
// generated one, readable through UnhashedPassword.
func (s *UserService) CreateUserWithProfile(ctx context.Context, in UserInput) (*models.User, error) {
	if len(strings.Fields(in.Username)) == 1 {
		return nil, invalid("username", "username must be the user's full name")
	}
	user, err := newUser(in)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := emailTaken(tx, user.Email)
		if err != nil {
			return err
		}
		if taken {
			return invalid("email", "user with this email already exists")
		}
		return createUserWithProfile(tx, user, nil)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, invalid("email", "user with this email already exists")
	}
	if err != nil {
		return nil, err
	}

	slog.Info("user created", "user_id", user.ID, "role", user.SystemRole)
	return user, nil
}

// DeleteUserAndProfile removes the user, its profile row and every grade the
// user gave or, as a trainee, received. Cached reports of every trainee the
// user graded are dropped.
func (s *UserService) DeleteUserAndProfile(ctx context.Context, userID uint) error {
	var affected []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		affected, err = deleteUserTx(tx, userID)
		return err
	})
	if err != nil {
		return err
	}
	for _, traineeID := range affected {
		s.cache.Invalidate(ctx, traineeID)
	}
	slog.Info("user deleted", "user_id", userID, "reports_invalidated", len(affected))
	return nil
}

// DeleteTrainee removes the trainee and the user that owns it.
func (s *UserService) DeleteTrainee(ctx context.Context, traineeID uint) error {
	var trainee models.Trainee
	if err := s.db.WithContext(ctx).First(&trainee, traineeID).Error; err != nil {
		return lookupErr(err, "trainee")
	}
	return s.DeleteUserAndProfile(ctx, trainee.UserID)
}

func (s *UserService) ListUsers(ctx context.Context, role string) ([]models.User, error) {
	q := s.db.WithContext(ctx).Order("id ASC")
	if role != "" {
		q = q.Where("system_role = ?", role)
	}
	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// EnsureAdmin creates the bootstrap administrator unless the email is taken.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	taken, err := emailTaken(s.db.WithContext(ctx), normalizeEmail(email))
	if err != nil || taken {
		return err
	}
	_, err = s.CreateUserWithProfile(ctx, UserInput{
		Username: "Site Administrator",
		Email:    email,
		Password: password,
		Role:     models.RoleAdmin,
		IsStaff:  true,
	})
	return err
}

func newUser(in UserInput) (*models.User, error) {
	username := strings.Join(strings.Fields(in.Username), " ")
	if username == "" {
		return nil, invalid("username", "username is required")
	}

	email := normalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, invalid("email", "a valid email address is required")
	}

	role := in.Role
	if role == "" {
		role = models.RoleTrainee
	}
	if !models.ValidRole(role) {
		return nil, invalid("system_role", "unknown role "+role)
	}

	password := in.Password
	if password == "" {
		generated, err := generatePassword()
		if err != nil {
			return nil, err
		}
		password = generated
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return &models.User{
		Username:         username,
		Email:            email,
		PasswordHash:     string(hash),
		UnhashedPassword: password,
		SystemRole:       role,
		SocialURL:        strings.TrimSpace(in.SocialURL),
		IsActive:         true,
		IsStaff:          in.IsStaff || role == models.RoleAdmin,
	}, nil
}

func emailTaken(tx *gorm.DB, email string) (bool, error) {
	var count int64
	if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// createUserWithProfile inserts user and its role profile. For trainees the
// optional template supplies the profile fields.
func createUserWithProfile(tx *gorm.DB, user *models.User, template *models.Trainee) error {
	if err := tx.Create(user).Error; err != nil {
		return err
	}

	switch user.SystemRole {
	case models.RoleTrainee:
		trainee := models.Trainee{}
		if template != nil {
			trainee = *template
		}
		trainee.UserID = user.ID
		trainee.User = nil
		if trainee.DateStart.IsZero() {
			trainee.DateStart = time.Now()
		}
		return tx.Omit("User", "Team", "Event").Create(&trainee).Error
	case models.RoleCurator:
		return tx.Omit("User").Create(&models.Curator{UserID: user.ID}).Error
	case models.RoleExpert:
		return tx.Omit("User").Create(&models.Expert{UserID: user.ID}).Error
	}
	return nil
}

// deleteUserTx deletes the user and returns the trainees whose reports
// changed: those the user graded and, for a trainee, itself.
func deleteUserTx(tx *gorm.DB, userID uint) ([]uint, error) {
	var user models.User
	if err := tx.First(&user, userID).Error; err != nil {
		return nil, lookupErr(err, "user")
	}

	var affected []uint
	if err := tx.Model(&models.Grade{}).Where("user_id = ?", userID).Distinct().Pluck("trainee_id", &affected).Error; err != nil {
		return nil, err
	}

	var trainee models.Trainee
	err := tx.Where("user_id = ?", userID).First(&trainee).Error
	switch {
	case err == nil:
		affected = append(affected, trainee.ID)
		if err := tx.Where("trainee_id = ?", trainee.ID).Delete(&models.Grade{}).Error; err != nil {
			return nil, err
		}
		if err := tx.Delete(&trainee).Error; err != nil {
			return nil, err
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	var curator models.Curator
	err = tx.Where("user_id = ?", userID).First(&curator).Error
	switch {
	case err == nil:
		if err := tx.Model(&models.Team{}).Where("curator_id = ?", curator.ID).Update("curator_id", nil).Error; err != nil {
			return nil, err
		}
		if err := tx.Model(&models.Trainee{}).Where("curator_id = ?", curator.ID).Update("curator_id", nil).Error; err != nil {
			return nil, err
		}
		if err := tx.Delete(&curator).Error; err != nil {
			return nil, err
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	if err := tx.Where("user_id = ?", userID).Delete(&models.Expert{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("user_id = ?", userID).Delete(&models.Grade{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Delete(&user).Error; err != nil {
		return nil, err
	}
	return affected, nil
}
