package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nemoguigrat/uralintern/internal/config"
	"github.com/nemoguigrat/uralintern/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	db        *gorm.DB
	jwtSecret []byte
	ttl       time.Duration
}

func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{db: db, jwtSecret: []byte(cfg.JWTSecret), ttl: ttl}
}

type LoginResult struct {
	ID         uint   `json:"id"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	SystemRole string `json:"system_role"`
	Token      string `json:"token"`
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: user has been deactivated", ErrInvalidCredentials)
	}

	token, err := s.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		ID:         user.ID,
		Email:      user.Email,
		Username:   user.Username,
		SystemRole: user.SystemRole,
		Token:      token,
	}, nil
}

func (s *AuthService) GenerateToken(userID uint) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(s.ttl).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken resolves a bearer token into the caller's identity. The role
// is read from the user row so that role changes apply immediately.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, uint(userIDFloat)).Error; err != nil {
		return Identity{}, ErrInvalidToken
	}
	if !user.IsActive {
		return Identity{}, ErrInvalidToken
	}

	return Identity{UserID: user.ID, Role: user.SystemRole}, nil
}

func (s *AuthService) CurrentUser(ctx context.Context, id Identity) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id.UserID).Error; err != nil {
		return nil, lookupErr(err, "user")
	}
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
