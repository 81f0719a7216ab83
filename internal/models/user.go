package models

import "time"

const (
	RoleTrainee = "TRAINEE"
	RoleCurator = "CURATOR"
	RoleExpert  = "EXPERT"
	RoleAdmin   = "ADMIN"
)

type User struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Username         string    `gorm:"size:255;index;not null" json:"username"`
	Email            string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash     string    `gorm:"size:255;not null" json:"-"`
	UnhashedPassword string    `gorm:"size:150" json:"-"`
	SystemRole       string    `gorm:"size:50;not null;default:'TRAINEE'" json:"system_role"`
	SocialURL        string    `gorm:"size:255" json:"social_url"`
	IsActive         bool      `gorm:"not null;default:true" json:"is_active"`
	IsStaff          bool      `gorm:"not null;default:false" json:"is_staff"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func ValidRole(role string) bool {
	switch role {
	case RoleTrainee, RoleCurator, RoleExpert, RoleAdmin:
		return true
	}
	return false
}
