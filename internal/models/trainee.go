package models

import "time"

type Trainee struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	User        *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Internship  string    `gorm:"size:150" json:"internship"`
	Course      *int      `json:"course"`
	Speciality  string    `gorm:"size:150" json:"speciality"`
	Institution string    `gorm:"size:150" json:"institution"`
	Role        string    `gorm:"size:100" json:"role"`
	TeamID      *uint     `gorm:"index" json:"team_id"`
	Team        *Team     `gorm:"foreignKey:TeamID;constraint:OnDelete:SET NULL" json:"team,omitempty"`
	CuratorID   *uint     `gorm:"index" json:"curator_id"`
	EventID     *uint     `gorm:"index" json:"event_id"`
	Event       *Event    `gorm:"foreignKey:EventID;constraint:OnDelete:SET NULL" json:"event,omitempty"`
	Image       string    `gorm:"size:255" json:"image"`
	DateStart   time.Time `gorm:"type:date" json:"date_start"`
}
