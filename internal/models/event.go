package models

import "time"

type Event struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventName string    `gorm:"size:150;uniqueIndex;not null" json:"event_name"`
	Date      time.Time `gorm:"type:date" json:"date"`
	IsActive  bool      `gorm:"not null;default:false" json:"is_active"`
	Stages    []Stage   `gorm:"foreignKey:EventID" json:"stages,omitempty"`
}

// Stage is a grading window of an event. It can be active only while its
// event is active.
type Stage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StageName string    `gorm:"size:150;uniqueIndex;not null" json:"stage_name"`
	EventID   uint      `gorm:"not null;index" json:"event"`
	Event     *Event    `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"-"`
	Date      time.Time `gorm:"type:date" json:"date"`
	IsActive  bool      `gorm:"not null;default:false" json:"is_active"`
}
