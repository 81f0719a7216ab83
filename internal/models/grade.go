package models

import "time"

const (
	CompetenceCount = 4
	MinScore        = -1
	MaxScore        = 2
)

// Grade is one ledger row. There is at most one row per
// (rater, trainee, stage); TeamID is the trainee's team at the last write.
type Grade struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_grade_rater_trainee_stage" json:"user"`
	User        *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	TraineeID   uint      `gorm:"not null;uniqueIndex:idx_grade_rater_trainee_stage;index" json:"trainee"`
	Trainee     *Trainee  `gorm:"foreignKey:TraineeID;constraint:OnDelete:CASCADE" json:"-"`
	TeamID      *uint     `gorm:"index" json:"team"`
	Team        *Team     `gorm:"foreignKey:TeamID;constraint:OnDelete:SET NULL" json:"-"`
	StageID     uint      `gorm:"not null;uniqueIndex:idx_grade_rater_trainee_stage" json:"stage"`
	Stage       *Stage    `gorm:"foreignKey:StageID;constraint:OnDelete:CASCADE" json:"-"`
	Competence1 *int      `json:"competence1"`
	Competence2 *int      `json:"competence2"`
	Competence3 *int      `json:"competence3"`
	Competence4 *int      `json:"competence4"`
	Date        time.Time `json:"date"`
}

// Competence returns the score for slot k (1..4).
func (g *Grade) Competence(k int) *int {
	switch k {
	case 1:
		return g.Competence1
	case 2:
		return g.Competence2
	case 3:
		return g.Competence3
	case 4:
		return g.Competence4
	}
	return nil
}

func (g *Grade) SetCompetence(k int, v *int) {
	switch k {
	case 1:
		g.Competence1 = v
	case 2:
		g.Competence2 = v
	case 3:
		g.Competence3 = v
	case 4:
		g.Competence4 = v
	}
}

type GradeDescription struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:150;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
}
