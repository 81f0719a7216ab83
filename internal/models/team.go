package models

type Team struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	TeamName  string   `gorm:"size:90;uniqueIndex;not null" json:"team_name"`
	CuratorID *uint    `gorm:"index" json:"curator_id"`
	Curator   *Curator `gorm:"foreignKey:CuratorID;constraint:OnDelete:SET NULL" json:"curator,omitempty"`
}
