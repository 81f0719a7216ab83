package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nemoguigrat/uralintern/internal/models"

	"gorm.io/gorm"
)

// RosterService manages events, stages and teams.
type RosterService struct {
	db    *gorm.DB
	cache ReportCache
}

func NewRosterService(db *gorm.DB, cache ReportCache) *RosterService {
	if cache == nil {
		cache = noopReportCache{}
	}
	return &RosterService{db: db, cache: cache}
}

func (s *RosterService) CreateEvent(ctx context.Context, name string, date time.Time, active bool) (*models.Event, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("event_name", "event name is required")
	}
	event := models.Event{EventName: name, Date: date, IsActive: active}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, uniqueViolation(err, "event_name", "event with this name already exists")
	}
	return &event, nil
}

// SetEventActive toggles the event. Deactivating an event closes all of its
// stages in the same transaction.
func (s *RosterService) SetEventActive(ctx context.Context, eventID uint, active bool) (*models.Event, error) {
	var event models.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&event, eventID).Error; err != nil {
			return lookupErr(err, "event")
		}
		if err := tx.Model(&event).Update("is_active", active).Error; err != nil {
			return err
		}
		if active {
			return nil
		}
		return tx.Model(&models.Stage{}).Where("event_id = ?", eventID).Update("is_active", false).Error
	})
	if err != nil {
		return nil, err
	}
	slog.Info("event state changed", "event_id", eventID, "active", active)
	return &event, nil
}

func (s *RosterService) ListEvents(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := s.db.WithContext(ctx).Preload("Stages").Order("date DESC, id ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

type StageInput struct {
	Name     string
	EventID  uint
	Date     time.Time
	IsActive bool
}

func (s *RosterService) CreateStage(ctx context.Context, in StageInput) (*models.Stage, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("stage_name", "stage name is required")
	}

	var stage models.Stage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.First(&event, in.EventID).Error; err != nil {
			return lookupErr(err, "event")
		}
		if in.IsActive && !event.IsActive {
			return errInactiveEvent()
		}
		stage = models.Stage{StageName: name, EventID: event.ID, Date: in.Date, IsActive: in.IsActive}
		return tx.Omit("Event").Create(&stage).Error
	})
	if err != nil {
		return nil, uniqueViolation(err, "stage_name", "stage with this name already exists")
	}
	return &stage, nil
}

// SetStageActive opens or closes a stage. A stage of an inactive event
// cannot be opened.
func (s *RosterService) SetStageActive(ctx context.Context, stageID uint, active bool) (*models.Stage, error) {
	var stage models.Stage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Event").First(&stage, stageID).Error; err != nil {
			return lookupErr(err, "stage")
		}
		if active && (stage.Event == nil || !stage.Event.IsActive) {
			return errInactiveEvent()
		}
		stage.IsActive = active
		return tx.Model(&models.Stage{}).Where("id = ?", stage.ID).Update("is_active", active).Error
	})
	if err != nil {
		return nil, err
	}
	slog.Info("stage state changed", "stage_id", stageID, "active", active)
	return &stage, nil
}

// ActiveStages lists open stages, optionally limited to one event.
func (s *RosterService) ActiveStages(ctx context.Context, eventID *uint) ([]models.Stage, error) {
	q := s.db.WithContext(ctx).Where("is_active = ?", true)
	if eventID != nil {
		q = q.Where("event_id = ?", *eventID)
	}
	stages := []models.Stage{}
	if err := q.Order("date ASC, id ASC").Find(&stages).Error; err != nil {
		return nil, err
	}
	return stages, nil
}

func (s *RosterService) ListStages(ctx context.Context) ([]models.Stage, error) {
	stages := []models.Stage{}
	if err := s.db.WithContext(ctx).Order("event_id ASC, date ASC").Find(&stages).Error; err != nil {
		return nil, err
	}
	return stages, nil
}

func (s *RosterService) CreateTeam(ctx context.Context, name string, curatorID *uint) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("team_name", "team name is required")
	}
	var team models.Team
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkCurator(tx, curatorID); err != nil {
			return err
		}
		team = models.Team{TeamName: name, CuratorID: curatorID}
		return tx.Omit("Curator").Create(&team).Error
	})
	if err != nil {
		return nil, uniqueViolation(err, "team_name", "team with this name already exists")
	}
	return &team, nil
}

func (s *RosterService) SetTeamCurator(ctx context.Context, teamID uint, curatorID *uint) (*models.Team, error) {
	var team models.Team
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&team, teamID).Error; err != nil {
			return lookupErr(err, "team")
		}
		if err := checkCurator(tx, curatorID); err != nil {
			return err
		}
		team.CuratorID = curatorID
		return tx.Model(&models.Team{}).Where("id = ?", team.ID).Update("curator_id", curatorID).Error
	})
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// AssignTrainee moves a trainee to a team; nil removes it from any team.
// Existing grades keep their team until they are written again, but the
// trainee's team rating changes, so its cached report is dropped.
func (s *RosterService) AssignTrainee(ctx context.Context, traineeID uint, teamID *uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var trainee models.Trainee
		if err := tx.First(&trainee, traineeID).Error; err != nil {
			return lookupErr(err, "trainee")
		}
		if teamID != nil {
			var team models.Team
			if err := tx.First(&team, *teamID).Error; err != nil {
				return lookupErr(err, "team")
			}
		}
		return tx.Model(&models.Trainee{}).Where("id = ?", trainee.ID).Update("team_id", teamID).Error
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx, traineeID)
	return nil
}

func (s *RosterService) ListTeams(ctx context.Context) ([]models.Team, error) {
	teams := []models.Team{}
	if err := s.db.WithContext(ctx).Preload("Curator.User").Order("team_name ASC").Find(&teams).Error; err != nil {
		return nil, err
	}
	return teams, nil
}

func checkCurator(tx *gorm.DB, curatorID *uint) error {
	if curatorID == nil {
		return nil
	}
	var curator models.Curator
	if err := tx.First(&curator, *curatorID).Error; err != nil {
		return lookupErr(err, "curator")
	}
	return nil
}

func errInactiveEvent() error {
	return invalid("is_active", "cannot activate a stage of an inactive event")
}

func uniqueViolation(err error, field, message string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return invalid(field, message)
	}
	return err
}
