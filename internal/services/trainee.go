package services

import (
	"context"
	"fmt"

	"github.com/nemoguigrat/uralintern/internal/models"

	"gorm.io/gorm"
)

const noTeamName = "Без команды"

type TraineeService struct {
	db *gorm.DB
}

func NewTraineeService(db *gorm.DB) *TraineeService {
	return &TraineeService{db: db}
}

// TraineeCard is the short trainee view used in team listings.
type TraineeCard struct {
	ID         uint           `json:"id"`
	Username   string         `json:"username"`
	TeamName   string         `json:"team_name"`
	Internship string         `json:"internship"`
	Image      string         `json:"image"`
	SocialURL  string         `json:"social_url"`
	Event      *uint          `json:"event"`
	Stages     []models.Stage `json:"stages"`
}

type TeamView struct {
	Trainee TraineeCard   `json:"trainee"`
	Team    []TraineeCard `json:"team"`
}

func (s *TraineeService) Profile(ctx context.Context, id Identity) (*models.Trainee, error) {
	if !id.IsTrainee() {
		return nil, errNotTrainee()
	}
	var trainee models.Trainee
	err := s.db.WithContext(ctx).
		Preload("User").Preload("Team.Curator.User").Preload("Event").
		Where("user_id = ?", id.UserID).
		First(&trainee).Error
	if err != nil {
		return nil, lookupErr(err, "trainee")
	}
	return &trainee, nil
}

func (s *TraineeService) SetImage(ctx context.Context, id Identity, url string) (*models.Trainee, error) {
	trainee, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Trainee{}).Where("id = ?", trainee.ID).Update("image", url).Error; err != nil {
		return nil, err
	}
	trainee.Image = url
	return trainee, nil
}

// TeamMates returns the caller together with the other members of its team.
// Team is nil when the trainee has no team.
func (s *TraineeService) TeamMates(ctx context.Context, id Identity) (*TeamView, error) {
	me, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	stages, err := s.activeStagesByEvent(ctx)
	if err != nil {
		return nil, err
	}

	view := &TeamView{Trainee: card(me, stages)}
	if me.TeamID == nil {
		return view, nil
	}

	var mates []models.Trainee
	err = s.db.WithContext(ctx).
		Preload("User").Preload("Team").
		Where("team_id = ? AND id <> ?", *me.TeamID, me.ID).
		Order("id ASC").
		Find(&mates).Error
	if err != nil {
		return nil, err
	}
	view.Team = make([]TraineeCard, 0, len(mates))
	for i := range mates {
		view.Team = append(view.Team, card(&mates[i], stages))
	}
	return view, nil
}

// TeamsFor groups trainees by team name for staff. A curator sees only the
// teams it curates; experts and admins see everyone.
func (s *TraineeService) TeamsFor(ctx context.Context, id Identity) (map[string][]TraineeCard, error) {
	q := s.db.WithContext(ctx).Preload("User").Preload("Team")
	switch id.Role {
	case models.RoleTrainee:
		return nil, fmt.Errorf("%w: user is not an expert", ErrForbidden)
	case models.RoleCurator:
		var curator models.Curator
		if err := s.db.WithContext(ctx).Where("user_id = ?", id.UserID).First(&curator).Error; err != nil {
			return nil, lookupErr(err, "curator")
		}
		q = q.Where("team_id IN (?)", s.db.Model(&models.Team{}).Select("id").Where("curator_id = ?", curator.ID))
	case models.RoleExpert, models.RoleAdmin:
	default:
		return nil, ErrForbidden
	}

	var trainees []models.Trainee
	if err := q.Order("id ASC").Find(&trainees).Error; err != nil {
		return nil, err
	}
	stages, err := s.activeStagesByEvent(ctx)
	if err != nil {
		return nil, err
	}

	teams := make(map[string][]TraineeCard)
	for i := range trainees {
		c := card(&trainees[i], stages)
		teams[c.TeamName] = append(teams[c.TeamName], c)
	}
	return teams, nil
}

func (s *TraineeService) activeStagesByEvent(ctx context.Context) (map[uint][]models.Stage, error) {
	var stages []models.Stage
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("date ASC, id ASC").Find(&stages).Error; err != nil {
		return nil, err
	}
	byEvent := make(map[uint][]models.Stage)
	for _, st := range stages {
		byEvent[st.EventID] = append(byEvent[st.EventID], st)
	}
	return byEvent, nil
}

func card(t *models.Trainee, stages map[uint][]models.Stage) TraineeCard {
	c := TraineeCard{
		ID:         t.ID,
		TeamName:   noTeamName,
		Internship: t.Internship,
		Image:      t.Image,
		Event:      t.EventID,
		Stages:     []models.Stage{},
	}
	if t.User != nil {
		c.Username = t.User.Username
		c.SocialURL = t.User.SocialURL
	}
	if t.Team != nil {
		c.TeamName = t.Team.TeamName
	}
	if t.EventID != nil && stages[*t.EventID] != nil {
		c.Stages = stages[*t.EventID]
	}
	return c
}

func errNotTrainee() error {
	return fmt.Errorf("%w: user is not a trainee", ErrForbidden)
}
