package services

import (
	"context"
	"math"

	"github.com/nemoguigrat/uralintern/internal/models"

	"gorm.io/gorm"
)

// Rating holds the mean score per competence.
type Rating struct {
	Competence1 float64 `json:"competence1"`
	Competence2 float64 `json:"competence2"`
	Competence3 float64 `json:"competence3"`
	Competence4 float64 `json:"competence4"`
}

type Report struct {
	General Rating `json:"general"`
	Self    Rating `json:"self"`
	Team    Rating `json:"team"`
	Expert  Rating `json:"expert"`
}

type RatingService struct {
	db    *gorm.DB
	cache ReportCache
}

func NewRatingService(db *gorm.DB, cache ReportCache) *RatingService {
	if cache == nil {
		cache = noopReportCache{}
	}
	return &RatingService{db: db, cache: cache}
}

// Aggregate averages each competence over all grades, counting an empty
// score as 0. The mean is rounded to two decimals; no grades yield zeros.
func (s *RatingService) Aggregate(grades []models.Grade) Rating {
	if len(grades) == 0 {
		return Rating{}
	}

	var sums [models.CompetenceCount]int
	for i := range grades {
		for k := 1; k <= models.CompetenceCount; k++ {
			if v := grades[i].Competence(k); v != nil {
				sums[k-1] += *v
			}
		}
	}

	n := float64(len(grades))
	return Rating{
		Competence1: round2(float64(sums[0]) / n),
		Competence2: round2(float64(sums[1]) / n),
		Competence3: round2(float64(sums[2]) / n),
		Competence4: round2(float64(sums[3]) / n),
	}
}

// BuildReport splits the trainee's grades into the general, self, team and
// expert views. The team view holds grades written while the trainee was in
// its current team; for a trainee without a team, grades written while it
// had none. grades must have User preloaded for the expert view.
func (s *RatingService) BuildReport(trainee *models.Trainee, grades []models.Grade) *Report {
	var general, self, team, expert []models.Grade
	for _, g := range grades {
		if g.TraineeID != trainee.ID {
			continue
		}
		general = append(general, g)
		if g.UserID == trainee.UserID {
			self = append(self, g)
		}
		if sameTeam(g.TeamID, trainee.TeamID) {
			team = append(team, g)
		}
		if g.User != nil && g.User.SystemRole != models.RoleTrainee {
			expert = append(expert, g)
		}
	}

	return &Report{
		General: s.Aggregate(general),
		Self:    s.Aggregate(self),
		Team:    s.Aggregate(team),
		Expert:  s.Aggregate(expert),
	}
}

// Report builds the rating report of the calling trainee.
func (s *RatingService) Report(ctx context.Context, id Identity) (*Report, error) {
	if !id.IsTrainee() {
		return nil, errNotTrainee()
	}

	var trainee models.Trainee
	if err := s.db.WithContext(ctx).Where("user_id = ?", id.UserID).First(&trainee).Error; err != nil {
		return nil, lookupErr(err, "trainee")
	}

	if cached, ok := s.cache.Get(ctx, trainee.ID); ok {
		return cached, nil
	}

	var grades []models.Grade
	if err := s.db.WithContext(ctx).Preload("User").Where("trainee_id = ?", trainee.ID).Find(&grades).Error; err != nil {
		return nil, err
	}

	report := s.BuildReport(&trainee, grades)
	s.cache.Set(ctx, trainee.ID, report)
	return report, nil
}

func sameTeam(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
