package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nemoguigrat/uralintern/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Scores maps a competence slot (1..4) to its new value. A slot missing from
// the map keeps its stored value; a nil value clears it.
type Scores map[int]*int

type GradeInput struct {
	TraineeID uint
	StageID   uint
	Scores    Scores
}

// GradeResult is the outcome of one item of a batch upsert.
type GradeResult struct {
	Index int           `json:"index"`
	Grade *models.Grade `json:"grade,omitempty"`
	Err   error         `json:"-"`
}

// GradeNotifier is told about every successful grade write.
type GradeNotifier interface {
	GradeReceived(traineeUserID uint, grade models.Grade)
}

type GradeService struct {
	db       *gorm.DB
	cache    ReportCache
	notifier GradeNotifier
	now      func() time.Time
}

func NewGradeService(db *gorm.DB, cache ReportCache, notifier GradeNotifier) *GradeService {
	if cache == nil {
		cache = noopReportCache{}
	}
	return &GradeService{db: db, cache: cache, notifier: notifier, now: time.Now}
}

func (in GradeInput) Validate() error {
	if in.TraineeID == 0 {
		return invalid("trainee", "field is required")
	}
	if in.StageID == 0 {
		return invalid("stage", "field is required")
	}

	unknown, hasUnknown := 0, false
	for k := range in.Scores {
		if (k < 1 || k > models.CompetenceCount) && (!hasUnknown || k < unknown) {
			unknown, hasUnknown = k, true
		}
	}
	if hasUnknown {
		return invalid(fmt.Sprintf("competence%d", unknown), "unknown competence")
	}
	for k := 1; k <= models.CompetenceCount; k++ {
		if v := in.Scores[k]; v != nil && (*v < models.MinScore || *v > models.MaxScore) {
			return invalid(fmt.Sprintf("competence%d", k), fmt.Sprintf("score must be between %d and %d", models.MinScore, models.MaxScore))
		}
	}
	return nil
}

// AuthorizeGradeWrite reports whether rater may grade the trainee on the
// stage: the rater must be authenticated, both rows must exist and the stage
// must be open.
func (s *GradeService) AuthorizeGradeWrite(ctx context.Context, rater Identity, traineeID, stageID uint) error {
	if !rater.Authenticated() {
		return fmt.Errorf("%w: authentication required", ErrForbidden)
	}

	db := s.db.WithContext(ctx)
	var stage models.Stage
	if err := db.First(&stage, stageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("stage")
		}
		return err
	}
	if !stage.IsActive {
		return ErrStageClosed
	}

	var count int64
	if err := db.Model(&models.Trainee{}).Where("id = ?", traineeID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return notFound("trainee")
	}
	return nil
}

// UpsertGrade writes the rater's grade for (trainee, stage). The rater is
// always the authenticated caller. At most one row exists per
// (rater, trainee, stage): an existing row is updated in place.
func (s *GradeService) UpsertGrade(ctx context.Context, rater Identity, in GradeInput) (*models.Grade, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.AuthorizeGradeWrite(ctx, rater, in.TraineeID, in.StageID); err != nil {
		return nil, err
	}

	grade, traineeUserID, err := s.upsert(ctx, rater.UserID, in)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, grade.TraineeID)
	if s.notifier != nil {
		s.notifier.GradeReceived(traineeUserID, *grade)
	}
	slog.Info("grade saved", "grade_id", grade.ID, "rater_id", grade.UserID,
		"trainee_id", grade.TraineeID, "stage_id", grade.StageID)
	return grade, nil
}

// UpsertGrades applies UpsertGrade to every item independently. A failing
// item does not affect the others.
func (s *GradeService) UpsertGrades(ctx context.Context, rater Identity, items []GradeInput) []GradeResult {
	results := make([]GradeResult, len(items))
	for i, in := range items {
		grade, err := s.UpsertGrade(ctx, rater, in)
		results[i] = GradeResult{Index: i, Grade: grade, Err: err}
	}
	return results
}

const gradeInsertSavepoint = "grade_insert"

func (s *GradeService) upsert(ctx context.Context, raterID uint, in GradeInput) (*models.Grade, uint, error) {
	var grade models.Grade
	var trainee models.Trainee

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&trainee, in.TraineeID).Error; err != nil {
			return lookupErr(err, "trainee")
		}

		found, err := lockGrade(tx, raterID, in, &grade)
		if err != nil {
			return err
		}
		if !found {
			if err := tx.SavePoint(gradeInsertSavepoint).Error; err != nil {
				return err
			}
			grade = models.Grade{
				UserID:    raterID,
				TraineeID: in.TraineeID,
				StageID:   in.StageID,
				TeamID:    trainee.TeamID,
				Date:      s.now(),
			}
			for k, v := range in.Scores {
				grade.SetCompetence(k, v)
			}
			err := tx.Omit(clause.Associations).Create(&grade).Error
			if !errors.Is(err, gorm.ErrDuplicatedKey) {
				return err
			}

			// A concurrent insert won the race: update its row instead.
			slog.Warn("grade insert raced, retrying as update",
				"rater_id", raterID, "trainee_id", in.TraineeID, "stage_id", in.StageID)
			if err := tx.RollbackTo(gradeInsertSavepoint).Error; err != nil {
				return err
			}
			found, err = lockGrade(tx, raterID, in, &grade)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("grade for rater %d, trainee %d, stage %d vanished after conflict", raterID, in.TraineeID, in.StageID)
			}
		}

		changes := map[string]interface{}{
			"team_id": trainee.TeamID,
			"date":    s.now(),
		}
		for k, v := range in.Scores {
			changes[fmt.Sprintf("competence%d", k)] = v
			grade.SetCompetence(k, v)
		}
		grade.TeamID = trainee.TeamID
		grade.Date = changes["date"].(time.Time)
		return tx.Model(&models.Grade{}).Where("id = ?", grade.ID).Updates(changes).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return &grade, trainee.UserID, nil
}

// lockGrade loads the (rater, trainee, stage) row into grade, locking it for
// the rest of the transaction.
func lockGrade(tx *gorm.DB, raterID uint, in GradeInput, grade *models.Grade) (bool, error) {
	*grade = models.Grade{}
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND trainee_id = ? AND stage_id = ?", raterID, in.TraineeID, in.StageID).
		First(grade).Error
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, nil
	}
	return false, err
}

// GradesReceived lists the grades given to the calling trainee.
func (s *GradeService) GradesReceived(ctx context.Context, id Identity) ([]models.Grade, error) {
	if !id.IsTrainee() {
		return nil, errNotTrainee()
	}
	grades := []models.Grade{}
	err := s.db.WithContext(ctx).
		Where("trainee_id IN (?)", s.db.Model(&models.Trainee{}).Select("id").Where("user_id = ?", id.UserID)).
		Order("date DESC, id DESC").
		Find(&grades).Error
	if err != nil {
		return nil, err
	}
	return grades, nil
}

// GradesGiven lists the grades the calling trainee has submitted.
func (s *GradeService) GradesGiven(ctx context.Context, id Identity) ([]models.Grade, error) {
	if !id.IsTrainee() {
		return nil, errNotTrainee()
	}
	grades := []models.Grade{}
	if err := s.db.WithContext(ctx).Where("user_id = ?", id.UserID).Order("date DESC, id DESC").Find(&grades).Error; err != nil {
		return nil, err
	}
	return grades, nil
}

func (s *GradeService) Descriptions(ctx context.Context) ([]models.GradeDescription, error) {
	descriptions := []models.GradeDescription{}
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&descriptions).Error; err != nil {
		return nil, err
	}
	return descriptions, nil
}

func (s *GradeService) CreateDescription(ctx context.Context, name, description string) (*models.GradeDescription, error) {
	if name == "" {
		return nil, invalid("name", "field is required")
	}
	d := models.GradeDescription{Name: name, Description: description}
	if err := s.db.WithContext(ctx).Create(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}
