package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/nemoguigrat/uralintern/internal/models"
	"github.com/nemoguigrat/uralintern/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func seedExport(t *testing.T) (*ExportService, *models.Trainee, *models.Stage) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)

	team := fx.Team()
	ev := fx.Event(true)
	stage := fx.Stage(ev, true)
	trainee := fx.Trainee(team)
	expert := fx.User(models.RoleExpert)

	grades := NewGradeService(db, nil, nil)
	grades.now = func() time.Time { return time.Date(2024, 4, 2, 15, 4, 0, 0, time.UTC) }
	_, err := grades.UpsertGrade(context.Background(), Identity{UserID: expert.ID, Role: models.RoleExpert}, GradeInput{
		TraineeID: trainee.ID,
		StageID:   stage.ID,
		Scores:    Scores{1: intp(2), 3: intp(-1)},
	})
	require.NoError(t, err)

	return NewExportService(db), trainee, stage
}

func TestExportRows(t *testing.T) {
	svc, trainee, stage := seedExport(t)

	rows, err := svc.Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, gradeExportHeaders, rows[0])

	row := rows[1]
	assert.Equal(t, trainee.User.Username, row[1])
	assert.Equal(t, stage.StageName, row[3])
	assert.Equal(t, []string{"2", "", "-1", ""}, row[4:8])
	assert.Equal(t, "02.04.2024 15:04", row[8])
}

func TestWriteCSV(t *testing.T) {
	svc, _, _ := seedExport(t)

	var buf bytes.Buffer
	require.NoError(t, svc.WriteCSV(context.Background(), &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Имя оценщика", records[0][0])
}

func TestWriteXLSX(t *testing.T) {
	svc, _, stage := seedExport(t)

	var buf bytes.Buffer
	require.NoError(t, svc.WriteXLSX(context.Background(), &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, gradeExportHeaders, rows[0])
	assert.Equal(t, stage.StageName, rows[1][3])
}
