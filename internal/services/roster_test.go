package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nemoguigrat/uralintern/internal/models"
	"github.com/nemoguigrat/uralintern/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeactivatingEventClosesStages(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	svc := NewRosterService(db, nil)
	ctx := context.Background()

	ev := fx.Event(true)
	a := fx.Stage(ev, true)
	b := fx.Stage(ev, true)
	other := fx.Stage(fx.Event(true), true)

	_, err := svc.SetEventActive(ctx, ev.ID, false)
	require.NoError(t, err)

	for _, id := range []uint{a.ID, b.ID} {
		var st models.Stage
		require.NoError(t, db.First(&st, id).Error)
		assert.False(t, st.IsActive, "stage %d", id)
	}
	var st models.Stage
	require.NoError(t, db.First(&st, other.ID).Error)
	assert.True(t, st.IsActive)

	active, err := svc.ActiveStages(ctx, nil)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, other.ID, active[0].ID)

	_, err = svc.SetEventActive(ctx, 9999, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStageCannotOpenUnderInactiveEvent(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	svc := NewRosterService(db, nil)
	ctx := context.Background()

	ev := fx.Event(false)

	_, err := svc.CreateStage(ctx, StageInput{Name: "Защита", EventID: ev.ID, Date: time.Now(), IsActive: true})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "is_active", verr.Field)

	stage, err := svc.CreateStage(ctx, StageInput{Name: "Защита", EventID: ev.ID, Date: time.Now()})
	require.NoError(t, err)
	assert.False(t, stage.IsActive)

	_, err = svc.SetStageActive(ctx, stage.ID, true)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.SetEventActive(ctx, ev.ID, true)
	require.NoError(t, err)
	stage, err = svc.SetStageActive(ctx, stage.ID, true)
	require.NoError(t, err)
	assert.True(t, stage.IsActive)

	_, err = svc.CreateStage(ctx, StageInput{Name: "Защита", EventID: ev.ID})
	assert.ErrorIs(t, err, ErrValidation, "stage names are unique")

	_, err = svc.CreateStage(ctx, StageInput{Name: "Старт", EventID: 9999})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActiveStagesByEvent(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	svc := NewRosterService(db, nil)

	ev1, ev2 := fx.Event(true), fx.Event(true)
	s1 := fx.Stage(ev1, true)
	fx.Stage(ev1, false)
	fx.Stage(ev2, true)

	stages, err := svc.ActiveStages(context.Background(), &ev1.ID)
	require.NoError(t, err)
	require.Len(t, stages, 1)
	assert.Equal(t, s1.ID, stages[0].ID)
}

func TestCreateEvent(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewRosterService(db, nil)
	ctx := context.Background()

	_, err := svc.CreateEvent(ctx, "  ", time.Now(), true)
	assert.ErrorIs(t, err, ErrValidation)

	ev, err := svc.CreateEvent(ctx, "Весенняя стажировка", time.Now(), true)
	require.NoError(t, err)
	assert.True(t, ev.IsActive)

	_, err = svc.CreateEvent(ctx, "Весенняя стажировка", time.Now(), false)
	assert.ErrorIs(t, err, ErrValidation)

	events, err := svc.ListEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestTeams(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	svc := NewRosterService(db, nil)
	ctx := context.Background()
	_, curator := fx.Curator()

	team, err := svc.CreateTeam(ctx, "Альфа", &curator.ID)
	require.NoError(t, err)
	require.NotNil(t, team.CuratorID)

	_, err = svc.CreateTeam(ctx, "Альфа", nil)
	assert.ErrorIs(t, err, ErrValidation)

	missing := uint(9999)
	_, err = svc.CreateTeam(ctx, "Бета", &missing)
	assert.ErrorIs(t, err, ErrNotFound)

	team, err = svc.SetTeamCurator(ctx, team.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, team.CuratorID)

	trainee := fx.Trainee(nil)
	require.NoError(t, svc.AssignTrainee(ctx, trainee.ID, &team.ID))
	var stored models.Trainee
	require.NoError(t, db.First(&stored, trainee.ID).Error)
	require.NotNil(t, stored.TeamID)
	assert.Equal(t, team.ID, *stored.TeamID)

	assert.ErrorIs(t, svc.AssignTrainee(ctx, trainee.ID, &missing), ErrNotFound)
	assert.ErrorIs(t, svc.AssignTrainee(ctx, missing, nil), ErrNotFound)

	teams, err := svc.ListTeams(ctx)
	require.NoError(t, err)
	assert.Len(t, teams, 1)
}
