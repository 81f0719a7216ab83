package services

import (
	"context"
	"testing"

	"github.com/nemoguigrat/uralintern/internal/models"
	"github.com/nemoguigrat/uralintern/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCreateUserWithProfile(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewUserService(db, nil, nil)
	ctx := context.Background()

	tests := []struct {
		role    string
		profile interface{}
	}{
		{models.RoleTrainee, &models.Trainee{}},
		{models.RoleCurator, &models.Curator{}},
		{models.RoleExpert, &models.Expert{}},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			user, err := svc.CreateUserWithProfile(ctx, UserInput{
				Username: "Петров Пётр",
				Email:    tt.role + "@Example.com ",
				Password: "password123",
				Role:     tt.role,
			})
			require.NoError(t, err)
			assert.True(t, user.IsActive)
			assert.Equal(t, normalizeEmail(tt.role+"@example.com"), user.Email)

			var count int64
			require.NoError(t, db.Model(tt.profile).Where("user_id = ?", user.ID).Count(&count).Error)
			assert.Equal(t, int64(1), count)
		})
	}
}

func TestCreateUserGeneratesPassword(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewUserService(db, nil, nil)

	user, err := svc.CreateUserWithProfile(context.Background(), UserInput{
		Username: "Сидорова Анна",
		Email:    "anna@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTrainee, user.SystemRole)
	assert.GreaterOrEqual(t, len(user.UnhashedPassword), 8)
	assert.LessOrEqual(t, len(user.UnhashedPassword), 12)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(user.UnhashedPassword)))
}

func TestCreateUserValidation(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewUserService(db, nil, nil)
	ctx := context.Background()

	_, err := svc.CreateUserWithProfile(ctx, UserInput{Username: "Иванов Иван", Email: "ivan@example.com", Password: "password123"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		in    UserInput
		field string
	}{
		{"single word name", UserInput{Username: "Иван", Email: "a@example.com"}, "username"},
		{"empty name", UserInput{Username: "  ", Email: "a@example.com"}, "username"},
		{"bad email", UserInput{Username: "Иван Иванов", Email: "nope"}, "email"},
		{"unknown role", UserInput{Username: "Иван Иванов", Email: "b@example.com", Role: "JANITOR"}, "system_role"},
		{"duplicate email", UserInput{Username: "Иван Иванов", Email: "IVAN@example.com"}, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateUserWithProfile(ctx, tt.in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestDeleteUserAndProfile(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	svc := NewUserService(db, nil, nil)
	ctx := context.Background()

	ev := fx.Event(true)
	stage := fx.Stage(ev, true)
	trainee := fx.Trainee(nil)
	other := fx.Trainee(nil)

	grades := NewGradeService(db, nil, nil)
	self := Identity{UserID: trainee.UserID, Role: models.RoleTrainee}
	_, err := grades.UpsertGrade(ctx, self, GradeInput{TraineeID: other.ID, StageID: stage.ID, Scores: Scores{1: intp(1)}})
	require.NoError(t, err)
	_, err = grades.UpsertGrade(ctx, Identity{UserID: other.UserID, Role: models.RoleTrainee},
		GradeInput{TraineeID: trainee.ID, StageID: stage.ID, Scores: Scores{1: intp(1)}})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTrainee(ctx, trainee.ID))

	var n int64
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", trainee.UserID).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.Trainee{}).Where("id = ?", trainee.ID).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.Grade{}).Count(&n).Error)
	assert.Zero(t, n, "given and received grades are removed")

	assert.ErrorIs(t, svc.DeleteTrainee(ctx, trainee.ID), ErrNotFound)
	assert.ErrorIs(t, svc.DeleteUserAndProfile(ctx, 9999), ErrNotFound)
}

func TestDeleteCuratorDetachesTeams(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx := context.Background()

	user, curator := fx.Curator()
	team, err := NewRosterService(db, nil).CreateTeam(ctx, "Гамма", &curator.ID)
	require.NoError(t, err)

	require.NoError(t, NewUserService(db, nil, nil).DeleteUserAndProfile(ctx, user.ID))

	var stored models.Team
	require.NoError(t, db.First(&stored, team.ID).Error)
	assert.Nil(t, stored.CuratorID)
}

func TestListUsersAndEnsureAdmin(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	svc := NewUserService(db, nil, nil)
	ctx := context.Background()

	fx.User(models.RoleTrainee)
	fx.User(models.RoleExpert)

	require.NoError(t, svc.EnsureAdmin(ctx, "admin@example.com", "secret-password"))
	require.NoError(t, svc.EnsureAdmin(ctx, "admin@example.com", "secret-password"))
	require.NoError(t, svc.EnsureAdmin(ctx, "", ""))

	admins, err := svc.ListUsers(ctx, models.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.True(t, admins[0].IsStaff)

	all, err := svc.ListUsers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
