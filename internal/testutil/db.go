// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nemoguigrat/uralintern/internal/database"
	"github.com/nemoguigrat/uralintern/internal/models"

	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory SQLite database private to the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(database.Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Fixtures creates roster rows directly, bypassing the services.
type Fixtures struct {
	t  *testing.T
	db *gorm.DB
	n  int
}

func NewFixtures(t *testing.T, db *gorm.DB) *Fixtures {
	return &Fixtures{t: t, db: db}
}

func (f *Fixtures) next() int {
	f.n++
	return f.n
}

func (f *Fixtures) create(v interface{}) {
	f.t.Helper()
	if err := f.db.Create(v).Error; err != nil {
		f.t.Fatalf("create %T: %v", v, err)
	}
}

// User creates a user with the password "password123".
func (f *Fixtures) User(role string) *models.User {
	f.t.Helper()
	n := f.next()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("hash: %v", err)
	}
	u := &models.User{
		Username:     fmt.Sprintf("User Number%d", n),
		Email:        fmt.Sprintf("user%d@example.com", n),
		PasswordHash: string(hash),
		SystemRole:   role,
		IsActive:     true,
	}
	f.create(u)
	return u
}

func (f *Fixtures) Team() *models.Team {
	team := &models.Team{TeamName: fmt.Sprintf("team-%d", f.next())}
	f.create(team)
	return team
}

func (f *Fixtures) Trainee(team *models.Team) *models.Trainee {
	u := f.User(models.RoleTrainee)
	tr := &models.Trainee{UserID: u.ID, User: u, DateStart: time.Now()}
	if team != nil {
		tr.TeamID = &team.ID
	}
	if err := f.db.Omit("User").Create(tr).Error; err != nil {
		f.t.Fatalf("create trainee: %v", err)
	}
	return tr
}

func (f *Fixtures) Curator() (*models.User, *models.Curator) {
	u := f.User(models.RoleCurator)
	c := &models.Curator{UserID: u.ID}
	f.create(c)
	return u, c
}

func (f *Fixtures) Event(active bool) *models.Event {
	ev := &models.Event{EventName: fmt.Sprintf("event-%d", f.next()), Date: time.Now(), IsActive: active}
	f.create(ev)
	return ev
}

func (f *Fixtures) Stage(ev *models.Event, active bool) *models.Stage {
	st := &models.Stage{StageName: fmt.Sprintf("stage-%d", f.next()), EventID: ev.ID, Date: time.Now(), IsActive: active}
	f.create(st)
	return st
}
