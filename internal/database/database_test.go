package database

import (
	"context"
	"testing"

	"github.com/nemoguigrat/uralintern/internal/config"
	"github.com/nemoguigrat/uralintern/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAutoMigrateCreatesTables(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()

	AutoMigrate(db)

	for _, m := range Models() {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}
	assert.True(t, db.Migrator().HasIndex(&models.Grade{}, "idx_grade_rater_trainee_stage"))
}

func TestConnectRedis(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, ConnectRedis(ctx, &config.Config{}))

	mr := miniredis.RunT(t)
	rdb := ConnectRedis(ctx, &config.Config{RedisAddr: mr.Addr()})
	require.NotNil(t, rdb)
	defer rdb.Close()
	assert.NoError(t, rdb.Ping(ctx).Err())
}
