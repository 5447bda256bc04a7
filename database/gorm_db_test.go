package database

import (
	"path/filepath"
	"testing"

	"github.com/camden-git/pathclassifier/config"
	"github.com/camden-git/pathclassifier/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t,
		"file:test.db?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate",
		sqliteDSN("test.db"))
	assert.Equal(t,
		"file:x.db?mode=rwc&_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate",
		sqliteDSN("file:x.db?mode=rwc"))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, parseLogLevel("silent"))
	assert.Equal(t, logger.Info, parseLogLevel("INFO"))
	assert.Equal(t, logger.Warn, parseLogLevel("whatever"))
}

func TestInitGormDB_UnknownDriver(t *testing.T) {
	_, err := InitGormDB(Options{Driver: "oracle"})
	assert.Error(t, err)
}

func TestAutoMigrate_UniqueContentHash(t *testing.T) {
	db, err := InitGormDB(Options{Path: filepath.Join(t.TempDir(), "test.db"), LogLevel: "silent"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	require.NoError(t, AutoMigrateModels(db))

	first := models.Image{ContentHash: "0123456789abcdef0123456789abcdef", Thumbnail: []byte{1}}
	require.NoError(t, db.Create(&first).Error)

	dup := models.Image{ContentHash: first.ContentHash, Thumbnail: []byte{2}}
	assert.Error(t, db.Create(&dup).Error, "content_hash must be unique")
}

func TestAutoMigrate_CascadeFromImage(t *testing.T) {
	db, err := InitGormDB(Options{Path: filepath.Join(t.TempDir(), "test.db"), LogLevel: "silent"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	require.NoError(t, AutoMigrateModels(db))

	user := models.User{Username: "u", PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	img := models.Image{ContentHash: "ffffffffffffffffffffffffffffffff", Thumbnail: []byte{1}}
	require.NoError(t, db.Create(&img).Error)
	label := models.Label{Text: "tumor"}
	require.NoError(t, db.Create(&label).Error)
	sub := models.Submission{ImageID: img.ID, UserID: user.ID, Filename: "a.png"}
	require.NoError(t, db.Create(&sub).Error)
	require.NoError(t, db.Create(&models.Score{SubmissionID: sub.ID, LabelID: label.ID, Score: 1}).Error)

	require.NoError(t, db.Delete(&models.Image{}, img.ID).Error)

	var subs, scores int64
	db.Model(&models.Submission{}).Count(&subs)
	db.Model(&models.Score{}).Count(&scores)
	assert.Zero(t, subs)
	assert.Zero(t, scores)
}

func TestCaseSensitiveColumns(t *testing.T) {
	assert.Empty(t, caseSensitiveColumns(config.DriverSQLite))

	stmts := caseSensitiveColumns(config.DriverMySQL)
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "ALTER TABLE labels")
	assert.Contains(t, stmts[0], "utf8mb4_bin")
}

func TestAutoMigrate_LabelTextIsCaseSensitive(t *testing.T) {
	db, err := InitGormDB(Options{Path: filepath.Join(t.TempDir(), "test.db"), LogLevel: "silent"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	require.NoError(t, AutoMigrateModels(db))

	require.NoError(t, db.Create(&models.Label{Text: "Tumor"}).Error)
	require.NoError(t, db.Create(&models.Label{Text: "tumor"}).Error)

	var n int64
	require.NoError(t, db.Model(&models.Label{}).Where("text = ?", "tumor").Count(&n).Error)
	assert.EqualValues(t, 1, n)
}
