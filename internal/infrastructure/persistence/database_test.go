package persistence

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tippool/backend/internal/infrastructure/config"
)

func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return &Database{DB: gormDB}, mock, mockDB
}

func TestDatabase_WithLocation(t *testing.T) {
	type TipGroup struct {
		ID         uint
		LocationID string
		Name       string
	}

	t.Run("filters queries by location_id", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		locationID := "loc-downtown"
		mock.ExpectQuery(`SELECT \* FROM "tip_groups" WHERE location_id = \$1`).
			WithArgs(locationID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "location_id", "name"}).
				AddRow(1, locationID, "friday dinner shift"))

		var groups []TipGroup
		err := db.WithLocation(locationID).Find(&groups).Error
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, locationID, groups[0].LocationID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("leaves the shared DB handle unscoped", func(t *testing.T) {
		db, _, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		original := db.DB
		scoped := db.WithLocation("loc-airport")

		assert.NotEqual(t, original, scoped)
		assert.Equal(t, original, db.DB)
	})

	t.Run("panics on empty location ID", func(t *testing.T) {
		db, _, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		assert.Panics(t, func() {
			db.WithLocation("")
		})
	})

	t.Run("binds the location ID as a parameter", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		// A hostile location ID must reach the driver as a bind value,
		// never be spliced into the SQL text.
		locationID := "loc'; DROP TABLE worker_balances; --"
		mock.ExpectQuery(`SELECT \* FROM "tip_groups" WHERE location_id = \$1`).
			WithArgs(locationID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "location_id", "name"}))

		var groups []TipGroup
		err := db.WithLocation(locationID).Find(&groups).Error
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("composes with further query clauses", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		type TipOutRule struct {
			ID         uint
			LocationID string
			Name       string
			Active     bool
		}

		locationID := "loc-downtown"
		mock.ExpectQuery(`SELECT \* FROM "tip_out_rules" WHERE location_id = \$1 AND active = \$2`).
			WithArgs(locationID, true).
			WillReturnRows(sqlmock.NewRows([]string{"id", "location_id", "name", "active"}).
				AddRow(1, locationID, "server to busser", true))

		var rules []TipOutRule
		err := db.WithLocation(locationID).Where("active = ?", true).Find(&rules).Error
		require.NoError(t, err)
		require.Len(t, rules, 1)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("composes with ordering and pagination", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		locationID := "loc-airport"
		mock.ExpectQuery(`SELECT \* FROM "tip_groups" WHERE location_id = \$1 ORDER BY name ASC LIMIT \$2 OFFSET \$3`).
			WithArgs(locationID, 10, 5).
			WillReturnRows(sqlmock.NewRows([]string{"id", "location_id", "name"}).
				AddRow(6, locationID, "brunch crew"))

		var groups []TipGroup
		err := db.WithLocation(locationID).Order("name ASC").Limit(10).Offset(5).Find(&groups).Error
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("scopes for two locations are independent", func(t *testing.T) {
		db, _, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		downtown := db.WithLocation("loc-downtown")
		airport := db.WithLocation("loc-airport")

		assert.NotEqual(t, downtown, airport)
	})
}

func TestDatabase_Transaction(t *testing.T) {
	type WorkerBalance struct {
		ID       uint
		WorkerID string
	}

	t.Run("commits when fn succeeds", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		// GORM inserts through Query on postgres to capture RETURNING.
		mock.ExpectQuery(`INSERT INTO "worker_balances"`).
			WithArgs("worker-7").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectCommit()

		err := db.Transaction(func(tx *gorm.DB) error {
			return tx.Create(&WorkerBalance{WorkerID: "worker-7"}).Error
		})
		assert.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when fn fails", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := db.Transaction(func(tx *gorm.DB) error {
			return assert.AnError
		})
		assert.Error(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDatabase_Ping(t *testing.T) {
	t.Run("reports a live connection", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectPing()

		assert.NoError(t, db.Ping())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("with ping monitoring enabled", func(t *testing.T) {
		mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockDB.Close()

		// gorm.Open pings once during initialization.
		mock.ExpectPing()

		gormDB, err := gorm.Open(postgres.New(postgres.Config{
			Conn:       mockDB,
			DriverName: "postgres",
		}), &gorm.Config{
			SkipDefaultTransaction: true,
		})
		require.NoError(t, err)

		db := &Database{DB: gormDB}

		mock.ExpectPing()
		assert.NoError(t, db.Ping())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDatabase_Close(t *testing.T) {
	db, mock, _ := newMockDatabase(t)

	mock.ExpectClose()

	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Stats(t *testing.T) {
	db, _, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	stats, err := db.Stats()
	require.NoError(t, err)

	assert.GreaterOrEqual(t, stats.OpenConnections, 0)
	assert.GreaterOrEqual(t, stats.InUse, 0)
	assert.GreaterOrEqual(t, stats.Idle, 0)
	assert.GreaterOrEqual(t, stats.WaitCount, int64(0))
	assert.GreaterOrEqual(t, stats.WaitDuration, time.Duration(0))
}

func TestNewDatabase_Unreachable(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:         "127.0.0.1",
		Port:         1, // nothing listens here
		User:         "tippool",
		Password:     "tippool",
		DBName:       "tippool",
		SSLMode:      "disable",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}

	db, err := NewDatabase(&cfg)

	assert.Error(t, err)
	assert.Nil(t, db)
}
