package checks

import (
	"testing"

	"staysync/core/database"
	"staysync/core/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func TestCheckSchema_NilDB(t *testing.T) {
	report, err := CheckSchema(nil, store.Models())
	assert.Error(t, err)
	assert.Nil(t, report)
}

func TestCheckSchema_MigratedSQLite(t *testing.T) {
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))

	report, err := CheckSchema(db, store.Models())
	require.NoError(t, err)
	assert.True(t, report.Matched, "%+v", report)
	assert.Equal(t, "sqlite", report.Driver)
	assert.Len(t, report.Tables, len(store.Models()))
	assert.Equal(t, "ok", report.Tables["bookings"].Status)
}

func TestCheckSchema_MissingTable(t *testing.T) {
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&store.Account{}))

	report, err := CheckSchema(db, []any{store.Account{}, store.Feed{}})
	require.NoError(t, err)
	assert.False(t, report.Matched)
	assert.Contains(t, report.Errors, "Table feeds does not exist")
	assert.Equal(t, "ok", report.Tables["accounts"].Status)
}

func TestCheckSchema_MySQLMismatch(t *testing.T) {
	db, mock := setupMockDB(t)

	rows := sqlmock.NewRows([]string{"Field", "Type", "Null", "Key", "Default", "Extra"}).
		AddRow("id", "varchar(36)", "NO", "PRI", nil, "").
		AddRow("name", "int(11)", "NO", "", nil, "")
	mock.ExpectQuery("SHOW COLUMNS FROM `accounts`").WillReturnRows(rows)

	report, err := CheckSchema(db, []any{store.Account{}})
	require.NoError(t, err)
	assert.False(t, report.Matched)

	tbl := report.Tables["accounts"]
	assert.Equal(t, "error", tbl.Status)
	assert.Contains(t, tbl.MissingColumns, "created_at")
	require.Len(t, tbl.TypeMismatches, 1)
	assert.Equal(t, "name: expected varchar(191), got int(11)", tbl.TypeMismatches[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckSchema_NotATable(t *testing.T) {
	db, _ := setupMockDB(t)
	_, err := CheckSchema(db, []any{struct{}{}})
	assert.Error(t, err)
}

func TestParseGormTags(t *testing.T) {
	tag := "column:start_date;type:varchar(10);not null"
	assert.Equal(t, "start_date", parseGormColumn(tag))
	assert.Equal(t, "varchar(10)", parseGormType(tag))
	assert.Empty(t, parseGormType("column:id;primaryKey"))
}
