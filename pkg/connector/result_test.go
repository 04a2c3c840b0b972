package connector

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queryRows runs the canned query against a sqlmock handle and returns the
// live cursor for processRows.
func queryRows(t *testing.T, rows *sqlmock.Rows) *sql.Rows {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectQuery("SELECT").WillReturnRows(rows)
	out, err := db.Query("SELECT id, name FROM things")
	require.NoError(t, err)
	t.Cleanup(func() { out.Close() })
	return out
}

func TestProcessRows(t *testing.T) {
	rows := queryRows(t, sqlmock.NewRows([]string{"id", "name"}).
		AddRow(int64(1), "alpha").
		AddRow(int64(2), "beta"))

	result, err := processRows(rows, "SELECT id, name FROM things", 0, false)
	require.NoError(t, err)

	require.Len(t, result.Columns, 2)
	assert.Equal(t, "id", result.Columns[0].Name)
	assert.Equal(t, "name", result.Columns[1].Name)
	assert.Equal(t, 2, result.RowCount)
	assert.Len(t, result.Rows, 2)
	assert.Equal(t, int64(1), result.Rows[0][0])
	assert.Equal(t, "alpha", result.Rows[0][1])
	assert.False(t, result.Truncated)
	assert.Nil(t, result.TotalRowCount)
}

func TestProcessRows_Truncation(t *testing.T) {
	canned := sqlmock.NewRows([]string{"id", "name"})
	for i := 1; i <= 5; i++ {
		canned.AddRow(int64(i), "row")
	}
	rows := queryRows(t, canned)

	result, err := processRows(rows, "SELECT id, name FROM things", 3, false)
	require.NoError(t, err)

	assert.Equal(t, 3, result.RowCount)
	assert.Len(t, result.Rows, 3)
	assert.True(t, result.Truncated)
	require.NotNil(t, result.TotalRowCount)
	assert.Equal(t, 5, *result.TotalRowCount)
}

func TestProcessRows_ServerBoundedLeavesTotalUnset(t *testing.T) {
	// The statement was rewritten with a bound of maxRows+1, so the cursor
	// holds 4 rows no matter how many the query produces; the drain count
	// would be meaningless.
	canned := sqlmock.NewRows([]string{"id", "name"})
	for i := 1; i <= 4; i++ {
		canned.AddRow(int64(i), "row")
	}
	rows := queryRows(t, canned)

	result, err := processRows(rows, "SELECT id, name FROM things", 3, true)
	require.NoError(t, err)

	assert.Equal(t, 3, result.RowCount)
	assert.True(t, result.Truncated)
	assert.Nil(t, result.TotalRowCount)
}

func TestProcessRows_ExactLimitIsNotTruncated(t *testing.T) {
	canned := sqlmock.NewRows([]string{"id", "name"})
	for i := 1; i <= 3; i++ {
		canned.AddRow(int64(i), "row")
	}
	rows := queryRows(t, canned)

	result, err := processRows(rows, "SELECT id, name FROM things", 3, false)
	require.NoError(t, err)

	assert.Equal(t, 3, result.RowCount)
	assert.False(t, result.Truncated)
	assert.Nil(t, result.TotalRowCount)
}

func TestProcessRows_Empty(t *testing.T) {
	rows := queryRows(t, sqlmock.NewRows([]string{"id", "name"}))

	result, err := processRows(rows, "SELECT id, name FROM things", 10, false)
	require.NoError(t, err)

	assert.Equal(t, 0, result.RowCount)
	assert.NotNil(t, result.Rows)
	assert.Empty(t, result.Rows)
	assert.False(t, result.Truncated)
}

func TestIsTextualType(t *testing.T) {
	assert.True(t, isTextualType("NVARCHAR"))
	assert.True(t, isTextualType("nvarchar"))
	assert.True(t, isTextualType("DECIMAL"))
	assert.True(t, isTextualType("JSONB"))
	assert.False(t, isTextualType("VARBINARY"))
	assert.False(t, isTextualType("BLOB"))
}
