package connector

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataglade/dataglade-connect/pkg/apperrors"
)

func TestExtractPlaceholders(t *testing.T) {
	assert.Nil(t, ExtractPlaceholders("SELECT 1"))
	assert.Equal(t, []string{"id"}, ExtractPlaceholders("SELECT * FROM t WHERE id = {{id}}"))
	assert.Equal(t, []string{"a", "b"},
		ExtractPlaceholders("SELECT * FROM t WHERE x = {{ a }} AND y = {{b}} AND z = {{a}}"))
}

func TestBindPlaceholders_Named(t *testing.T) {
	bound, args, err := BindPlaceholders(
		"SELECT * FROM t WHERE id = {{id}} AND status = {{status}} OR alt = {{id}}",
		map[string]any{"id": 7, "status": "open"},
		ParamStyleNamed)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE id = @p1 AND status = @p2 OR alt = @p1", bound)
	require.Len(t, args, 2)
	assert.Equal(t, sql.Named("p1", 7), args[0])
	assert.Equal(t, sql.Named("p2", "open"), args[1])
}

func TestBindPlaceholders_Question(t *testing.T) {
	bound, args, err := BindPlaceholders(
		"SELECT * FROM t WHERE id = {{id}} OR alt = {{id}}",
		map[string]any{"id": 7},
		ParamStyleQuestion)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE id = ? OR alt = ?", bound)
	// Purely positional: the repeated name repeats its argument.
	assert.Equal(t, []any{7, 7}, args)
}

func TestBindPlaceholders_Dollar(t *testing.T) {
	bound, args, err := BindPlaceholders(
		"SELECT * FROM t WHERE a = {{a}} AND b = {{b}} AND a2 = {{a}}",
		map[string]any{"a": 1, "b": 2},
		ParamStyleDollar)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2 AND a2 = $1", bound)
	assert.Equal(t, []any{1, 2}, args)
}

func TestBindPlaceholders_MissingParameter(t *testing.T) {
	_, _, err := BindPlaceholders(
		"SELECT * FROM t WHERE id = {{id}}",
		nil,
		ParamStyleDollar)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrMissingParameter))
	assert.Contains(t, err.Error(), `"id"`)
}

func TestBindPlaceholders_IgnoresUnusedParams(t *testing.T) {
	bound, args, err := BindPlaceholders(
		"SELECT 1",
		map[string]any{"unused": true},
		ParamStyleDollar)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", bound)
	assert.Nil(t, args)
}
