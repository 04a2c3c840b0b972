package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dataglade/dataglade-connect/pkg/apperrors"
	"github.com/dataglade/dataglade-connect/pkg/config"
	"github.com/dataglade/dataglade-connect/pkg/connector"
	"github.com/dataglade/dataglade-connect/pkg/connector/postgres"
	"github.com/dataglade/dataglade-connect/pkg/models"
	"github.com/dataglade/dataglade-connect/pkg/testhelpers"
)

func newIntegrationRegistry(t *testing.T) *connector.Registry {
	t.Helper()

	cfg := &config.Config{
		Pool: config.PoolConfig{
			MaxPoolSize:       4,
			ConnectionTimeout: time.Minute,
			MaxConnectionAge:  time.Hour,
		},
		Query: config.QueryConfig{
			DefaultTimeout: 30 * time.Second,
			DefaultMaxRows: 1000,
		},
		Retry: config.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2,
		},
		CredentialsKey: testhelpers.TestCipherKey,
	}

	r, err := connector.NewRegistry(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	r.RegisterConnector(models.DialectPostgres, postgres.New)
	t.Cleanup(func() { r.CloseAllConnections() })
	return r
}

func TestIntegration_TestConnection(t *testing.T) {
	db := testhelpers.GetTestDatabase(t)
	r := newIntegrationRegistry(t)

	c, err := r.CreateConnector(db.DatabaseConfig(t))
	require.NoError(t, err)

	ok, msg := c.TestConnection(context.Background(), db.DatabaseConfig(t))
	assert.True(t, ok, msg)
}

func TestIntegration_TestConnection_BadCredentials(t *testing.T) {
	db := testhelpers.GetTestDatabase(t)
	r := newIntegrationRegistry(t)

	cfg := db.DatabaseConfig(t)
	c, err := r.CreateConnector(cfg)
	require.NoError(t, err)

	cfg.Connection.Username = "nobody"
	ok, msg := c.TestConnection(context.Background(), cfg)
	assert.False(t, ok)
	assert.NotEmpty(t, msg)
}

func TestIntegration_ExecuteQuery(t *testing.T) {
	db := testhelpers.GetTestDatabase(t)
	r := newIntegrationRegistry(t)

	cfg := db.DatabaseConfig(t)
	c, err := r.CreateConnector(cfg)
	require.NoError(t, err)

	result, err := c.ExecuteQuery(context.Background(), cfg,
		"SELECT name, email FROM customers ORDER BY id", nil, connector.QueryOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, result.RowCount)
	require.Len(t, result.Columns, 2)
	assert.Equal(t, "name", result.Columns[0].Name)
	assert.Equal(t, "Ada", result.Rows[0][0])
	assert.Nil(t, result.Rows[2][1], "NULL email survives as nil")
	assert.False(t, result.Truncated)
}

func TestIntegration_ExecuteQuery_Parameters(t *testing.T) {
	db := testhelpers.GetTestDatabase(t)
	r := newIntegrationRegistry(t)

	cfg := db.DatabaseConfig(t)
	c, err := r.CreateConnector(cfg)
	require.NoError(t, err)

	result, err := c.ExecuteQuery(context.Background(), cfg,
		"SELECT total_cents FROM orders WHERE customer_id = {{cid}} ORDER BY total_cents",
		map[string]any{"cid": 1}, connector.QueryOptions{})
	require.NoError(t, err)

	require.Equal(t, 2, result.RowCount)
	assert.Equal(t, int64(1999), result.Rows[0][0])
}

func TestIntegration_ExecuteQuery_Truncation(t *testing.T) {
	db := testhelpers.GetTestDatabase(t)
	r := newIntegrationRegistry(t)

	cfg := db.DatabaseConfig(t)
	c, err := r.CreateConnector(cfg)
	require.NoError(t, err)

	result, err := c.ExecuteQuery(context.Background(), cfg,
		"SELECT id FROM orders ORDER BY id", nil, connector.QueryOptions{MaxRows: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, result.RowCount)
	assert.True(t, result.Truncated)
	// The statement was bounded server-side, so the true total is unknowable.
	assert.Nil(t, result.TotalRowCount)
}

func TestIntegration_ExecuteQuery_RejectsWrites(t *testing.T) {
	db := testhelpers.GetTestDatabase(t)
	r := newIntegrationRegistry(t)

	cfg := db.DatabaseConfig(t)
	c, err := r.CreateConnector(cfg)
	require.NoError(t, err)

	_, err = c.ExecuteQuery(context.Background(), cfg,
		"DELETE FROM orders", nil, connector.QueryOptions{})
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)

	// Nothing was deleted.
	var count int
	require.NoError(t, db.Pool.QueryRow(context.Background(),
		"SELECT count(*) FROM orders").Scan(&count))
	assert.Equal(t, 3, count)
}

func TestIntegration_GetSchema(t *testing.T) {
	db := testhelpers.GetTestDatabase(t)
	r := newIntegrationRegistry(t)

	cfg := db.DatabaseConfig(t)
	c, err := r.CreateConnector(cfg)
	require.NoError(t, err)

	schema, err := c.GetSchema(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, schema.DatabaseID)

	var public *models.SchemaInfo
	for i := range schema.Schemas {
		if schema.Schemas[i].Name == "public" {
			public = &schema.Schemas[i]
		}
	}
	require.NotNil(t, public, "public schema present")

	tables := map[string]models.TableInfo{}
	for _, tbl := range public.Tables {
		tables[tbl.Name] = tbl
	}
	require.Contains(t, tables, "customers")
	require.Contains(t, tables, "orders")

	customers := tables["customers"]
	assert.Equal(t, "Registered customers", customers.Description)
	assert.Equal(t, []string{"id"}, customers.PrimaryKey)

	var email *models.ColumnInfo
	for i := range customers.Columns {
		if customers.Columns[i].Name == "email" {
			email = &customers.Columns[i]
		}
	}
	require.NotNil(t, email)
	assert.True(t, email.Nullable)
	assert.Equal(t, "Unique contact address", email.Description)

	orders := tables["orders"]
	require.Len(t, orders.ForeignKeys, 1)
	assert.Equal(t, "customers", orders.ForeignKeys[0].ReferencedTable)
	assert.Equal(t, []string{"customer_id"}, orders.ForeignKeys[0].Columns)
}

func TestIntegration_CancelQuery(t *testing.T) {
	db := testhelpers.GetTestDatabase(t)
	r := newIntegrationRegistry(t)

	cfg := db.DatabaseConfig(t)
	c, err := r.CreateConnector(cfg)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.ExecuteQuery(context.Background(), cfg,
			"SELECT pg_sleep(30)", nil, connector.QueryOptions{Timeout: time.Minute})
		errCh <- err
	}()

	var queryID string
	require.Eventually(t, func() bool {
		for id := range r.QueryTracker().List(cfg.ID) {
			queryID = id
			return true
		}
		return false
	}, 10*time.Second, 20*time.Millisecond)

	assert.True(t, c.CancelQuery(queryID))

	select {
	case err := <-errCh:
		assert.True(t, apperrors.IsCancelled(err), "got: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("cancelled query did not return")
	}
}
