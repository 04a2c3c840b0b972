// Package testhelpers provides a shared PostgreSQL container for
// integration tests. The container is started once per test run and seeded
// with a small retail schema that the connector tests query and introspect.
package testhelpers

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dataglade/dataglade-connect/pkg/crypto"
	"github.com/dataglade/dataglade-connect/pkg/models"
)

const (
	postgresImage = "postgres:16-alpine"

	testUser     = "connect"
	testPassword = "test_password"
	testDatabase = "connect_test"

	// TestCipherKey is the credentials key integration tests encrypt the
	// container password with.
	TestCipherKey = "integration-test-key"
)

// seedSchema is applied once after the container comes up. It gives the
// schema reader something non-trivial: comments, defaults, a composite
// index, and a foreign key.
const seedSchema = `
CREATE TABLE customers (
    id         SERIAL PRIMARY KEY,
    name       TEXT NOT NULL,
    email      TEXT UNIQUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
COMMENT ON TABLE customers IS 'Registered customers';
COMMENT ON COLUMN customers.email IS 'Unique contact address';

CREATE TABLE orders (
    id          SERIAL PRIMARY KEY,
    customer_id INTEGER NOT NULL REFERENCES customers(id),
    total_cents BIGINT NOT NULL DEFAULT 0,
    placed_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

INSERT INTO customers (name, email) VALUES
    ('Ada',   'ada@example.com'),
    ('Grace', 'grace@example.com'),
    ('Edsger', NULL);

INSERT INTO orders (customer_id, total_cents) VALUES
    (1, 1999),
    (1, 5000),
    (2, 750);
`

// TestDatabase holds the shared container and a direct pool for seeding and
// assertions.
type TestDatabase struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	Host      string
	Port      int
}

var (
	sharedDB     *TestDatabase
	sharedDBOnce sync.Once
	sharedDBErr  error
)

// GetTestDatabase returns the shared seeded PostgreSQL container. The
// container is created once and reused across all tests in the run.
func GetTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedDBOnce.Do(func() {
		sharedDB, sharedDBErr = setupTestDatabase()
	})

	if sharedDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedDBErr)
	}

	return sharedDB
}

func setupTestDatabase() (*TestDatabase, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       testDatabase,
			"POSTGRES_USER":     testUser,
			"POSTGRES_PASSWORD": testPassword,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		testUser, testPassword, host, port.Port(), testDatabase)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// The log line can precede actual readiness on slow hosts.
	for i := 0; i < 10; i++ {
		if err := pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}

	if _, err := pool.Exec(ctx, seedSchema); err != nil {
		return nil, fmt.Errorf("failed to seed test schema: %w", err)
	}

	portNum, err := strconv.Atoi(port.Port())
	if err != nil {
		return nil, fmt.Errorf("unexpected mapped port %q: %w", port.Port(), err)
	}

	return &TestDatabase{
		Container: container,
		Pool:      pool,
		Host:      host,
		Port:      portNum,
	}, nil
}

// DatabaseConfig builds a connector config pointing at the container, with
// the password encrypted under TestCipherKey.
func (d *TestDatabase) DatabaseConfig(t *testing.T) *models.DatabaseConfig {
	t.Helper()

	cipher, err := crypto.NewCredentialCipher(TestCipherKey)
	if err != nil {
		t.Fatalf("Failed to build test cipher: %v", err)
	}
	encrypted, err := cipher.Encrypt(testPassword)
	if err != nil {
		t.Fatalf("Failed to encrypt test password: %v", err)
	}

	return &models.DatabaseConfig{
		ID:            "pg-integration",
		Name:          "Integration Postgres",
		Dialect:       models.DialectPostgres,
		Host:          d.Host,
		Port:          d.Port,
		DefaultSchema: "public",
		Connection: models.ConnectionConfig{
			Username:          testUser,
			PasswordEncrypted: encrypted,
			Options: map[string]string{
				"database": testDatabase,
				"sslmode":  "disable",
			},
		},
	}
}
