package testhelpers

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dataglade/dataglade-connect/pkg/crypto"
	"github.com/dataglade/dataglade-connect/pkg/models"
)

const (
	mssqlImage = "mcr.microsoft.com/mssql/server:2022-latest"

	// SQL Server rejects weak SA passwords at startup.
	mssqlPassword = "Conn3ct!Test"
)

const mssqlSeedSchema = `
CREATE TABLE dbo.customers (
    id    INT IDENTITY PRIMARY KEY,
    name  NVARCHAR(100) NOT NULL,
    email NVARCHAR(200) NULL
);
CREATE TABLE dbo.orders (
    id          INT IDENTITY PRIMARY KEY,
    customer_id INT NOT NULL REFERENCES dbo.customers(id),
    total_cents BIGINT NOT NULL DEFAULT 0
);
INSERT INTO dbo.customers (name, email) VALUES
    ('Ada', 'ada@example.com'),
    ('Grace', 'grace@example.com');
INSERT INTO dbo.orders (customer_id, total_cents) VALUES
    (1, 1999), (1, 5000), (2, 750);
`

// MSSQLDatabase holds the shared SQL Server container.
type MSSQLDatabase struct {
	Container testcontainers.Container
	Host      string
	Port      int
}

var (
	sharedMSSQL     *MSSQLDatabase
	sharedMSSQLOnce sync.Once
	sharedMSSQLErr  error
)

// GetMSSQLDatabase returns the shared seeded SQL Server container. The image
// is heavyweight, so it is started once per run and reused.
func GetMSSQLDatabase(t *testing.T) *MSSQLDatabase {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedMSSQLOnce.Do(func() {
		sharedMSSQL, sharedMSSQLErr = setupMSSQLDatabase()
	})

	if sharedMSSQLErr != nil {
		t.Fatalf("Failed to setup SQL Server container: %v", sharedMSSQLErr)
	}

	return sharedMSSQL
}

func setupMSSQLDatabase() (*MSSQLDatabase, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        mssqlImage,
		ExposedPorts: []string{"1433/tcp"},
		Env: map[string]string{
			"ACCEPT_EULA":       "Y",
			"MSSQL_SA_PASSWORD": mssqlPassword,
			"MSSQL_PID":         "Developer",
		},
		WaitingFor: wait.ForLog("Recovery is complete").
			WithStartupTimeout(3 * time.Minute),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start SQL Server container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "1433")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	dsn := fmt.Sprintf("sqlserver://sa:%s@%s:%s?encrypt=disable", mssqlPassword, host, port.Port())
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open seeding connection: %w", err)
	}
	defer db.Close()

	// The log line precedes SQL availability by a few seconds.
	for i := 0; i < 20; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("SQL Server never became reachable: %w", err)
	}

	if _, err := db.ExecContext(ctx, mssqlSeedSchema); err != nil {
		return nil, fmt.Errorf("failed to seed test schema: %w", err)
	}

	portNum, err := strconv.Atoi(port.Port())
	if err != nil {
		return nil, fmt.Errorf("unexpected mapped port %q: %w", port.Port(), err)
	}

	return &MSSQLDatabase{Container: container, Host: host, Port: portNum}, nil
}

// DatabaseConfig builds a connector config pointing at the container, with
// the SA password encrypted under TestCipherKey.
func (d *MSSQLDatabase) DatabaseConfig(t *testing.T) *models.DatabaseConfig {
	t.Helper()

	cipher, err := crypto.NewCredentialCipher(TestCipherKey)
	if err != nil {
		t.Fatalf("Failed to build test cipher: %v", err)
	}
	encrypted, err := cipher.Encrypt(mssqlPassword)
	if err != nil {
		t.Fatalf("Failed to encrypt test password: %v", err)
	}

	return &models.DatabaseConfig{
		ID:            "mssql-integration",
		Name:          "Integration SQL Server",
		Dialect:       models.DialectMSSQL,
		Host:          d.Host,
		Port:          d.Port,
		DefaultSchema: "dbo",
		Connection: models.ConnectionConfig{
			Username:          "sa",
			PasswordEncrypted: encrypted,
			Options: map[string]string{
				"encrypt": "disable",
			},
		},
	}
}
