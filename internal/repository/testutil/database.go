package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"

	"targethawk-bot/internal/database"
	"targethawk-bot/internal/models"
)

// TestDatabase is a migrated PostgreSQL container for one test.
type TestDatabase struct {
	Container *postgres.PostgresContainer
	DB        *gorm.DB
	URL       string
}

// SetupTestDatabase starts PostgreSQL, applies the embedded migrations and
// opens a gorm pool. The test is skipped when no container runtime is
// available.
func SetupTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("targethawk_test"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_password"),
		postgres.BasicWaitStrategies(),
		testcontainers.WithLabels(map[string]string{
			"test":      "targethawk-repository",
			"test-name": t.Name(),
			"timestamp": time.Now().Format("20060102-150405"),
		}),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, database.MigrateUp(connStr))

	db, err := database.ConnectPostgres(connStr)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	return &TestDatabase{Container: container, DB: db, URL: connStr}
}

// CreateTestUser inserts a registered user with the given tier.
func CreateTestUser(t *testing.T, db *gorm.DB, userID int64, tier models.Tier) *models.User {
	t.Helper()
	user := &models.User{UserID: userID, Tier: tier, CreatedAt: time.Now().UTC()}
	require.NoError(t, db.Create(user).Error)
	return user
}
