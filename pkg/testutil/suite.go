package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/stockpulse/stockpulse-backend/pkg/logger"
)

// One container serves every integration test package in the module;
// each test gets its own schema inside it.
var (
	globalContainer *PostgresContainer
	globalDB        *sqlx.DB
	containerOnce   sync.Once
	containerErr    error
)

// IntegrationSuite hands tests isolated schemas inside the shared
// Postgres container, plus a fixture factory for seeding them.
//
// A test package creates one suite in TestMain, deferring Cleanup and
// TerminateContainer around m.Run. Individual tests then call
//
//	schema := suite.SetupSchema(t, ctx, "movements", repository.Migrations())
//
// and run repositories against schema.DB.
type IntegrationSuite struct {
	Schemas  *SchemaManager
	Fixtures *FixtureFactory
}

// NewIntegrationSuite starts the shared container on first use and
// returns a suite bound to it. Call from TestMain.
func NewIntegrationSuite(ctx context.Context) (*IntegrationSuite, error) {
	container, db, err := sharedContainer(ctx)
	if err != nil {
		return nil, err
	}

	return &IntegrationSuite{
		Schemas:  NewSchemaManager(db, container.DSN, logger.New("test", "test")),
		Fixtures: NewFixtureFactory(),
	}, nil
}

func sharedContainer(ctx context.Context) (*PostgresContainer, *sqlx.DB, error) {
	containerOnce.Do(func() {
		globalContainer, containerErr = NewPostgresContainer(ctx)
		if containerErr != nil {
			return
		}
		globalDB, containerErr = globalContainer.Connect(ctx)
	})
	return globalContainer, globalDB, containerErr
}

// SetupSchema creates an isolated, migrated schema for one test and
// registers its teardown.
func (s *IntegrationSuite) SetupSchema(t *testing.T, ctx context.Context, name string, migrations []string) *TestSchema {
	t.Helper()

	schema, err := s.Schemas.CreateSchema(ctx, name, migrations)
	if err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Schemas.DropSchema(ctx, schema); err != nil {
			t.Logf("warning: failed to drop schema %s: %v", schema.Name, err)
		}
	})

	return schema
}

// Cleanup drops any schemas the suite still tracks. The container
// itself stays up for other packages; see TerminateContainer.
func (s *IntegrationSuite) Cleanup(ctx context.Context) error {
	return s.Schemas.Cleanup(ctx)
}

// TerminateContainer stops the shared container. Call only from
// TestMain after m.Run has finished.
func TerminateContainer(ctx context.Context) {
	if globalContainer != nil {
		globalContainer.Terminate(ctx)
	}
}
