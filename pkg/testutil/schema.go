package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/stockpulse/stockpulse-backend/pkg/database"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
)

// TestSchema is an isolated Postgres schema created for a single test.
// Its DB pool is scoped to the schema via search_path, so repositories
// under test see only their own tables.
type TestSchema struct {
	Name string
	DSN  string
	DB   *database.DB
}

// SchemaManager manages isolated test schemas
type SchemaManager struct {
	db      *sqlx.DB
	dsn     string
	logger  *logger.Logger
	schemas []string
	mu      sync.Mutex
}

// NewSchemaManager creates a new schema manager for tests
func NewSchemaManager(db *sqlx.DB, dsn string, log *logger.Logger) *SchemaManager {
	return &SchemaManager{
		db:      db,
		dsn:     dsn,
		logger:  log,
		schemas: make([]string, 0),
	}
}

// CreateSchema creates a new isolated schema and applies the given
// migrations inside it. Each test should use its own schema so tests
// can run in parallel against the shared container.
//
// Usage:
//
//	schema, err := sm.CreateSchema(ctx, "movements", repository.Migrations())
//	repo := repository.NewMovementRepository(schema.DB, log)
func (sm *SchemaManager) CreateSchema(ctx context.Context, name string, migrations []string) (*TestSchema, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	schemaName := fmt.Sprintf("test_%s_%s", sanitizeSchemaName(name), suffix)

	if _, err := sm.db.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schemaName)); err != nil {
		return nil, fmt.Errorf("failed to create test schema: %w", err)
	}

	// Scope a separate pool to the schema; %%3D keeps the '=' inside the
	// options parameter from terminating the URL query value.
	scopedDSN := fmt.Sprintf("%s&options=-csearch_path%%3D%s", sm.dsn, schemaName)
	db, err := database.NewWithDSN(scopedDSN, sm.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test schema: %w", err)
	}

	if err := db.ApplyMigrations(ctx, migrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate test schema: %w", err)
	}

	sm.schemas = append(sm.schemas, schemaName)
	return &TestSchema{Name: schemaName, DSN: scopedDSN, DB: db}, nil
}

// DropSchema removes a test schema completely
func (sm *SchemaManager) DropSchema(ctx context.Context, s *TestSchema) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	s.DB.Close()

	if _, err := sm.db.ExecContext(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", s.Name)); err != nil {
		return fmt.Errorf("failed to drop test schema: %w", err)
	}

	for i, tracked := range sm.schemas {
		if tracked == s.Name {
			sm.schemas = append(sm.schemas[:i], sm.schemas[i+1:]...)
			break
		}
	}

	return nil
}

// Cleanup drops all schemas created by this manager.
// Call this in TestMain after all tests have completed.
func (sm *SchemaManager) Cleanup(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	var lastErr error
	for _, name := range sm.schemas {
		if _, err := sm.db.ExecContext(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", name)); err != nil {
			lastErr = err
		}
	}

	sm.schemas = make([]string, 0)
	return lastErr
}

func sanitizeSchemaName(name string) string {
	name = strings.ToLower(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
