package storetest

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/cuongbtq/fieldops-be/internal/domain"
	"github.com/cuongbtq/fieldops-be/internal/store"
	"github.com/cuongbtq/fieldops-be/internal/store/memory"
	"github.com/cuongbtq/fieldops-be/internal/store/sqlstore"
	"github.com/cuongbtq/fieldops-be/shared/database"
	"github.com/stretchr/testify/require"
)

// Fixture is a store that tests can seed with principals
type Fixture interface {
	store.Store
	AddPrincipal(p domain.Principal) int64
}

// OpenFunc opens a fresh, empty fixture
type OpenFunc func(t *testing.T) Fixture

// Backends lists every implementation by name
var Backends = map[string]OpenFunc{
	"memory": Memory,
	"sqlite": SQLite,
}

// Memory opens an in-process store
func Memory(_ *testing.T) Fixture {
	return memory.New()
}

// SQLite opens a migrated sqlstore backed by a file in t.TempDir()
func SQLite(t *testing.T) Fixture {
	return OpenSQL(t)
}

// OpenSQL is SQLite with the concrete type exposed
func OpenSQL(t *testing.T) *SQLFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := database.NewClient(context.Background(), &database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "fieldops.db"),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	s := sqlstore.New(client.GetDB(), logger)
	require.NoError(t, s.Migrate(context.Background()))
	return &SQLFixture{Store: s, t: t}
}

// SQLFixture is a sqlstore seeded through CreatePrincipal
type SQLFixture struct {
	*sqlstore.Store
	t *testing.T
}

func (f *SQLFixture) AddPrincipal(p domain.Principal) int64 {
	require.NoError(f.t, f.CreatePrincipal(context.Background(), &p))
	return p.ID
}

// Logger discards everything
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
