package importer

import (
	"os"
	"path/filepath"
	"testing"

	"homekeys/server/config"
	"homekeys/server/internal/catalog"
	"homekeys/server/internal/database"
	"homekeys/server/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedLocator map[string][2]float64

func (l fixedLocator) Locate(p models.Property) (float64, float64, bool) {
	c, ok := l[p.ID]
	return c[0], c[1], ok
}

func setup(t *testing.T) (*database.Database, *config.Config) {
	t.Helper()
	db, err := database.NewDatabase(":memory:", logrus.New())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations())

	cfg := &config.Config{}
	cfg.BatchProcessing.MaxBatchSize = 3
	cfg.BatchProcessing.ProcessorCount = 2
	cfg.BatchProcessing.MaxRetries = 1
	cfg.BatchProcessing.RetryDelay = 0
	return db, cfg
}

func TestImportFile(t *testing.T) {
	db, cfg := setup(t)
	path := filepath.Join(t.TempDir(), "listings.json")
	require.NoError(t, os.WriteFile(path, catalog.Bundled(), 0o644))

	m := NewManager(db, cfg, nil, logrus.New())
	result, err := m.ImportFile(path)
	require.NoError(t, err)

	assert.Equal(t, 8, result.Properties)
	assert.Equal(t, 3, result.Batches)
	assert.Equal(t, int64(8), result.Stats.Rows)
	assert.Zero(t, result.Geocoded)

	count, err := db.CountProperties()
	require.NoError(t, err)
	assert.Equal(t, 8, count)

	// Importing twice replaces rows instead of duplicating them
	_, err = m.ImportFile(path)
	require.NoError(t, err)
	count, err = db.CountProperties()
	require.NoError(t, err)
	assert.Equal(t, 8, count)
}

func TestImportFile_Invalid(t *testing.T) {
	db, cfg := setup(t)
	m := NewManager(db, cfg, nil, nil)

	_, err := m.ImportFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"properties": [`), 0o644))
	_, err = m.ImportFile(path)
	assert.Error(t, err)
}

func TestImport_StampsCachedCoordinates(t *testing.T) {
	db, cfg := setup(t)
	store, err := catalog.Load(catalog.Bundled())
	require.NoError(t, err)

	locator := fixedLocator{"7": {37.4477, -122.1601}}
	m := NewManager(db, cfg, locator, logrus.New())

	result, err := m.Import(store.All())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Geocoded)

	loaded, err := db.LoadProperties()
	require.NoError(t, err)
	require.Len(t, loaded, 8)

	byID := make(map[string]models.Property, len(loaded))
	for _, p := range loaded {
		byID[p.ID] = p
	}
	p7, p8 := byID["7"], byID["8"]
	require.True(t, p7.HasCoordinates())
	assert.InDelta(t, 37.4477, *p7.Latitude, 1e-9)
	assert.False(t, p8.HasCoordinates())
	assert.InDelta(t, 37.42254, *byID["1"].Latitude, 1e-9)
}

func TestImport_ReplacesPreviousCatalog(t *testing.T) {
	db, cfg := setup(t)
	m := NewManager(db, cfg, nil, logrus.New())

	first := []models.Property{
		{ID: "a", Price: 100, Address: "1 First Street"},
		{ID: "b", Price: 200, Address: "2 First Street"},
		{ID: "c", Price: 300, Address: "3 First Street"},
		{ID: "e", Price: 500, Address: "5 First Street"},
	}
	_, err := m.Import(first)
	require.NoError(t, err)

	second := []models.Property{
		{ID: "d", Price: 400, Address: "4 Second Street"},
		{ID: "c", Price: 350, Address: "3 Second Street"},
	}
	result, err := m.Import(second)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Removed)

	loaded, err := db.LoadProperties()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "d", loaded[0].ID)
	assert.Equal(t, "c", loaded[1].ID)
	assert.Equal(t, 350, loaded[1].Price)
	assert.Equal(t, "3 Second Street", loaded[1].Address)
}
