package importer

import (
	"fmt"
	"os"

	"homekeys/server/config"
	"homekeys/server/internal/catalog"
	"homekeys/server/internal/database"
	"homekeys/server/internal/mapview"
	"homekeys/server/internal/models"
	"homekeys/server/internal/processor"
	"homekeys/server/internal/queue"

	"github.com/sirupsen/logrus"
)

// Manager loads listing files into the properties table
type Manager struct {
	logger  *logrus.Logger
	config  *config.Config
	db      *database.Database
	locator mapview.Locator
}

// Result summarizes one import run
type Result struct {
	Properties int             `json:"properties"`
	Geocoded   int             `json:"geocoded"`
	Batches    int             `json:"batches"`
	Removed    int64           `json:"removed"`
	Stats      processor.Stats `json:"stats"`
}

// NewManager creates a new import manager. locator is optional; when set,
// listings without coordinates get the cached geocode stamped in before they
// are stored.
func NewManager(db *database.Database, cfg *config.Config, locator mapview.Locator, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Manager{
		logger:  logger,
		config:  cfg,
		db:      db,
		locator: locator,
	}
}

// ImportFile validates the file as a catalog and writes it in batches
func (m *Manager) ImportFile(path string) (Result, error) {
	m.logger.WithField("path", path).Info("Starting import")

	store, err := catalog.LoadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load catalog file: %w", err)
	}
	return m.Import(store.All())
}

// Import writes properties in catalog order. Rows already stored under the
// same id are replaced and rows absent from properties are deleted once
// every batch has been written.
func (m *Manager) Import(properties []models.Property) (Result, error) {
	result := Result{Properties: len(properties)}
	if m.locator != nil {
		result.Geocoded = m.stampCoordinates(properties)
	}

	batches := processor.Split(properties, m.config.BatchProcessing.MaxBatchSize)
	result.Batches = len(batches)

	q := queue.New[processor.Batch]("import", len(batches)+1, m.logger)
	p := processor.NewBatchProcessor(m.db.ORM(), q, m.config, m.logger)
	p.Start()

	for i, batch := range batches {
		if err := q.Push(batch); err != nil {
			p.Stop()
			return result, fmt.Errorf("failed to queue batch %d: %w", i, err)
		}
	}
	p.Stop()
	result.Stats = p.Stats()

	// Listings missing from this import are dropped so the table mirrors it
	if result.Stats.Failed == 0 {
		keep := make([]string, len(properties))
		for i, prop := range properties {
			keep[i] = prop.ID
		}
		removed, err := m.db.PruneProperties(keep)
		if err != nil {
			return result, fmt.Errorf("failed to remove stale properties: %w", err)
		}
		result.Removed = removed
	}

	m.logger.WithFields(logrus.Fields{
		"properties": result.Properties,
		"geocoded":   result.Geocoded,
		"batches":    result.Stats.Batches,
		"rows":       result.Stats.Rows,
		"failed":     result.Stats.Failed,
		"removed":    result.Removed,
	}).Info("Import completed")

	if result.Stats.Failed > 0 {
		return result, fmt.Errorf("%d of %d batches failed", result.Stats.Failed, result.Batches)
	}
	return result, nil
}

func (m *Manager) stampCoordinates(properties []models.Property) int {
	stamped := 0
	for i := range properties {
		p := &properties[i]
		if p.HasCoordinates() {
			continue
		}
		lat, lng, ok := m.locator.Locate(*p)
		if !ok {
			continue
		}
		p.Latitude, p.Longitude = &lat, &lng
		stamped++
	}
	return stamped
}
