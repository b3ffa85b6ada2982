package main

import (
	"flag"

	"homekeys/server/config"
	"homekeys/server/internal/database"
	"homekeys/server/internal/geocoding"
	"homekeys/server/internal/importer"
	"homekeys/server/internal/mapview"

	"github.com/sirupsen/logrus"
)

func main() {
	path := flag.String("file", "", "listing JSON file to import")
	useCache := flag.Bool("geocode-cache", true, "fill missing coordinates from the geocode cache")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	logger := cfg.NewLogger()

	if *path == "" {
		*path = cfg.Catalog.Path
	}
	if *path == "" {
		logger.Fatal("No input file, pass -file or set CATALOG_PATH")
	}

	db, err := database.NewDatabase(cfg.Database.Path, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	var locator mapview.Locator
	if *useCache && cfg.Geocoding.Enabled {
		locator = geocoding.NewGeocoder(logger, geocoding.Options{
			BaseURL:   cfg.Geocoding.BaseURL,
			UserAgent: cfg.Geocoding.UserAgent,
			CacheDir:  cfg.Geocoding.CacheDir,
		})
	}

	result, err := importer.NewManager(db, cfg, locator, logger).ImportFile(*path)
	if err != nil {
		logger.WithError(err).WithField("path", *path).Fatal("Import failed")
	}
	logger.WithFields(logrus.Fields{
		"path":       *path,
		"properties": result.Properties,
	}).Info("Import finished")
}
