package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"homekeys/server/internal/models"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "HomeKeys Listing Server/1.0"
	cacheFileName    = "geocode_cache.json"
)

var ErrNoResults = errors.New("no geocoding results")

// Options tune the geocoder; zero values fall back to Nominatim defaults
type Options struct {
	BaseURL           string
	UserAgent         string
	CacheDir          string
	RequestsPerSecond float64
	Timeout           time.Duration
	RetryMax          int
}

type Geocoder struct {
	logger    *logrus.Logger
	cacheDir  string
	cache     map[string][]float64
	cacheLock sync.RWMutex
	client    *retryablehttp.Client
	limiter   *rate.Limiter
	baseURL   string
	userAgent string
}

func NewGeocoder(logger *logrus.Logger, opts Options) *Geocoder {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RetryMax < 0 {
		opts.RetryMax = 0
	}

	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.RetryMax = opts.RetryMax
	rc.HTTPClient.Timeout = opts.Timeout
	rc.Logger = leveledLogger{logger}

	g := &Geocoder{
		logger:    logger,
		cacheDir:  opts.CacheDir,
		cache:     make(map[string][]float64),
		client:    rc,
		limiter:   rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
	}

	if g.cacheDir != "" {
		if err := os.MkdirAll(g.cacheDir, 0755); err != nil {
			logger.WithError(err).WithField("cache_dir", g.cacheDir).Warn("Could not create geocode cache directory")
		}
		g.loadCache()
	}

	return g
}

func (g *Geocoder) loadCache() {
	cacheFile := filepath.Join(g.cacheDir, cacheFileName)
	data, err := os.ReadFile(cacheFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			g.logger.WithError(err).Warn("Could not load geocode cache")
		}
		return
	}

	g.cacheLock.Lock()
	defer g.cacheLock.Unlock()
	if err := json.Unmarshal(data, &g.cache); err != nil {
		g.logger.WithError(err).Error("Failed to parse geocode cache")
		g.cache = make(map[string][]float64)
		return
	}

	g.logger.WithField("entries", len(g.cache)).Info("Loaded geocode cache")
}

func (g *Geocoder) saveCache() error {
	if g.cacheDir == "" {
		return nil
	}

	g.cacheLock.RLock()
	data, err := json.Marshal(g.cache)
	g.cacheLock.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal geocode cache: %w", err)
	}

	cacheFile := filepath.Join(g.cacheDir, cacheFileName)
	if err := os.WriteFile(cacheFile, data, 0644); err != nil {
		return fmt.Errorf("failed to save geocode cache: %w", err)
	}
	return nil
}

func cacheKey(address, city, state, zip string) string {
	return strings.ToLower(strings.Join([]string{
		strings.TrimSpace(address),
		strings.TrimSpace(city),
		strings.TrimSpace(state),
		strings.TrimSpace(zip),
	}, "|"))
}

func fullAddress(address, city, state, zip string) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{address, city, strings.TrimSpace(state + " " + zip)} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	parts = append(parts, "USA")
	return strings.Join(parts, ", ")
}

// Cached returns coordinates already resolved for the address without
// touching the network
func (g *Geocoder) Cached(address, city, state, zip string) (float64, float64, bool) {
	g.cacheLock.RLock()
	defer g.cacheLock.RUnlock()
	coords, ok := g.cache[cacheKey(address, city, state, zip)]
	if !ok || len(coords) != 2 {
		return 0, 0, false
	}
	return coords[0], coords[1], true
}

// Locate resolves a property from the cache only, so map rendering never
// waits on Nominatim
func (g *Geocoder) Locate(p models.Property) (float64, float64, bool) {
	return g.Cached(p.Address, p.City, p.State, p.Zip)
}

type nominatimResponse []struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves an address to latitude and longitude, consulting the
// cache first
func (g *Geocoder) Geocode(ctx context.Context, address, city, state, zip string) (float64, float64, error) {
	if lat, lon, ok := g.Cached(address, city, state, zip); ok {
		return lat, lon, nil
	}

	query := fullAddress(address, city, state, zip)
	logger := g.logger.WithField("address", query)

	if err := g.limiter.Wait(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to wait for geocoding slot: %w", err)
	}

	params := url.Values{
		"q":            []string{query},
		"format":       []string{"json"},
		"limit":        []string{"1"},
		"countrycodes": []string{"us"},
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := g.client.Do(req)
	if err != nil {
		logger.WithError(err).Error("Geocoding request failed")
		return 0, 0, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocoding request failed with status %d", resp.StatusCode)
	}

	var result nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		logger.WithError(err).Error("Failed to parse geocoding response")
		return 0, 0, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(result) == 0 {
		logger.Warn("No geocoding results found")
		return 0, 0, fmt.Errorf("%w for address: %s", ErrNoResults, query)
	}

	lat, err := strconv.ParseFloat(result[0].Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to parse latitude %q: %w", result[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(result[0].Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to parse longitude %q: %w", result[0].Lon, err)
	}

	logger.WithFields(logrus.Fields{
		"latitude":  lat,
		"longitude": lon,
		"source":    "nominatim",
	}).Info("Successfully geocoded address")

	g.cacheLock.Lock()
	g.cache[cacheKey(address, city, state, zip)] = []float64{lat, lon}
	g.cacheLock.Unlock()

	if err := g.saveCache(); err != nil {
		logger.WithError(err).Warn("Failed to persist geocode cache")
	}

	return lat, lon, nil
}

// Backfill geocodes every property that has no coordinates of its own and
// is not cached yet. It returns how many addresses were newly resolved.
func (g *Geocoder) Backfill(ctx context.Context, properties []models.Property) (int, error) {
	resolved := 0
	var failed int
	for _, p := range properties {
		if p.HasCoordinates() || p.Address == "" {
			continue
		}
		if _, _, ok := g.Locate(p); ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return resolved, err
		}

		if _, _, err := g.Geocode(ctx, p.Address, p.City, p.State, p.Zip); err != nil {
			if ctx.Err() != nil {
				return resolved, ctx.Err()
			}
			failed++
			g.logger.WithError(err).WithField("property_id", p.ID).Warn("Could not geocode property")
			continue
		}
		resolved++
	}

	if resolved > 0 || failed > 0 {
		g.logger.WithFields(logrus.Fields{
			"resolved": resolved,
			"failed":   failed,
		}).Info("Geocode backfill finished")
	}
	return resolved, nil
}
