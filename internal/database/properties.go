package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"homekeys/server/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PropertyRow is the gorm model of the properties table
type PropertyRow struct {
	ID            string `gorm:"primaryKey"`
	Position      int
	Type          string
	Price         int
	Description   string
	Address       string
	City          string
	State         string
	Zip           string
	Bedrooms      int
	Bathrooms     int
	SquareFootage int
	LotSize       *int
	HouseAge      *int
	HazardZones   []string              `gorm:"serializer:json"`
	OpenHouse     *models.OpenHouse     `gorm:"serializer:json"`
	View          string
	Financial     *models.FinancialInfo `gorm:"serializer:json"`
	Amenities     []string              `gorm:"serializer:json"`
	Image         string
	Latitude      *float64
	Longitude     *float64
	UpdatedAt     time.Time
}

func (PropertyRow) TableName() string {
	return "properties"
}

// NewPropertyRow maps a listing to its row; position keeps catalog order
func NewPropertyRow(p models.Property, position int) PropertyRow {
	return PropertyRow{
		ID:            p.ID,
		Position:      position,
		Type:          p.Type,
		Price:         p.Price,
		Description:   p.Description,
		Address:       p.Address,
		City:          p.City,
		State:         p.State,
		Zip:           p.Zip,
		Bedrooms:      p.Bedrooms,
		Bathrooms:     p.Bathrooms,
		SquareFootage: p.SquareFootage,
		LotSize:       p.LotSize,
		HouseAge:      p.HouseAge,
		HazardZones:   p.HazardZones,
		OpenHouse:     p.OpenHouse,
		View:          p.View,
		Financial:     p.Financial,
		Amenities:     p.Amenities,
		Image:         p.Image,
		Latitude:      p.Latitude,
		Longitude:     p.Longitude,
	}
}

// UpsertProperties inserts or replaces a batch of rows inside tx
func UpsertProperties(tx *gorm.DB, batch []PropertyRow) error {
	if len(batch) == 0 {
		return nil
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&batch).Error
	if err != nil {
		return fmt.Errorf("failed to upsert properties: %w", err)
	}
	return nil
}

// LoadProperties returns every stored listing in catalog order
func (d *Database) LoadProperties() ([]models.Property, error) {
	rows, err := d.db.Query(`
		SELECT
			id,
			COALESCE(type, ''),
			price,
			COALESCE(description, ''),
			address,
			COALESCE(city, ''),
			COALESCE(state, ''),
			COALESCE(zip, ''),
			bedrooms,
			bathrooms,
			square_footage,
			lot_size,
			house_age,
			hazard_zones,
			open_house,
			COALESCE(view, ''),
			financial,
			amenities,
			COALESCE(image, ''),
			latitude,
			longitude
		FROM properties
		ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	defer rows.Close()

	properties := make([]models.Property, 0)
	for rows.Next() {
		var p models.Property
		var lotSize, houseAge sql.NullInt64
		var hazardZones, openHouse, financial, amenities sql.NullString
		var latitude, longitude sql.NullFloat64

		err := rows.Scan(
			&p.ID,
			&p.Type,
			&p.Price,
			&p.Description,
			&p.Address,
			&p.City,
			&p.State,
			&p.Zip,
			&p.Bedrooms,
			&p.Bathrooms,
			&p.SquareFootage,
			&lotSize,
			&houseAge,
			&hazardZones,
			&openHouse,
			&p.View,
			&financial,
			&amenities,
			&p.Image,
			&latitude,
			&longitude,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}

		if lotSize.Valid {
			v := int(lotSize.Int64)
			p.LotSize = &v
		}
		if houseAge.Valid {
			v := int(houseAge.Int64)
			p.HouseAge = &v
		}
		if latitude.Valid && longitude.Valid {
			lat, lng := latitude.Float64, longitude.Float64
			p.Latitude = &lat
			p.Longitude = &lng
		}

		if err := decodeJSONColumn(hazardZones, &p.HazardZones); err != nil {
			return nil, fmt.Errorf("failed to decode hazard_zones of %s: %w", p.ID, err)
		}
		if err := decodeJSONColumn(openHouse, &p.OpenHouse); err != nil {
			return nil, fmt.Errorf("failed to decode open_house of %s: %w", p.ID, err)
		}
		if err := decodeJSONColumn(financial, &p.Financial); err != nil {
			return nil, fmt.Errorf("failed to decode financial of %s: %w", p.ID, err)
		}
		if err := decodeJSONColumn(amenities, &p.Amenities); err != nil {
			return nil, fmt.Errorf("failed to decode amenities of %s: %w", p.ID, err)
		}

		properties = append(properties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate properties: %w", err)
	}
	return properties, nil
}

func decodeJSONColumn(col sql.NullString, dst interface{}) error {
	if !col.Valid || col.String == "" || col.String == "null" {
		return nil
	}
	return json.Unmarshal([]byte(col.String), dst)
}

// CountProperties returns the number of stored listings
func (d *Database) CountProperties() (int, error) {
	var n int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM properties`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count properties: %w", err)
	}
	return n, nil
}

const pruneChunk = 500

// PruneProperties deletes every stored listing whose id is not in keep and
// returns how many rows were removed. An empty keep clears the table.
func (d *Database) PruneProperties(keep []string) (int64, error) {
	var removed int64
	err := d.orm.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`CREATE TEMP TABLE IF NOT EXISTS import_keep (id TEXT PRIMARY KEY)`).Error; err != nil {
			return fmt.Errorf("failed to create keep table: %w", err)
		}
		if err := tx.Exec(`DELETE FROM import_keep`).Error; err != nil {
			return fmt.Errorf("failed to reset keep table: %w", err)
		}

		for start := 0; start < len(keep); start += pruneChunk {
			chunk := keep[start:min(start+pruneChunk, len(keep))]
			values := make([]string, len(chunk))
			args := make([]interface{}, len(chunk))
			for i, id := range chunk {
				values[i] = "(?)"
				args[i] = id
			}
			query := `INSERT OR IGNORE INTO import_keep (id) VALUES ` + strings.Join(values, ", ")
			if err := tx.Exec(query, args...).Error; err != nil {
				return fmt.Errorf("failed to record kept ids: %w", err)
			}
		}

		result := tx.Exec(`DELETE FROM properties WHERE id NOT IN (SELECT id FROM import_keep)`)
		if result.Error != nil {
			return fmt.Errorf("failed to delete stale properties: %w", result.Error)
		}
		removed = result.RowsAffected
		return tx.Exec(`DELETE FROM import_keep`).Error
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
