package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "embed"
)

//go:embed seed.json
var seedJSON []byte

// seedData mirrors the embedded seed file.
type seedData struct {
	Categories []Category     `json:"categories"`
	Cards      []seedCard     `json:"cards"`
	About      []AboutEmotion `json:"about_emotions"`
}

// seedCard uses plain strings; empty means absent.
type seedCard struct {
	ID          int    `json:"id"`
	CategoryID  int    `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Example     string `json:"example"`
	ImagePath   string `json:"image_path"`
}

// EnsureSeed populates the catalog tables from the embedded dataset if they
// are empty. Safe to call on every startup.
func EnsureSeed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM emotion_categories").Scan(&count); err != nil {
		return fmt.Errorf("failed to check catalog: %w", err)
	}
	if count > 0 {
		return nil
	}

	var seed seedData
	if err := json.Unmarshal(seedJSON, &seed); err != nil {
		return fmt.Errorf("failed to parse embedded seed: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range seed.Categories {
		if _, err := tx.Exec(`
			INSERT INTO emotion_categories (id, name, slug, display_order)
			VALUES (?, ?, ?, ?)
		`, c.ID, c.Name, c.Slug, c.DisplayOrder); err != nil {
			return fmt.Errorf("failed to seed category %d: %w", c.ID, err)
		}
	}

	for _, c := range seed.Cards {
		if _, err := tx.Exec(`
			INSERT INTO emotion_cards (id, category_id, name, description, example, image_path)
			VALUES (?, ?, ?, ?, ?, ?)
		`, c.ID, c.CategoryID, c.Name, toNullString(c.Description), toNullString(c.Example), toNullString(c.ImagePath)); err != nil {
			return fmt.Errorf("failed to seed card %d: %w", c.ID, err)
		}
	}

	for _, a := range seed.About {
		if _, err := tx.Exec(`
			INSERT INTO about_emotions (id, key, title, content, display_order)
			VALUES (?, ?, ?, ?, ?)
		`, a.ID, a.Key, a.Title, a.Content, a.DisplayOrder); err != nil {
			return fmt.Errorf("failed to seed article %q: %w", a.Key, err)
		}
	}

	return tx.Commit()
}

// toNullString converts an empty string to a SQL NULL.
func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
