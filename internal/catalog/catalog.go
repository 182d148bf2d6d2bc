// Package catalog provides read-only access to the emotion card catalog:
// categories, cards, and the about-emotions articles. The catalog is seeded
// once from an embedded dataset and never mutated by the workflow.
package catalog

import (
	"database/sql"
	"fmt"

	"github.com/wavemo/wavemo/internal/errors"
)

// Category is an emotion card category.
type Category struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	DisplayOrder int    `json:"display_order"`
}

// Card is a selectable emotion card.
type Card struct {
	ID          int     `json:"id"`
	CategoryID  int     `json:"category_id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Example     *string `json:"example,omitempty"`
	ImagePath   *string `json:"image_path,omitempty"`
}

// AboutEmotion is an education article shown on the about-emotions page.
type AboutEmotion struct {
	ID           int    `json:"id"`
	Key          string `json:"key"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	DisplayOrder int    `json:"display_order"`
}

// ListCategories returns all categories ordered by display order.
func ListCategories(db *sql.DB) ([]Category, error) {
	rows, err := db.Query(`
		SELECT id, name, slug, display_order
		FROM emotion_categories
		ORDER BY display_order ASC
	`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.DisplayOrder); err != nil {
			return nil, errors.NewInternal(err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return categories, nil
}

// CategoryBySlug returns the category with the given slug.
func CategoryBySlug(db *sql.DB, slug string) (*Category, error) {
	var c Category
	err := db.QueryRow(`
		SELECT id, name, slug, display_order
		FROM emotion_categories
		WHERE slug = ?
	`, slug).Scan(&c.ID, &c.Name, &c.Slug, &c.DisplayOrder)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(fmt.Sprintf("category %q", slug))
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &c, nil
}

// CategoryByID returns the category with the given id.
func CategoryByID(db *sql.DB, id int) (*Category, error) {
	var c Category
	err := db.QueryRow(`
		SELECT id, name, slug, display_order
		FROM emotion_categories
		WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &c.Slug, &c.DisplayOrder)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(fmt.Sprintf("category %d", id))
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &c, nil
}

// ListCards returns all cards ordered by id.
func ListCards(db *sql.DB) ([]Card, error) {
	return queryCards(db, `
		SELECT id, category_id, name, description, example, image_path
		FROM emotion_cards
		ORDER BY id ASC
	`)
}

// CardsByCategory returns cards in the given category ordered by id.
func CardsByCategory(db *sql.DB, categoryID int) ([]Card, error) {
	return queryCards(db, `
		SELECT id, category_id, name, description, example, image_path
		FROM emotion_cards
		WHERE category_id = ?
		ORDER BY id ASC
	`, categoryID)
}

// CardByID returns the card with the given id.
func CardByID(db *sql.DB, id int) (*Card, error) {
	var (
		c           Card
		description sql.NullString
		example     sql.NullString
		imagePath   sql.NullString
	)
	err := db.QueryRow(`
		SELECT id, category_id, name, description, example, image_path
		FROM emotion_cards
		WHERE id = ?
	`, id).Scan(&c.ID, &c.CategoryID, &c.Name, &description, &example, &imagePath)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(fmt.Sprintf("card %d", id))
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	c.Description = fromNullString(description)
	c.Example = fromNullString(example)
	c.ImagePath = fromNullString(imagePath)
	return &c, nil
}

// CardsGroupedByCategory returns all cards keyed by category id,
// preserving id order within each group.
func CardsGroupedByCategory(db *sql.DB) (map[int][]Card, error) {
	cards, err := ListCards(db)
	if err != nil {
		return nil, err
	}

	grouped := make(map[int][]Card)
	for _, card := range cards {
		grouped[card.CategoryID] = append(grouped[card.CategoryID], card)
	}
	return grouped, nil
}

// ListAboutEmotions returns the about-emotions articles in display order.
func ListAboutEmotions(db *sql.DB) ([]AboutEmotion, error) {
	rows, err := db.Query(`
		SELECT id, key, title, content, display_order
		FROM about_emotions
		ORDER BY display_order ASC
	`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var articles []AboutEmotion
	for rows.Next() {
		var a AboutEmotion
		if err := rows.Scan(&a.ID, &a.Key, &a.Title, &a.Content, &a.DisplayOrder); err != nil {
			return nil, errors.NewInternal(err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return articles, nil
}

// queryCards runs a card query and scans the rows.
func queryCards(db *sql.DB, query string, args ...any) ([]Card, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var cards []Card
	for rows.Next() {
		var (
			c           Card
			description sql.NullString
			example     sql.NullString
			imagePath   sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.CategoryID, &c.Name, &description, &example, &imagePath); err != nil {
			return nil, errors.NewInternal(err)
		}
		c.Description = fromNullString(description)
		c.Example = fromNullString(example)
		c.ImagePath = fromNullString(imagePath)
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return cards, nil
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
