package records

import (
	"context"
	"database/sql"
	"strings"

	"github.com/wavemo/wavemo/internal/errors"
)

// AnalysisInput contains parameters for the Analysis operation.
type AnalysisInput struct {
	From int64 // unix seconds, inclusive; 0 = unbounded
	To   int64 // unix seconds, inclusive; 0 = unbounded
}

// CategoryCount is the number of card picks that fell into one category.
type CategoryCount struct {
	CategoryID int    `json:"category_id"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	Count      int    `json:"count"`
}

// AnalysisOutput summarizes the records in the requested window.
type AnalysisOutput struct {
	TotalRecords   int             `json:"total_records"`
	CardPicks      int             `json:"card_picks"`
	Categories     []CategoryCount `json:"categories"`
	AvgBeforeLevel float64         `json:"avg_before_level"`
	AvgAfterLevel  float64         `json:"avg_after_level"`
	AvgLevelDelta  float64         `json:"avg_level_delta"`
}

// Analysis aggregates saved records: how many, which categories the picked
// cards came from, and how strength ratings moved across a flow on average.
// AvgLevelDelta only counts card slots rated both before and after.
func (s *Store) Analysis(ctx context.Context, input AnalysisInput) (*AnalysisOutput, error) {
	out := &AnalysisOutput{Categories: []CategoryCount{}}

	filter, args := timeFilter("created_at", input)

	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM emotion_records"+whereClause(filter), args...,
	).Scan(&out.TotalRecords)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	// Flatten the three card slots, then group picks by category.
	pickFilter, pickArgs := timeFilter("p.created_at", input)
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.name, g.slug, COUNT(*) AS picks
		FROM (
			SELECT card_1_id AS card_id, created_at FROM emotion_records
			UNION ALL SELECT card_2_id, created_at FROM emotion_records
			UNION ALL SELECT card_3_id, created_at FROM emotion_records
		) p
		JOIN emotion_cards c ON c.id = p.card_id
		JOIN emotion_categories g ON g.id = c.category_id
		`+whereClause(pickFilter)+`
		GROUP BY g.id, g.name, g.slug
		ORDER BY picks DESC, g.display_order ASC
	`, pickArgs...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	for rows.Next() {
		var cc CategoryCount
		if err := rows.Scan(&cc.CategoryID, &cc.Name, &cc.Slug, &cc.Count); err != nil {
			return nil, errors.NewInternal(err)
		}
		out.Categories = append(out.Categories, cc)
		out.CardPicks += cc.Count
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	out.AvgBeforeLevel, err = s.avgLevel(ctx, "before_level_1", "before_level_2", "before_level_3", input)
	if err != nil {
		return nil, err
	}
	out.AvgAfterLevel, err = s.avgLevel(ctx, "after_level_1", "after_level_2", "after_level_3", input)
	if err != nil {
		return nil, err
	}

	deltaFilter, deltaArgs := timeFilter("d.created_at", input)
	conds := append([]string{"d.lvl_before IS NOT NULL", "d.lvl_after IS NOT NULL"}, deltaFilter...)
	var delta sql.NullFloat64
	err = s.db.QueryRowContext(ctx, `
		SELECT AVG(d.lvl_after - d.lvl_before)
		FROM (
			SELECT before_level_1 AS lvl_before, after_level_1 AS lvl_after, created_at FROM emotion_records
			UNION ALL SELECT before_level_2, after_level_2, created_at FROM emotion_records
			UNION ALL SELECT before_level_3, after_level_3, created_at FROM emotion_records
		) d
		WHERE `+strings.Join(conds, " AND "),
		deltaArgs...,
	).Scan(&delta)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	out.AvgLevelDelta = delta.Float64

	return out, nil
}

// avgLevel averages one rating column family across the three card slots.
func (s *Store) avgLevel(ctx context.Context, col1, col2, col3 string, input AnalysisInput) (float64, error) {
	filter, args := timeFilter("l.created_at", input)
	conds := append([]string{"l.lvl IS NOT NULL"}, filter...)

	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT AVG(l.lvl)
		FROM (
			SELECT `+col1+` AS lvl, created_at FROM emotion_records
			UNION ALL SELECT `+col2+`, created_at FROM emotion_records
			UNION ALL SELECT `+col3+`, created_at FROM emotion_records
		) l
		WHERE `+strings.Join(conds, " AND "),
		args...,
	).Scan(&avg)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return avg.Float64, nil
}

// timeFilter builds created_at range conditions for the given column alias.
func timeFilter(column string, input AnalysisInput) ([]string, []any) {
	var conds []string
	var args []any
	if input.From > 0 {
		conds = append(conds, column+" >= ?")
		args = append(args, input.From)
	}
	if input.To > 0 {
		conds = append(conds, column+" <= ?")
		args = append(args, input.To)
	}
	return conds, args
}

// whereClause joins conditions into a WHERE clause, or nothing if empty.
func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}
