package records

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/wavemo/wavemo/internal/errors"
	"github.com/wavemo/wavemo/internal/explore"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Store runs record operations against the local database.
type Store struct {
	db *sql.DB
}

// NewStore wraps an initialized database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateRecord satisfies explore.Recorder.
func (s *Store) CreateRecord(ctx context.Context, sub *explore.Submission) error {
	_, err := s.Create(ctx, sub)
	return err
}

// Create validates a submission and inserts it, returning the saved record.
// Validation repeats the workflow's own preconditions so the store stays
// safe against callers other than the guided flow (HTTP API, MCP tools).
func (s *Store) Create(ctx context.Context, sub *explore.Submission) (*Record, error) {
	if err := validateSubmission(sub); err != nil {
		return nil, err
	}
	if err := s.verifyCardsExist(ctx, sub.Cards); err != nil {
		return nil, err
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	now := time.Now().Unix()

	// Map the ordered selection onto the three positional card slots.
	var cards, before, after [3]sql.NullInt64
	for i, cardID := range sub.Cards {
		cards[i] = sql.NullInt64{Int64: int64(cardID), Valid: true}
		if v, ok := sub.BeforeLevels[cardID]; ok {
			before[i] = sql.NullInt64{Int64: int64(v), Valid: true}
		}
		if v, ok := sub.AfterLevels[cardID]; ok {
			after[i] = sql.NullInt64{Int64: int64(v), Valid: true}
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO emotion_records (
			id, card_1_id, card_2_id, card_3_id,
			before_level_1, before_level_2, before_level_3,
			after_level_1, after_level_2, after_level_3,
			story, actions, results, feelings, expect, reaction,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id, cards[0], cards[1], cards[2],
		before[0], before[1], before[2],
		after[0], after[1], after[2],
		sub.StoryBackground, sub.StoryAction, sub.StoryResult, sub.StoryFeeling,
		expectToNull(sub.StoryExpect), sub.StoryBetterAction,
		now, now,
	)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return s.Get(ctx, id)
}

// validateSubmission checks card count, uniqueness, and rating shape.
func validateSubmission(sub *explore.Submission) error {
	n := len(sub.Cards)
	if n < explore.MinSubmitCards {
		return errors.NewSelectionTooSmall(explore.MinSubmitCards, n)
	}
	if n > explore.MaxSelectedCards {
		return errors.NewSelectionTooLarge(explore.MaxSelectedCards, n)
	}

	seen := make(map[int]bool, n)
	for _, id := range sub.Cards {
		if seen[id] {
			return errors.NewInvalidRequest(fmt.Sprintf("duplicate card id %d", id))
		}
		seen[id] = true
	}

	for label, levels := range map[string]map[int]int{
		"before": sub.BeforeLevels,
		"after":  sub.AfterLevels,
	} {
		for cardID, level := range levels {
			if !seen[cardID] {
				return errors.NewInvalidRequest(fmt.Sprintf("%s level for unselected card %d", label, cardID))
			}
			if level < explore.MinLevel || level > explore.MaxLevel {
				return errors.NewInvalidRequest(fmt.Sprintf("%s level for card %d must be %d-%d", label, cardID, explore.MinLevel, explore.MaxLevel))
			}
		}
	}
	return nil
}

// verifyCardsExist rejects ids the catalog doesn't know before the insert
// trips a foreign key error.
func (s *Store) verifyCardsExist(ctx context.Context, ids []int) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM emotion_cards WHERE id IN ("+placeholders+")",
		args...,
	).Scan(&count)
	if err != nil {
		return errors.NewInternal(err)
	}
	if count != len(ids) {
		return errors.NewInvalidRequest("submission references unknown card ids")
	}
	return nil
}

const recordColumns = `
	r.id, r.story, r.actions, r.results, r.feelings, r.expect, r.reaction,
	r.created_at, r.updated_at,
	r.card_1_id, c1.name, c1.category_id, g1.name, c1.image_path, r.before_level_1, r.after_level_1,
	r.card_2_id, c2.name, c2.category_id, g2.name, c2.image_path, r.before_level_2, r.after_level_2,
	r.card_3_id, c3.name, c3.category_id, g3.name, c3.image_path, r.before_level_3, r.after_level_3`

const recordJoins = `
	FROM emotion_records r
	LEFT JOIN emotion_cards c1 ON c1.id = r.card_1_id
	LEFT JOIN emotion_categories g1 ON g1.id = c1.category_id
	LEFT JOIN emotion_cards c2 ON c2.id = r.card_2_id
	LEFT JOIN emotion_categories g2 ON g2.id = c2.category_id
	LEFT JOIN emotion_cards c3 ON c3.id = r.card_3_id
	LEFT JOIN emotion_categories g3 ON g3.id = c3.category_id`

// Get returns a single record with its card slots resolved.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT"+recordColumns+recordJoins+" WHERE r.id = ?", id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(fmt.Sprintf("record %s", id))
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return rec, nil
}

// ListInput contains parameters for the List operation.
type ListInput struct {
	From   int64  // unix seconds, inclusive; 0 = unbounded
	To     int64  // unix seconds, inclusive; 0 = unbounded
	Query  string // keyword across narrative fields and card/category names
	Limit  int    // default: 20, max: 100
	Offset int    // default: 0
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []Record   `json:"items"`
	Pagination Pagination `json:"pagination"`
	Sort       string     `json:"sort"`
}

// Pagination describes the window a list call returned.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// List returns records newest-first with optional date-range and keyword
// filters. The keyword matches any narrative field and the names of the
// picked cards and their categories.
func (s *Store) List(ctx context.Context, input ListInput) (*ListOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := max(input.Offset, 0)

	where, args := input.where()

	var total int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*)"+recordJoins+where, args...,
	).Scan(&total)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT"+recordColumns+recordJoins+where+
			" ORDER BY r.created_at DESC, r.id DESC LIMIT ? OFFSET ?",
		append(args, limit, offset)...,
	)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	items := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		items = append(items, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return &ListOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "created_at_desc",
	}, nil
}

// where builds the filter clause shared by the count and page queries.
func (in ListInput) where() (string, []any) {
	var conds []string
	var args []any

	if in.From > 0 {
		conds = append(conds, "r.created_at >= ?")
		args = append(args, in.From)
	}
	if in.To > 0 {
		conds = append(conds, "r.created_at <= ?")
		args = append(args, in.To)
	}
	if q := strings.TrimSpace(in.Query); q != "" {
		like := "%" + q + "%"
		conds = append(conds, `(
			r.story LIKE ? OR r.actions LIKE ? OR r.results LIKE ?
			OR r.feelings LIKE ? OR r.reaction LIKE ?
			OR c1.name LIKE ? OR c2.name LIKE ? OR c3.name LIKE ?
			OR g1.name LIKE ? OR g2.name LIKE ? OR g3.name LIKE ?
			OR g1.slug LIKE ? OR g2.slug LIKE ? OR g3.slug LIKE ?)`)
		for range 14 {
			args = append(args, like)
		}
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// UpdateInput contains the editable fields of a record (nil = don't change).
// Cards and ratings are immutable once saved; only the narrative may change.
type UpdateInput struct {
	Story    *string
	Actions  *string
	Results  *string
	Feelings *string
	Reaction *string
	Expect   *explore.Expectation
}

// Update modifies a record's narrative fields and returns the result.
func (s *Store) Update(ctx context.Context, id string, input UpdateInput) (*Record, error) {
	var sets []string
	var args []any

	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if input.Story != nil {
		add("story", *input.Story)
	}
	if input.Actions != nil {
		add("actions", *input.Actions)
	}
	if input.Results != nil {
		add("results", *input.Results)
	}
	if input.Feelings != nil {
		add("feelings", *input.Feelings)
	}
	if input.Reaction != nil {
		add("reaction", *input.Reaction)
	}
	if input.Expect != nil {
		add("expect", expectToNull(*input.Expect))
	}

	if len(sets) == 0 {
		return nil, errors.NewInvalidRequest("at least one editable field must be provided")
	}
	add("updated_at", time.Now().Unix())
	args = append(args, id)

	result, err := s.db.ExecContext(ctx,
		"UPDATE emotion_records SET "+strings.Join(sets, ", ")+" WHERE id = ?",
		args...,
	)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if affected == 0 {
		return nil, errors.NewNotFound(fmt.Sprintf("record %s", id))
	}

	return s.Get(ctx, id)
}

// Delete removes a record permanently.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM emotion_records WHERE id = ?", id)
	if err != nil {
		return errors.NewInternal(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if affected == 0 {
		return errors.NewNotFound(fmt.Sprintf("record %s", id))
	}
	return nil
}

// scanRecord reads one joined row into a Record, collapsing empty card
// slots.
func scanRecord(row interface{ Scan(...any) error }) (*Record, error) {
	var (
		rec                                 Record
		story, actions, results, feelings   sql.NullString
		expect, reaction                    sql.NullString
		cardIDs                             [3]sql.NullInt64
		names, categoryNames, imagePaths    [3]sql.NullString
		categoryIDs, beforeLvls, afterLvls  [3]sql.NullInt64
	)

	err := row.Scan(
		&rec.ID, &story, &actions, &results, &feelings, &expect, &reaction,
		&rec.CreatedAt, &rec.UpdatedAt,
		&cardIDs[0], &names[0], &categoryIDs[0], &categoryNames[0], &imagePaths[0], &beforeLvls[0], &afterLvls[0],
		&cardIDs[1], &names[1], &categoryIDs[1], &categoryNames[1], &imagePaths[1], &beforeLvls[1], &afterLvls[1],
		&cardIDs[2], &names[2], &categoryIDs[2], &categoryNames[2], &imagePaths[2], &beforeLvls[2], &afterLvls[2],
	)
	if err != nil {
		return nil, err
	}

	rec.Story = story.String
	rec.Actions = actions.String
	rec.Results = results.String
	rec.Feelings = feelings.String
	rec.Reaction = reaction.String
	rec.Expect, err = expectFromNull(expect)
	if err != nil {
		return nil, err
	}

	rec.Cards = []RecordCard{}
	for i := range cardIDs {
		if !cardIDs[i].Valid {
			continue
		}
		rec.Cards = append(rec.Cards, RecordCard{
			ID:           int(cardIDs[i].Int64),
			Name:         names[i].String,
			CategoryID:   int(categoryIDs[i].Int64),
			CategoryName: categoryNames[i].String,
			ImagePath:    imagePaths[i].String,
			BeforeLevel:  int(beforeLvls[i].Int64),
			AfterLevel:   int(afterLvls[i].Int64),
		})
	}
	return &rec, nil
}

// expectToNull encodes the tri-state answer into its storage form:
// "0" expected, "1" not expected, NULL unclear.
func expectToNull(e explore.Expectation) sql.NullString {
	switch e {
	case explore.ExpectYes:
		return sql.NullString{String: "0", Valid: true}
	case explore.ExpectNo:
		return sql.NullString{String: "1", Valid: true}
	}
	return sql.NullString{}
}

// expectFromNull decodes the storage form.
func expectFromNull(ns sql.NullString) (explore.Expectation, error) {
	if !ns.Valid {
		return explore.ExpectUnclear, nil
	}
	switch ns.String {
	case "0":
		return explore.ExpectYes, nil
	case "1":
		return explore.ExpectNo, nil
	}
	return explore.ExpectUnclear, fmt.Errorf("invalid expect value %q", ns.String)
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
