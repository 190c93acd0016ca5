package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nebula-collection/nebula/pkg/card"
)

// ErrNotFound is returned when no card matches a lookup.
var ErrNotFound = errors.New("card not found")

// ErrInvalidLimit is returned for a zero or negative result limit.
var ErrInvalidLimit = errors.New("limit must be a positive integer")

// Filter enumerates every supported card filter and fixes the match mode
// per field: substring for string fields, prefix for the normalized
// level/round forms, exact for publication_year and errata_enable.
// Conditions are combined conjunctively; zero values mean "not filtered".
type Filter struct {
	Rarity        string // substring, case-sensitive
	Type          string // substring, case-sensitive
	Feature       string // substring, case-sensitive
	CharacterName string // substring, case-sensitive
	Number        string // substring, matches embedded set codes ("BP04")
	Level         string // prefix against normalized form
	Round         string // prefix against normalized form

	PublicationYear *int  // exact
	ErrataOnly      *bool // exact

	Limit *int // nil means unbounded; <= 0 is a validation error
}

// Store provides read access to the cards table, plus the one-shot CSV
// import that rebuilds it.
type Store struct {
	db *sqlx.DB
}

// Open opens the SQLite database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ListCards returns cards matching every supplied filter, in table
// insertion order. No filters returns the whole table, bounded by the
// limit if one is set.
func (s *Store) ListCards(ctx context.Context, f Filter) ([]card.Card, error) {
	if f.Limit != nil && *f.Limit <= 0 {
		return nil, ErrInvalidLimit
	}

	query := "SELECT * FROM cards WHERE 1=1"
	var args []any

	// instr() instead of LIKE: case-sensitive substring, and filter values
	// containing % or _ need no escaping.
	if f.Rarity != "" {
		query += " AND instr(rarity, ?) > 0"
		args = append(args, f.Rarity)
	}
	if f.Type != "" {
		query += " AND instr(type, ?) > 0"
		args = append(args, f.Type)
	}
	if f.Feature != "" {
		query += " AND instr(feature, ?) > 0"
		args = append(args, f.Feature)
	}
	if f.CharacterName != "" {
		query += " AND instr(character_name, ?) > 0"
		args = append(args, f.CharacterName)
	}
	if f.Number != "" {
		query += " AND instr(number, ?) > 0"
		args = append(args, f.Number)
	}
	if f.Level != "" {
		query += " AND instr(level, ?) = 1"
		args = append(args, card.NormalizeNumeric(f.Level))
	}
	if f.Round != "" {
		query += " AND instr(round, ?) = 1"
		args = append(args, card.NormalizeNumeric(f.Round))
	}
	if f.PublicationYear != nil {
		query += " AND publication_year = ?"
		args = append(args, *f.PublicationYear)
	}
	if f.ErrataOnly != nil {
		query += " AND errata_enable = ?"
		args = append(args, *f.ErrataOnly)
	}

	query += " ORDER BY id"

	if f.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *f.Limit)
	}

	cards := []card.Card{}
	if err := s.db.SelectContext(ctx, &cards, query, args...); err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return cards, nil
}

// GetCard returns the first card whose number contains the given token,
// or ErrNotFound.
func (s *Store) GetCard(ctx context.Context, number string) (*card.Card, error) {
	var c card.Card
	err := s.db.GetContext(ctx, &c,
		"SELECT * FROM cards WHERE instr(number, ?) > 0 ORDER BY id LIMIT 1", number)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get card %s: %w", number, err)
	}
	return &c, nil
}

// SearchCards matches q as a case-insensitive substring of name, effect,
// or flavor text.
func (s *Store) SearchCards(ctx context.Context, q string, limit int) ([]card.Card, error) {
	like := contains(strings.ToLower(q))
	query := `
		SELECT * FROM cards
		WHERE lower(name) LIKE ? OR lower(effect) LIKE ? OR lower(flavor_text) LIKE ?
		ORDER BY id`
	args := []any{like, like, like}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	cards := []card.Card{}
	if err := s.db.SelectContext(ctx, &cards, query, args...); err != nil {
		return nil, fmt.Errorf("search cards: %w", err)
	}
	return cards, nil
}

// ListErrataNumbers returns the numbers of all cards with published errata.
func (s *Store) ListErrataNumbers(ctx context.Context) ([]string, error) {
	var numbers []string
	err := s.db.SelectContext(ctx, &numbers,
		"SELECT number FROM cards WHERE errata_enable = 1 AND number IS NOT NULL ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list errata numbers: %w", err)
	}
	return numbers, nil
}

// CharacterCount is one entry of a character frequency ranking.
type CharacterCount struct {
	CharacterName string `json:"character_name" db:"character_name"`
	Count         int    `json:"count" db:"cnt"`
}

// Stats are the aggregate counts served by /stats.
type Stats struct {
	TotalCards                  int              `json:"total_cards"`
	RarityDistribution          map[string]int   `json:"rarity_distribution"`
	FeatureDistribution         map[string]int   `json:"feature_distribution"`
	TypeDistribution            map[string]int   `json:"type_distribution"`
	PublicationYearDistribution map[string]int   `json:"publication_year_distribution"`
	TopUltras                   []CharacterCount `json:"top_25_ultras"`
	TopKaiju                    []CharacterCount `json:"top_25_kaiju"`
}

// Stats computes the aggregate view of the card table.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}

	if err := s.db.GetContext(ctx, &st.TotalCards, "SELECT COUNT(*) FROM cards"); err != nil {
		return nil, fmt.Errorf("count cards: %w", err)
	}

	var err error
	if st.RarityDistribution, err = s.distribution(ctx, "rarity"); err != nil {
		return nil, err
	}
	if st.FeatureDistribution, err = s.distribution(ctx, "feature"); err != nil {
		return nil, err
	}
	if st.TypeDistribution, err = s.distribution(ctx, "type"); err != nil {
		return nil, err
	}
	if st.PublicationYearDistribution, err = s.distribution(ctx, "publication_year"); err != nil {
		return nil, err
	}

	if st.TopUltras, err = s.topCharacters(ctx, "Ultra Hero"); err != nil {
		return nil, err
	}
	if st.TopKaiju, err = s.topCharacters(ctx, "Kaiju"); err != nil {
		return nil, err
	}

	return st, nil
}

func (s *Store) distribution(ctx context.Context, column string) (map[string]int, error) {
	rows, err := s.db.QueryxContext(ctx, fmt.Sprintf(
		"SELECT COALESCE(CAST(%s AS TEXT), '') AS k, COUNT(*) AS cnt FROM cards GROUP BY k", column))
	if err != nil {
		return nil, fmt.Errorf("distribution by %s: %w", column, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var k string
		var cnt int
		if err := rows.Scan(&k, &cnt); err != nil {
			return nil, err
		}
		counts[k] = cnt
	}
	return counts, rows.Err()
}

// topCharacters ranks character names for a feature by card count,
// excluding the "-" placeholder. Ties break on name for a stable order.
func (s *Store) topCharacters(ctx context.Context, feature string) ([]CharacterCount, error) {
	counts := []CharacterCount{}
	err := s.db.SelectContext(ctx, &counts, `
		SELECT character_name, COUNT(*) AS cnt FROM cards
		WHERE character_name IS NOT NULL AND character_name <> ? AND feature = ?
		GROUP BY character_name
		ORDER BY cnt DESC, character_name
		LIMIT 25`, card.NoCharacter, feature)
	if err != nil {
		return nil, fmt.Errorf("top characters for %s: %w", feature, err)
	}
	return counts, nil
}

func contains(s string) string {
	return "%" + s + "%"
}
