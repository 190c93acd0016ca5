package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nebula-collection/nebula/pkg/card"
)

// ImportCSV rebuilds the cards table from the upstream CSV export.
// The first row is the header; columns are matched by name so the export
// can reorder or add columns without breaking the import. The whole load
// runs in one transaction: a malformed file leaves the old table intact.
func (s *Store) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"id", "name", "number"} {
		if _, ok := col[required]; !ok {
			return 0, fmt.Errorf("csv missing required column %q", required)
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM cards"); err != nil {
		return 0, fmt.Errorf("clear cards: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO cards (
			id, name, ruby, type_name, character_name, rarity, type, feature,
			level, round, battle_power_1, battle_power_2, battle_power_3,
			battle_power_4, battle_power_ex, effect, flavor_text, section,
			bundle_version, serial, branch, number, participating_works,
			participating_works_url, publication_year, illustrator_name,
			image_url, thumbnail_image_url, errata_enable, errata_url
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read csv row %d: %w", inserted+2, err)
		}

		field := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		id, err := strconv.ParseInt(field("id"), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("csv row %d: bad id %q", inserted+2, field("id"))
		}

		_, err = stmt.ExecContext(ctx,
			id,
			field("name"),
			nullable(field("ruby")),
			nullable(field("type_name")),
			nullable(field("character_name")),
			nullable(field("rarity")),
			nullable(field("type")),
			nullable(field("feature")),
			nullable(card.NormalizeNumeric(field("level"))),
			nullable(card.NormalizeNumeric(field("round"))),
			nullableInt(field("battle_power_1")),
			nullableInt(field("battle_power_2")),
			nullableInt(field("battle_power_3")),
			nullableInt(field("battle_power_4")),
			nullableInt(field("battle_power_ex")),
			nullable(field("effect")),
			nullable(field("flavor_text")),
			nullable(field("section")),
			nullable(field("bundle_version")),
			nullable(field("serial")),
			nullable(field("branch")),
			nullable(field("number")),
			nullable(field("participating_works")),
			nullable(field("participating_works_url")),
			nullableInt(field("publication_year")),
			nullable(field("illustrator_name")),
			nullable(field("image_url")),
			nullable(field("thumbnail_image_url")),
			parseBool(field("errata_enable")),
			nullable(field("errata_url")),
		)
		if err != nil {
			return 0, fmt.Errorf("insert card %d: %w", id, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return inserted, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullableInt parses the export's numeric cells, which arrive as "8000",
// "8000.0", or empty.
func nullableInt(s string) any {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return int64(f)
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.ToLower(s))
	return err == nil && b
}
