package card

import (
	"database/sql"
	"encoding/json"
	"strings"
)

// Rarity codes observed in the published card list, lowest to highest.
var Rarities = []string{"C", "U", "R", "RR", "RRR", "RRRR", "SP", "SSSP", "UR", "ExP", "AP"}

// Types are the card type values.
var Types = []string{"ARMED", "BASIC", "POWER", "SPEED", "DEVASTATION", "HAZARD", "METEO", "INVASION"}

// Features classify what a card depicts.
var Features = []string{"Ultra Hero", "Kaiju", "Scene"}

// NoCharacter is the placeholder character_name for cards that depict
// no specific character (scenes, items).
const NoCharacter = "-"

// Card is one record of the reference dataset. The table is populated by
// the CSV import and never mutated through the API; `number` is the
// externally stable identifier, `id` an internal surrogate.
type Card struct {
	ID                    int64      `json:"id" db:"id"`
	Name                  string     `json:"name" db:"name"`
	Ruby                  NullString `json:"ruby" db:"ruby"`
	TypeName              NullString `json:"type_name" db:"type_name"`
	CharacterName         NullString `json:"character_name" db:"character_name"`
	Rarity                NullString `json:"rarity" db:"rarity"`
	Type                  NullString `json:"type" db:"type"`
	Feature               NullString `json:"feature" db:"feature"`
	Level                 NullString `json:"level" db:"level"`
	Round                 NullString `json:"round" db:"round"`
	BattlePower1          NullInt    `json:"battle_power_1" db:"battle_power_1"`
	BattlePower2          NullInt    `json:"battle_power_2" db:"battle_power_2"`
	BattlePower3          NullInt    `json:"battle_power_3" db:"battle_power_3"`
	BattlePower4          NullInt    `json:"battle_power_4" db:"battle_power_4"`
	BattlePowerEx         NullInt    `json:"battle_power_ex" db:"battle_power_ex"`
	Effect                NullString `json:"effect" db:"effect"`
	FlavorText            NullString `json:"flavor_text" db:"flavor_text"`
	Section               NullString `json:"section" db:"section"`
	BundleVersion         NullString `json:"bundle_version" db:"bundle_version"`
	Serial                NullString `json:"serial" db:"serial"`
	Branch                NullString `json:"branch" db:"branch"`
	Number                NullString `json:"number" db:"number"`
	ParticipatingWorks    NullString `json:"participating_works" db:"participating_works"`
	ParticipatingWorksURL NullString `json:"participating_works_url" db:"participating_works_url"`
	PublicationYear       NullInt    `json:"publication_year" db:"publication_year"`
	IllustratorName       NullString `json:"illustrator_name" db:"illustrator_name"`
	ImageURL              NullString `json:"image_url" db:"image_url"`
	ThumbnailImageURL     NullString `json:"thumbnail_image_url" db:"thumbnail_image_url"`
	ErrataEnable          bool       `json:"errata_enable" db:"errata_enable"`
	ErrataURL             NullString `json:"errata_url" db:"errata_url"`
}

// NormalizeNumeric strips the trailing ".0" that the upstream export adds
// to integral level and round values ("5.0" -> "5").
func NormalizeNumeric(s string) string {
	return strings.TrimSuffix(s, ".0")
}

// NullString is sql.NullString that marshals to JSON null when unset.
type NullString struct {
	sql.NullString
}

// Str returns a NullString holding s.
func Str(s string) NullString {
	return NullString{sql.NullString{String: s, Valid: true}}
}

func (n NullString) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.String)
}

func (n *NullString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		n.Valid = false
		n.String = ""
		return nil
	}
	if err := json.Unmarshal(data, &n.String); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

// NullInt is sql.NullInt64 that marshals to JSON null when unset.
type NullInt struct {
	sql.NullInt64
}

// Int returns a NullInt holding v.
func Int(v int64) NullInt {
	return NullInt{sql.NullInt64{Int64: v, Valid: true}}
}

func (n NullInt) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Int64)
}

func (n *NullInt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		n.Valid = false
		n.Int64 = 0
		return nil
	}
	if err := json.Unmarshal(data, &n.Int64); err != nil {
		return err
	}
	n.Valid = true
	return nil
}
