package repositories

import "encoding/json"

// nullString maps an empty string to SQL NULL, matching how absent optional
// cells are stored.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullInt maps zero to SQL NULL. Zero is never a meaningful value for the
// counts and lengths this pipeline stores.
func nullInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

// nullFloat maps zero to SQL NULL (no crag sits at 0°N 0°E).
func nullFloat(v float64) any {
	if v == 0 {
		return nil
	}
	return v
}

// jsonbValue marshals a string list for a JSONB column, NULL when empty.
func jsonbValue(list []string) any {
	if len(list) == 0 {
		return nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return nil
	}
	return b
}

// decodeList unmarshals a JSONB column back into a string list. NULL reads
// as nil.
func decodeList(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
