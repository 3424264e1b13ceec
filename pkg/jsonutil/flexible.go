// Package jsonutil tolerates the loose typing of the legacy JSON export.
// Files were touched by several generations of scripts, so numeric fields
// show up as numbers in one file and quoted strings in the next, and IDs
// are occasionally bare numbers. The flexible types decode either form.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexibleInt decodes 25, "25", and null (as zero).
type FlexibleInt int

func (v *FlexibleInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if isNull(data) {
		*v = 0
		return nil
	}
	if s, ok := unquote(data); ok {
		if s == "" {
			*v = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("cannot parse %q as integer: %w", s, err)
		}
		*v = FlexibleInt(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = FlexibleInt(n)
	return nil
}

// FlexibleFloat decodes 25.1, "25.1", and null (as zero).
type FlexibleFloat float64

func (v *FlexibleFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if isNull(data) {
		*v = 0
		return nil
	}
	if s, ok := unquote(data); ok {
		if s == "" {
			*v = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("cannot parse %q as number: %w", s, err)
		}
		*v = FlexibleFloat(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = FlexibleFloat(f)
	return nil
}

// FlexibleString decodes a string, a bare number, or null (as empty).
type FlexibleString string

func (v *FlexibleString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if isNull(data) {
		*v = ""
		return nil
	}
	if s, ok := unquote(data); ok {
		*v = FlexibleString(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("cannot parse %s as string", data)
	}
	if f == float64(int64(f)) {
		*v = FlexibleString(strconv.FormatInt(int64(f), 10))
	} else {
		*v = FlexibleString(strconv.FormatFloat(f, 'g', -1, 64))
	}
	return nil
}

func isNull(data []byte) bool {
	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}

func unquote(data []byte) (string, bool) {
	if len(data) < 2 || data[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", false
	}
	return s, true
}
