package helper

import (
	"database/sql"
	"strings"
)

// NullIfBlank turns empty or whitespace-only strings into SQL NULL and trims the rest.
func NullIfBlank(s sql.NullString) sql.NullString {
	if !s.Valid {
		return s
	}
	t := strings.TrimSpace(s.String)
	if t == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: t, Valid: true}
}

// NullStringIf returns s, or NULL when keep is false.
func NullStringIf(keep bool, s sql.NullString) sql.NullString {
	if !keep {
		return sql.NullString{}
	}
	return NullIfBlank(s)
}

// NullValue returns nil for an invalid value so it can be bound as a SQL argument.
// Valid values are returned as their plain Go type.
func NullValue(v interface{}) interface{} {
	switch n := v.(type) {
	case sql.NullString:
		if n.Valid {
			return n.String
		}
	case sql.NullInt64:
		if n.Valid {
			return n.Int64
		}
	case sql.NullFloat64:
		if n.Valid {
			return n.Float64
		}
	case sql.NullBool:
		if n.Valid {
			return n.Bool
		}
	case sql.NullTime:
		if n.Valid {
			return n.Time
		}
	default:
		return v
	}
	return nil
}

// NullValues applies NullValue to each of values.
func NullValues(values ...interface{}) []interface{} {
	for i, v := range values {
		values[i] = NullValue(v)
	}
	return values
}
