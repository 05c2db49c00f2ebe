package sqlite

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/ctxforge/taskmcp/internal/types"
)

// Times are stored as RFC3339Nano text rather than relying on the driver's
// native datetime scanning, which varies across sqlite drivers.

func timeToStr(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func strToTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullTimeToStr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: timeToStr(*t), Valid: true}
}

func strToNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := strToTime(ns.String)
	return &t
}

func toJSON(v interface{}) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func fromJSONStrings(s string) []string {
	var out []string
	if s == "" {
		return out
	}
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

func fromJSONInsights(s string) []types.Insight {
	var out []types.Insight
	if s == "" {
		return out
	}
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

func fromJSONMap(s string) map[string]interface{} {
	out := make(map[string]interface{})
	if s == "" {
		return out
	}
	_ = json.Unmarshal([]byte(s), &out)
	return out
}
