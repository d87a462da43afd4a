package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

const (
	// DefaultDateFormat is the storage layout of date attributes.
	DefaultDateFormat = "2006-01-02 15:04:05"

	// SerializedDateFormat is the layout of dates in the array and JSON views.
	SerializedDateFormat = "2006-01-02T15:04:05.000000Z07:00"
)

var standardDate = regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}$`)

// DateHandler parses and formats timestamps for date fields and casts.
type DateHandler interface {
	// Parse turns a raw value into a timestamp. layout is the storage
	// layout of the model.
	Parse(value any, layout string) (time.Time, error)

	// Format renders t with layout.
	Format(t time.Time, layout string) string
}

// defaultDateHandler interprets timestamps in a fixed location.
type defaultDateHandler struct {
	loc *time.Location
}

// DateHandlerIn returns the builtin date handler for loc.
func DateHandlerIn(loc *time.Location) DateHandler {
	if loc == nil {
		loc = time.UTC
	}
	return defaultDateHandler{loc: loc}
}

// Parse accepts time values, Unix seconds, "2006-01-02" dates, text in
// layout and anything spf13/cast can read as a time.
func (h defaultDateHandler) Parse(value any, layout string) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, fmt.Errorf("nil time")
		}
		return *v, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return time.Unix(cast.ToInt64(v), 0).In(h.loc), nil
	case []byte:
		return h.Parse(string(v), layout)
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(n, 0).In(h.loc), nil
		}
		if standardDate.MatchString(s) {
			return time.ParseInLocation("2006-1-2", s, h.loc)
		}
		if layout != "" {
			if t, err := time.ParseInLocation(layout, s, h.loc); err == nil {
				return t, nil
			}
		}
		return cast.ToTimeInDefaultLocationE(s, h.loc)
	}
	return cast.ToTimeInDefaultLocationE(value, h.loc)
}

func (h defaultDateHandler) Format(t time.Time, layout string) string {
	return t.Format(layout)
}

// startOfDay truncates t to midnight in its own location.
func startOfDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}

// serializeDate renders t the way the array view exposes dates.
func serializeDate(t time.Time) string {
	return t.UTC().Format(SerializedDateFormat)
}
