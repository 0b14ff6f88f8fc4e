package slides

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Bound is one side of a posting window in epoch milliseconds. An unknown
// bound means the window is open on that side.
type Bound struct {
	millis int64
	known  bool
}

// UnknownBound is the zero Bound.
var UnknownBound = Bound{}

// BoundAt returns a known bound for the instant.
func BoundAt(instant time.Time) Bound {
	if instant.IsZero() {
		return UnknownBound
	}
	return Bound{millis: instant.UnixMilli(), known: true}
}

// Millis returns the epoch milliseconds and whether the bound is known.
func (b Bound) Millis() (int64, bool) {
	return b.millis, b.known
}

// Known reports whether the bound carries a value.
func (b Bound) Known() bool {
	return b.known
}

// Time converts a known bound back to a UTC instant.
func (b Bound) Time() (time.Time, bool) {
	if !b.known {
		return time.Time{}, false
	}
	return time.UnixMilli(b.millis).UTC(), true
}

// DateSource is implemented by timestamp types that can render themselves as a time.Time.
type DateSource interface {
	ToDate() time.Time
}

// SecondsSource is implemented by protobuf-style timestamps.
type SecondsSource interface {
	GetSeconds() int64
}

// ParseInstant converts a loosely typed date value into a Bound. Values that
// cannot be interpreted yield UnknownBound; ParseInstant never panics.
func ParseInstant(value any) (bound Bound) {
	defer func() {
		if recover() != nil {
			bound = UnknownBound
		}
	}()

	switch typed := value.(type) {
	case nil:
		return UnknownBound
	case Bound:
		return typed
	case time.Time:
		return BoundAt(typed)
	case *time.Time:
		if typed == nil {
			return UnknownBound
		}
		return BoundAt(*typed)
	case DateSource:
		return BoundAt(typed.ToDate())
	case SecondsSource:
		return boundFromSeconds(typed.GetSeconds(), 0)
	case map[string]any:
		return boundFromObject(typed)
	case json.RawMessage:
		return parseRawJSON(typed)
	case string:
		return parseInstantString(typed)
	case *string:
		if typed == nil {
			return UnknownBound
		}
		return parseInstantString(*typed)
	default:
		return UnknownBound
	}
}

func parseRawJSON(raw json.RawMessage) Bound {
	if len(raw) == 0 {
		return UnknownBound
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return UnknownBound
	}
	return ParseInstant(decoded)
}

func parseInstantString(raw string) Bound {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return UnknownBound
	}
	parsed, err := cast.ToTimeE(trimmed)
	if err != nil {
		return UnknownBound
	}
	return BoundAt(parsed)
}

func boundFromObject(object map[string]any) Bound {
	rawSeconds, ok := object["seconds"]
	if !ok {
		rawSeconds, ok = object["_seconds"]
	}
	if !ok {
		return UnknownBound
	}
	seconds, err := cast.ToInt64E(rawSeconds)
	if err != nil {
		return UnknownBound
	}
	var nanos int64
	if rawNanos, ok := object["nanoseconds"]; ok {
		nanos, _ = cast.ToInt64E(rawNanos)
	}
	return boundFromSeconds(seconds, nanos)
}

func boundFromSeconds(seconds int64, nanos int64) Bound {
	if seconds == 0 && nanos == 0 {
		return UnknownBound
	}
	return Bound{millis: seconds*1000 + nanos/int64(time.Millisecond), known: true}
}

// WithinWindow decides whether nowMillis falls inside [start, end]. Both
// bounds are inclusive; when neither bound is known the unbounded value is returned.
func WithinWindow(nowMillis int64, start Bound, end Bound, unbounded bool) bool {
	switch {
	case start.known && end.known:
		return start.millis <= nowMillis && nowMillis <= end.millis
	case end.known:
		return nowMillis <= end.millis
	case start.known:
		return start.millis <= nowMillis
	default:
		return unbounded
	}
}

// EndedBefore reports whether the end bound is known and strictly before nowMillis.
func EndedBefore(end Bound, nowMillis int64) bool {
	return end.known && end.millis < nowMillis
}
