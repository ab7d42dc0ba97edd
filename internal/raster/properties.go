package raster

import (
	"fmt"
	"time"
)

// Properties holds scene metadata. Values are float64 or string.
type Properties map[string]any

func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func (p Properties) Number(key string) (float64, bool) {
	return toNumber(p[key])
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func (p Properties) String(key string) (string, bool) {
	v, ok := p[key].(string)
	return v, ok
}

// CompareOp is a property comparison operator.
type CompareOp string

const (
	LessThan       CompareOp = "lt"
	LessOrEqual    CompareOp = "lte"
	GreaterThan    CompareOp = "gt"
	GreaterOrEqual CompareOp = "gte"
	Equal          CompareOp = "eq"
	NotEqual       CompareOp = "neq"
)

// PropertyFilter keeps scenes whose property compares true against Value.
type PropertyFilter struct {
	Property string    `json:"property"`
	Op       CompareOp `json:"op"`
	Value    any       `json:"value"`
}

func Lt(property string, value float64) PropertyFilter {
	return PropertyFilter{Property: property, Op: LessThan, Value: value}
}

func Eq(property string, value any) PropertyFilter {
	return PropertyFilter{Property: property, Op: Equal, Value: value}
}

func (f PropertyFilter) Validate() error {
	switch f.Op {
	case LessThan, LessOrEqual, GreaterThan, GreaterOrEqual:
		if _, ok := toNumber(f.Value); !ok {
			return fmt.Errorf("filter %s %s needs a numeric value, got %T", f.Property, f.Op, f.Value)
		}
	case Equal, NotEqual:
	default:
		return fmt.Errorf("unsupported filter operator %q", f.Op)
	}
	if f.Property == "" {
		return fmt.Errorf("filter has no property name")
	}
	return nil
}

// Match reports whether the properties satisfy the filter. A missing property never matches.
func (f PropertyFilter) Match(p Properties) bool {
	if _, present := p[f.Property]; !present {
		return false
	}
	if want, ok := f.Value.(string); ok {
		got, ok := p.String(f.Property)
		if !ok {
			return false
		}
		switch f.Op {
		case Equal:
			return got == want
		case NotEqual:
			return got != want
		}
		return false
	}

	got, ok := p.Number(f.Property)
	if !ok {
		return false
	}
	want, ok := toNumber(f.Value)
	if !ok {
		return false
	}
	switch f.Op {
	case LessThan:
		return got < want
	case LessOrEqual:
		return got <= want
	case GreaterThan:
		return got > want
	case GreaterOrEqual:
		return got >= want
	case Equal:
		return got == want
	case NotEqual:
		return got != want
	}
	return false
}

// DateRange is the half-open interval [Start, End).
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Dates parses a "2006-01-02" range in UTC. It panics on malformed input and
// is meant for fixed dataset definitions.
func Dates(start, end string) DateRange {
	s, err := time.Parse(time.DateOnly, start)
	if err != nil {
		panic(err)
	}
	e, err := time.Parse(time.DateOnly, end)
	if err != nil {
		panic(err)
	}
	return DateRange{Start: s, End: e}
}

func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

func (r DateRange) Validate() error {
	if !r.End.After(r.Start) {
		return fmt.Errorf("date range end %s must be after start %s", r.End.Format(time.DateOnly), r.Start.Format(time.DateOnly))
	}
	return nil
}
