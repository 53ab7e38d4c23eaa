package docstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// PredicateOp is a query filter operator.
type PredicateOp int

const (
	OpEq PredicateOp = iota + 1
	OpIn
	OpGt
	OpExists
)

func (o PredicateOp) String() string {
	switch o {
	case OpEq:
		return "=="
	case OpIn:
		return "in"
	case OpGt:
		return ">"
	case OpExists:
		return "exists"
	default:
		return fmt.Sprintf("predicate(%d)", int(o))
	}
}

// Predicate filters documents on one top-level field.
type Predicate struct {
	Field string
	Op    PredicateOp
	// Value is a scalar for OpEq and OpGt and a []any for OpIn. OpExists ignores it.
	Value any
}

func Equal(field string, v any) Predicate { return Predicate{Field: field, Op: OpEq, Value: v} }

func OneOf(field string, vs ...any) Predicate { return Predicate{Field: field, Op: OpIn, Value: vs} }

func Greater(field string, v any) Predicate { return Predicate{Field: field, Op: OpGt, Value: v} }

func Present(field string) Predicate { return Predicate{Field: field, Op: OpExists} }

// Cursor positions a query strictly after the document with the given order value and key.
type Cursor struct {
	Value any
	Key   string
}

// Query selects documents from one collection. Results are ordered by OrderBy then by key,
// both descending when Desc is set. Documents lacking the OrderBy field are excluded.
// An empty OrderBy orders by key alone.
type Query struct {
	Collection string
	Where      []Predicate
	OrderBy    string
	Desc       bool
	After      *Cursor
	Limit      int
}

var errInvalidQuery = errors.New("invalid query")

func (q Query) Validate() error {
	if q.Collection == "" {
		return fmt.Errorf("%w: missing collection", errInvalidQuery)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit", errInvalidQuery)
	}
	for _, p := range q.Where {
		if p.Field == "" || strings.ContainsAny(p.Field, "\"'\\") {
			return fmt.Errorf("%w: bad field %q", errInvalidQuery, p.Field)
		}
		switch p.Op {
		case OpEq, OpGt, OpExists:
		case OpIn:
			vs, ok := p.Value.([]any)
			if !ok || len(vs) == 0 {
				return fmt.Errorf("%w: %s needs a non-empty list", errInvalidQuery, p.Field)
			}
		default:
			return fmt.Errorf("%w: %s", errInvalidQuery, p.Op)
		}
	}
	if strings.ContainsAny(q.OrderBy, "\"'\\") {
		return fmt.Errorf("%w: bad order field %q", errInvalidQuery, q.OrderBy)
	}
	return nil
}

// Matches reports whether doc satisfies every predicate.
func Matches(doc Doc, preds []Predicate) bool {
	for _, p := range preds {
		v, ok := doc[p.Field]
		present := ok && v != nil
		switch p.Op {
		case OpExists:
			if !present {
				return false
			}
		case OpEq:
			if !present || CompareValues(v, p.Value) != 0 {
				return false
			}
		case OpIn:
			if !present {
				return false
			}
			found := false
			for _, want := range p.Value.([]any) {
				if CompareValues(v, want) == 0 {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case OpGt:
			if !present || rank(v) != rank(p.Value) || CompareValues(v, p.Value) <= 0 {
				return false
			}
		}
	}
	return true
}

// CompareValues orders scalar JSON values: null, then strings, then numbers, then booleans.
func CompareValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmpInt(ra, rb)
	}
	switch ra {
	case rankString:
		return strings.Compare(a.(string), b.(string))
	case rankNumber:
		fa, fb := toFloat(a), toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case rankBool:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		}
		return 1
	case rankOther:
		ja, _ := json.Marshal(a)
		jb, _ := json.Marshal(b)
		return strings.Compare(string(ja), string(jb))
	}
	return 0
}

const (
	rankNull = iota
	rankString
	rankNumber
	rankBool
	rankOther
)

func rank(v any) int {
	switch v.(type) {
	case nil:
		return rankNull
	case string:
		return rankString
	case json.Number, int, int32, int64, float64, float32, uint, uint32, uint64:
		return rankNumber
	case bool:
		return rankBool
	default:
		return rankOther
	}
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case json.Number:
		f, _ := x.Float64()
		return f
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	}
	return 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
