package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Apply computes the effect of w on a stored document. exists reports whether current
// is a stored document. keep is false when the document must be deleted.
// Backends call Apply inside their transaction so write semantics are identical everywhere.
func Apply(current Doc, exists bool, w Write) (next Doc, keep bool, err error) {
	if err := checkExpect(current, exists, w); err != nil {
		return nil, false, err
	}
	switch w.Op {
	case OpCreate:
		if exists {
			return nil, false, fmt.Errorf("%w: %s already exists", ErrPrecondition, w.Ref)
		}
		next, err = merge(nil, w.Fields)
		return next, err == nil, err
	case OpSet:
		base := current
		if !exists && len(w.OnCreate) > 0 {
			if base, err = merge(nil, w.OnCreate); err != nil {
				return nil, false, err
			}
		}
		next, err = merge(base, w.Fields)
		return next, err == nil, err
	case OpPatch:
		if !exists {
			return nil, false, fmt.Errorf("%w: %s does not exist", ErrPrecondition, w.Ref)
		}
		next, err = merge(current, w.Fields)
		return next, err == nil, err
	case OpDelete:
		if !exists && w.MustExist {
			return nil, false, fmt.Errorf("%w: %s does not exist", ErrPrecondition, w.Ref)
		}
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("%s: unknown op %d", w.Ref, int(w.Op))
	}
}

func checkExpect(current Doc, exists bool, w Write) error {
	if len(w.Expect) == 0 {
		return nil
	}
	if !exists {
		return fmt.Errorf("%w: %s does not exist", ErrPrecondition, w.Ref)
	}
	want, err := Normalize(w.Expect)
	if err != nil {
		return err
	}
	for k, v := range want {
		have, ok := current[k]
		if !ok || CompareValues(have, v) != 0 {
			return fmt.Errorf("%w: %s field %q is %v, expected %v", ErrPrecondition, w.Ref, k, have, v)
		}
	}
	return nil
}

func merge(base Doc, fields Doc) (Doc, error) {
	out := make(Doc, len(base)+len(fields))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range fields {
		switch x := v.(type) {
		case Increment:
			cur, err := Int64(out[k])
			if err != nil {
				return nil, fmt.Errorf("increment %q: %w", k, err)
			}
			out[k] = cur + int64(x)
		case removeField:
			delete(out, k)
		default:
			out[k] = v
		}
	}
	return Normalize(out)
}

// Int64 reads an integer field value. nil reads as zero.
func Int64(v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case float64:
		if x != float64(int64(x)) {
			return 0, fmt.Errorf("non-integer number %v", x)
		}
		return int64(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		f, err := x.Float64()
		if err != nil || f != float64(int64(f)) {
			return 0, fmt.Errorf("non-integer number %s", x)
		}
		return int64(f), nil
	case string:
		return strconv.ParseInt(x, 10, 64)
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}

// Marshal encodes a document for storage.
func Marshal(doc Doc) ([]byte, error) {
	if doc == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(doc)
}

// Unmarshal decodes a stored document, keeping numbers as json.Number.
func Unmarshal(raw []byte) (Doc, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	doc := Doc{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// Normalize returns a deep copy of doc holding only JSON-decoded value types.
func Normalize(doc Doc) (Doc, error) {
	raw, err := Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return Unmarshal(raw)
}

// Encode converts a tagged struct into a document.
func Encode(v any) (Doc, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return Unmarshal(raw)
}

// Decode fills a tagged struct from a document.
func Decode(doc Doc, v any) error {
	raw, err := Marshal(doc)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}
