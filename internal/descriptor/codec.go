package descriptor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"
)

const indent = "  "

var (
	ErrParse     = errors.New("invalid JSON")
	ErrNotObject = errors.New("top-level JSON value is not an object")
	ErrSerialize = errors.New("cannot serialize descriptor")
)

// Parse parses data as a top-level JSON object, keeping key order.
// A key that appears twice keeps its first position and its last value.
func Parse(data []byte) (*Object, error) {
	// The token stream below assumes well-formed input.
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: malformed or truncated document", ErrParse)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after top-level value", ErrParse)
	}
	obj, ok := v.AsObject()
	if !ok {
		return nil, fmt.Errorf("%w: got %s", ErrNotObject, v.Kind())
	}
	return obj, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok any) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(t.String()), nil
	case float64:
		return Number(strconv.FormatFloat(t, 'g', -1, 64)), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
		return Value{}, fmt.Errorf("unexpected delimiter %q", rune(t))
	}
	return Value{}, fmt.Errorf("unexpected token %v (%T)", tok, tok)
}

func decodeObject(dec *json.Decoder) (Value, error) {
	obj := NewObject()
	for {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		if d, ok := tok.(json.Delim); ok && d == '}' {
			return ObjectValue(obj), nil
		}
		key, ok := tok.(string)
		if !ok {
			return Value{}, fmt.Errorf("object key is %T, not a string", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return Value{}, fmt.Errorf("value of %q: %w", key, err)
		}
		obj.Set(key, v)
	}
}

func decodeArray(dec *json.Decoder) (Value, error) {
	elems := []Value{}
	for {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		if d, ok := tok.(json.Delim); ok && d == ']' {
			return Array(elems...), nil
		}
		v, err := decodeToken(dec, tok)
		if err != nil {
			return Value{}, fmt.Errorf("array element %d: %w", len(elems), err)
		}
		elems = append(elems, v)
	}
}

// Marshal renders obj as two-space indented JSON followed by a newline,
// keeping key order.
func Marshal(obj *Object) ([]byte, error) {
	var compact bytes.Buffer
	if err := writeValue(&compact, ObjectValue(obj)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialize, err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", indent); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialize, err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, v Value) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		if !json.Valid([]byte(v.s)) {
			return fmt.Errorf("invalid number literal %q", v.s)
		}
		buf.WriteString(v.s)
	case KindString:
		return writeString(buf, v.s)
	case KindArray:
		buf.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, k := range v.obj.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			e, _ := v.obj.Get(k)
			if err := writeValue(buf, e); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown value kind %d", v.kind)
	}
	return nil
}

// writeString writes s as a JSON string without HTML escaping, matching
// what npm tooling emits for package.json files.
func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}
