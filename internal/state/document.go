package state

import (
	"errors"
	"fmt"
	"math"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// VersionKey is the root key holding the schema version stamp.
const VersionKey = "schemaVersion"

// ErrMalformed reports a document whose structure cannot be interpreted,
// e.g. a non-object root or a providers value that is not an array.
var ErrMalformed = errors.New("malformed document")

// Document is an immutable JSON object.
type Document struct {
	raw []byte
}

// Parse validates data and returns a Document holding a private copy of it.
// The root value must be a JSON object.
func Parse(data []byte) (Document, error) {
	if !gjson.ValidBytes(data) {
		return Document{}, fmt.Errorf("%w: invalid json", ErrMalformed)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return Document{}, fmt.Errorf("%w: root is %s, want object", ErrMalformed, describe(root))
	}
	raw := make([]byte, len(data))
	copy(raw, data)
	return Document{raw: raw}, nil
}

// Empty returns the empty object document.
func Empty() Document {
	return Document{raw: []byte("{}")}
}

// IsZero reports whether d is the zero Document (never parsed).
func (d Document) IsZero() bool {
	return d.raw == nil
}

// Bytes returns a copy of the raw JSON.
func (d Document) Bytes() []byte {
	if d.raw == nil {
		return nil
	}
	out := make([]byte, len(d.raw))
	copy(out, d.raw)
	return out
}

func (d Document) String() string {
	return string(d.raw)
}

// MaxVersion bounds the schema version stamp.
const MaxVersion = math.MaxInt32

// Version returns the schema version stamp. A missing stamp is version 0.
func (d Document) Version() (int, error) {
	r := d.Get(VersionKey)
	if !r.Exists() || r.Type == gjson.Null {
		return 0, nil
	}
	if r.Type != gjson.Number {
		return 0, fmt.Errorf("%w: %s is %s, want integer", ErrMalformed, VersionKey, describe(r))
	}
	if r.Num < 0 || r.Num != math.Trunc(r.Num) {
		return 0, fmt.Errorf("%w: %s is %s, want non-negative integer", ErrMalformed, VersionKey, r.Raw)
	}
	if r.Num > MaxVersion {
		return 0, fmt.Errorf("%w: %s is %s, above %d", ErrMalformed, VersionKey, r.Raw, MaxVersion)
	}
	return int(r.Num), nil
}

// WithVersion returns a copy of d stamped with version.
func (d Document) WithVersion(version int) (Document, error) {
	return d.Set(VersionKey, version)
}

// Get reads a gjson path.
func (d Document) Get(path string) gjson.Result {
	return gjson.GetBytes(d.raw, path)
}

// Has reports whether path resolves to a value, including null.
func (d Document) Has(path string) bool {
	return d.Get(path).Exists()
}

// Set writes a scalar (or json-encodable) value at path.
func (d Document) Set(path string, value any) (Document, error) {
	out, err := sjson.SetBytes(d.base(), path, value)
	if err != nil {
		return d, fmt.Errorf("set %s: %w", path, err)
	}
	return Document{raw: out}, nil
}

// SetRaw writes pre-encoded JSON at path.
func (d Document) SetRaw(path string, raw []byte) (Document, error) {
	if !gjson.ValidBytes(raw) {
		return d, fmt.Errorf("set %s: invalid json value", path)
	}
	out, err := sjson.SetRawBytes(d.base(), path, raw)
	if err != nil {
		return d, fmt.Errorf("set %s: %w", path, err)
	}
	return Document{raw: out}, nil
}

// SetDefault writes value at path only when nothing is stored there yet.
func (d Document) SetDefault(path string, value any) (Document, error) {
	if d.Has(path) {
		return d, nil
	}
	return d.Set(path, value)
}

// SetDefaultRaw is SetDefault for pre-encoded JSON.
func (d Document) SetDefaultRaw(path string, raw []byte) (Document, error) {
	if d.Has(path) {
		return d, nil
	}
	return d.SetRaw(path, raw)
}

// Delete removes path. Deleting a missing path is a no-op.
func (d Document) Delete(path string) (Document, error) {
	if !d.Has(path) {
		return d, nil
	}
	out, err := sjson.DeleteBytes(d.base(), path)
	if err != nil {
		return d, fmt.Errorf("delete %s: %w", path, err)
	}
	return Document{raw: out}, nil
}

// Decode unmarshals the value at path into v. A missing path leaves v as is.
func (d Document) Decode(path string, v any) error {
	r := d.Get(path)
	if !r.Exists() {
		return nil
	}
	if err := json.Unmarshal([]byte(r.Raw), v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrMalformed, path, err)
	}
	return nil
}

// Providers decodes the provider collection. A missing or null collection
// yields an empty slice; anything other than an array of objects is malformed.
func (d Document) Providers() ([]Provider, error) {
	r := d.Get("providers")
	if !r.Exists() || r.Type == gjson.Null {
		return []Provider{}, nil
	}
	if !r.IsArray() {
		return nil, fmt.Errorf("%w: providers is %s, want array", ErrMalformed, describe(r))
	}

	items := r.Array()
	providers := make([]Provider, 0, len(items))
	for i, item := range items {
		if !item.IsObject() {
			return nil, fmt.Errorf("%w: providers[%d] is %s, want object", ErrMalformed, i, describe(item))
		}
		var p Provider
		if err := json.Unmarshal([]byte(item.Raw), &p); err != nil {
			return nil, fmt.Errorf("%w: providers[%d]: %v", ErrMalformed, i, err)
		}
		providers = append(providers, p)
	}
	return providers, nil
}

// WithProviders returns a copy of d with the provider collection replaced.
func (d Document) WithProviders(providers []Provider) (Document, error) {
	if providers == nil {
		providers = []Provider{}
	}
	raw, err := json.Marshal(providers)
	if err != nil {
		return d, fmt.Errorf("encode providers: %w", err)
	}
	return d.SetRaw("providers", raw)
}

func (d Document) base() []byte {
	if d.raw == nil {
		return []byte("{}")
	}
	return d.raw
}

func describe(r gjson.Result) string {
	switch r.Type {
	case gjson.Null:
		return "null"
	case gjson.False, gjson.True:
		return "boolean"
	case gjson.Number:
		return "number"
	case gjson.String:
		return "string"
	case gjson.JSON:
		if r.IsArray() {
			return "array"
		}
		return "object"
	default:
		return "missing"
	}
}
