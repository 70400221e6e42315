package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/nemory/userkeys/internal/errors"
)

// ContextEntry is a single key/value pair of an EncryptionContext.
type ContextEntry struct {
	Key   string
	Value string
}

// EncryptionContext is an ordered string map bound to a ciphertext or a wrapped key.
//
// Order matters because the serialized context is used as AEAD associated data:
// the bytes must be reproduced exactly on decrypt. JSON decoding keeps document
// order and JSON encoding writes it back unchanged.
type EncryptionContext []ContextEntry

// SerializationRule selects how an EncryptionContext is turned into AAD bytes.
type SerializationRule int

const (
	// SerializeStored keeps entries in their current order.
	SerializeStored SerializationRule = iota
	// SerializeCanonical uses the fixed key order defined by the context's "ver" entry.
	SerializeCanonical
	// SerializeSorted orders keys lexicographically.
	SerializeSorted
)

// String implements fmt.Stringer.
func (r SerializationRule) String() string {
	switch r {
	case SerializeStored:
		return "stored"
	case SerializeCanonical:
		return "canonical"
	case SerializeSorted:
		return "sorted"
	default:
		return fmt.Sprintf("rule(%d)", int(r))
	}
}

// canonicalKeyOrder lists, per context format version, the keys that lead a
// canonical serialization. Keys not listed follow in their stored order.
var canonicalKeyOrder = map[string][]string{
	ContextFormatV1: {ContextKeyApp, ContextKeyUserID, ContextKeyScope, ContextKeyVersion, ContextKeyFormat},
}

// NewEnvelopeContext builds the context bound to a single envelope.
func NewEnvelopeContext(appID, userID, scope, keyVersion string) EncryptionContext {
	return EncryptionContext{
		{Key: ContextKeyApp, Value: appID},
		{Key: ContextKeyUserID, Value: userID},
		{Key: ContextKeyScope, Value: scope},
		{Key: ContextKeyVersion, Value: keyVersion},
		{Key: ContextKeyFormat, Value: ContextFormatV1},
	}
}

// NewUserDEKContext builds the KMS context a user's DEK is wrapped under.
func NewUserDEKContext(appID, userID, keyVersion string) EncryptionContext {
	return EncryptionContext{
		{Key: ContextKeyApp, Value: appID},
		{Key: ContextKeyScope, Value: ScopeUserDEK},
		{Key: ContextKeyUserID, Value: userID},
		{Key: ContextKeyVersion, Value: keyVersion},
	}
}

// NewAppContext builds the KMS context for data keys that belong to the
// application rather than to a user. Each shared envelope wraps its own key
// under it.
func NewAppContext(appID string) EncryptionContext {
	return EncryptionContext{{Key: ContextKeyApp, Value: appID}}
}

// Get returns the value stored under key.
func (c EncryptionContext) Get(key string) (string, bool) {
	for _, e := range c {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// With returns a copy of c with key set to value. An existing key keeps its position.
func (c EncryptionContext) With(key, value string) EncryptionContext {
	out := make(EncryptionContext, 0, len(c)+1)
	found := false
	for _, e := range c {
		if e.Key == key {
			e.Value = value
			found = true
		}
		out = append(out, e)
	}
	if !found {
		out = append(out, ContextEntry{Key: key, Value: value})
	}
	return out
}

// Map returns the context as an unordered map.
func (c EncryptionContext) Map() map[string]string {
	m := make(map[string]string, len(c))
	for _, e := range c {
		m[e.Key] = e.Value
	}
	return m
}

// Equal reports whether both contexts hold the same pairs, ignoring order.
func (c EncryptionContext) Equal(other EncryptionContext) bool {
	if len(c) != len(other) {
		return false
	}
	m := c.Map()
	for _, e := range other {
		v, ok := m[e.Key]
		if !ok || v != e.Value {
			return false
		}
	}
	return true
}

// Serialize renders the context as a compact JSON object following rule.
//
// The output matches what a JavaScript JSON.stringify call produces for the
// same object, which is how envelopes written by earlier releases computed
// their AAD. SerializeCanonical fails with ErrUnsupportedFormat when the
// context carries a "ver" this build does not know.
func (c EncryptionContext) Serialize(rule SerializationRule) ([]byte, error) {
	var ordered EncryptionContext
	switch rule {
	case SerializeStored:
		ordered = c
	case SerializeCanonical:
		o, err := c.canonical()
		if err != nil {
			return nil, err
		}
		ordered = o
	case SerializeSorted:
		ordered = c.sorted()
	default:
		return nil, fmt.Errorf("unknown serialization rule %d", int(rule))
	}
	return ordered.encode()
}

func (c EncryptionContext) canonical() (EncryptionContext, error) {
	ver, ok := c.Get(ContextKeyFormat)
	if !ok {
		ver = ContextFormatV1
	}
	order, ok := canonicalKeyOrder[ver]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "context format %q", ver)
	}

	out := make(EncryptionContext, 0, len(c))
	leading := make(map[string]struct{}, len(order))
	for _, key := range order {
		leading[key] = struct{}{}
		if v, ok := c.Get(key); ok {
			out = append(out, ContextEntry{Key: key, Value: v})
		}
	}
	for _, e := range c {
		if _, ok := leading[e.Key]; !ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (c EncryptionContext) sorted() EncryptionContext {
	out := make(EncryptionContext, len(c))
	copy(out, c)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (c EncryptionContext) encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(&buf, e.Key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSONString(&buf, e.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// writeJSONString appends s as a JSON string without HTML escaping.
func writeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// MarshalJSON writes the context as a JSON object in stored order.
func (c EncryptionContext) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	return c.encode()
}

// UnmarshalJSON reads a JSON object of strings, keeping document order.
// A repeated key keeps its first position and takes the last value.
func (c *EncryptionContext) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*c = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("encryption context must be a JSON object")
	}

	out := EncryptionContext{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("encryption context key must be a string")
		}

		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		value, ok := valTok.(string)
		if !ok {
			return fmt.Errorf("encryption context value for %q must be a string", key)
		}
		out = out.With(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*c = out
	return nil
}
