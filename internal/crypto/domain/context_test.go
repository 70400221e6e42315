package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelopeContext(t *testing.T) {
	ctx := NewEnvelopeContext("nemory", "42", "entry.content", "1")

	require.Len(t, ctx, 5)
	assert.Equal(t, "app", ctx[0].Key)
	assert.Equal(t, "uid", ctx[1].Key)
	assert.Equal(t, "scope", ctx[2].Key)
	assert.Equal(t, "kver", ctx[3].Key)
	assert.Equal(t, "ver", ctx[4].Key)

	ver, ok := ctx.Get(ContextKeyFormat)
	assert.True(t, ok)
	assert.Equal(t, ContextFormatV1, ver)
}

func TestNewUserDEKContext(t *testing.T) {
	ctx := NewUserDEKContext("nemory", "42", "3")

	assert.Equal(t, map[string]string{
		"app":   "nemory",
		"scope": "user_dek",
		"uid":   "42",
		"kver":  "3",
	}, ctx.Map())
}

func TestNewAppContext(t *testing.T) {
	encCtx := NewAppContext("nemory")

	assert.Equal(t, EncryptionContext{{Key: "app", Value: "nemory"}}, encCtx)
	assert.False(t, encCtx.Equal(NewUserDEKContext("nemory", "42", "1")))
}

func TestEncryptionContext_Serialize(t *testing.T) {
	ctx := NewEnvelopeContext("nemory", "42", "entry.content", "1")

	t.Run("stored order matches JSON.stringify", func(t *testing.T) {
		out, err := ctx.Serialize(SerializeStored)
		require.NoError(t, err)
		assert.Equal(t, `{"app":"nemory","uid":"42","scope":"entry.content","kver":"1","ver":"1"}`, string(out))
	})

	t.Run("sorted order", func(t *testing.T) {
		out, err := ctx.Serialize(SerializeSorted)
		require.NoError(t, err)
		assert.Equal(t, `{"app":"nemory","kver":"1","scope":"entry.content","uid":"42","ver":"1"}`, string(out))
	})

	t.Run("canonical restores order after a jsonb round trip", func(t *testing.T) {
		// jsonb orders keys by length, then bytewise.
		reordered := EncryptionContext{
			{Key: "app", Value: "nemory"},
			{Key: "uid", Value: "42"},
			{Key: "ver", Value: "1"},
			{Key: "kver", Value: "1"},
			{Key: "scope", Value: "entry.content"},
		}

		canonical, err := reordered.Serialize(SerializeCanonical)
		require.NoError(t, err)
		stored, err := ctx.Serialize(SerializeStored)
		require.NoError(t, err)
		assert.Equal(t, stored, canonical)
	})

	t.Run("canonical keeps unknown keys after the fixed ones", func(t *testing.T) {
		extended := EncryptionContext{{Key: "zone", Value: "eu"}}
		for _, e := range ctx {
			extended = append(extended, e)
		}

		out, err := extended.Serialize(SerializeCanonical)
		require.NoError(t, err)
		assert.Equal(
			t,
			`{"app":"nemory","uid":"42","scope":"entry.content","kver":"1","ver":"1","zone":"eu"}`,
			string(out),
		)
	})

	t.Run("canonical without ver uses format 1", func(t *testing.T) {
		legacy := EncryptionContext{
			{Key: "uid", Value: "7"},
			{Key: "app", Value: "nemory"},
		}

		out, err := legacy.Serialize(SerializeCanonical)
		require.NoError(t, err)
		assert.Equal(t, `{"app":"nemory","uid":"7"}`, string(out))
	})

	t.Run("canonical rejects unknown format", func(t *testing.T) {
		future := ctx.With(ContextKeyFormat, "9")

		_, err := future.Serialize(SerializeCanonical)
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("no HTML escaping", func(t *testing.T) {
		c := EncryptionContext{{Key: "scope", Value: "a<b>&c"}}

		out, err := c.Serialize(SerializeStored)
		require.NoError(t, err)
		assert.Equal(t, `{"scope":"a<b>&c"}`, string(out))
	})

	t.Run("non-ASCII written as UTF-8", func(t *testing.T) {
		c := EncryptionContext{{Key: "scope", Value: "дневник"}}

		out, err := c.Serialize(SerializeStored)
		require.NoError(t, err)
		assert.Equal(t, `{"scope":"дневник"}`, string(out))
	})

	t.Run("quotes and control characters escaped", func(t *testing.T) {
		c := EncryptionContext{{Key: "scope", Value: "a\"b\n"}}

		out, err := c.Serialize(SerializeStored)
		require.NoError(t, err)
		assert.Equal(t, `{"scope":"a\"b\n"}`, string(out))
	})

	t.Run("empty context", func(t *testing.T) {
		out, err := EncryptionContext{}.Serialize(SerializeSorted)
		require.NoError(t, err)
		assert.Equal(t, `{}`, string(out))
	})
}

func TestEncryptionContext_With(t *testing.T) {
	ctx := NewEnvelopeContext("nemory", "42", "entry.content", "1")

	t.Run("replace keeps position", func(t *testing.T) {
		changed := ctx.With(ContextKeyScope, "dialog.answer")

		assert.Equal(t, "scope", changed[2].Key)
		assert.Equal(t, "dialog.answer", changed[2].Value)
		// original is untouched
		assert.Equal(t, "entry.content", ctx[2].Value)
	})

	t.Run("new key appended", func(t *testing.T) {
		changed := ctx.With("zone", "eu")

		require.Len(t, changed, 6)
		assert.Equal(t, ContextEntry{Key: "zone", Value: "eu"}, changed[5])
	})
}

func TestEncryptionContext_Equal(t *testing.T) {
	a := NewUserDEKContext("nemory", "42", "1")
	b := a.sorted()

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(a.With(ContextKeyUserID, "43")))
	assert.False(t, a.Equal(a.With("extra", "x")))
}

func TestEncryptionContext_JSON(t *testing.T) {
	t.Run("unmarshal keeps document order", func(t *testing.T) {
		var ctx EncryptionContext
		err := json.Unmarshal([]byte(`{"uid":"42","app":"nemory","ver":"1"}`), &ctx)
		require.NoError(t, err)

		assert.Equal(t, EncryptionContext{
			{Key: "uid", Value: "42"},
			{Key: "app", Value: "nemory"},
			{Key: "ver", Value: "1"},
		}, ctx)

		out, err := json.Marshal(ctx)
		require.NoError(t, err)
		assert.Equal(t, `{"uid":"42","app":"nemory","ver":"1"}`, string(out))
	})

	t.Run("duplicate key keeps first position and last value", func(t *testing.T) {
		var ctx EncryptionContext
		err := json.Unmarshal([]byte(`{"a":"1","b":"2","a":"3"}`), &ctx)
		require.NoError(t, err)

		assert.Equal(t, EncryptionContext{
			{Key: "a", Value: "3"},
			{Key: "b", Value: "2"},
		}, ctx)
	})

	t.Run("null", func(t *testing.T) {
		ctx := EncryptionContext{{Key: "a", Value: "1"}}
		err := json.Unmarshal([]byte(`null`), &ctx)
		require.NoError(t, err)
		assert.Nil(t, ctx)
	})

	t.Run("non-string value", func(t *testing.T) {
		var ctx EncryptionContext
		err := json.Unmarshal([]byte(`{"kver":1}`), &ctx)
		assert.Error(t, err)
	})

	t.Run("not an object", func(t *testing.T) {
		var ctx EncryptionContext
		err := json.Unmarshal([]byte(`["a"]`), &ctx)
		assert.Error(t, err)
	})
}
