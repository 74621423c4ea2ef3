package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTarget_MarshalSingle(t *testing.T) {
	data, err := json.Marshal(Target{"all"})
	require.NoError(t, err)
	assert.Equal(t, `"all"`, string(data))
}

func TestTarget_MarshalMany(t *testing.T) {
	data, err := json.Marshal(Target{"a", "b"})
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(data))
}

func TestTarget_UnmarshalBothForms(t *testing.T) {
	var single Target
	require.NoError(t, json.Unmarshal([]byte(`"all"`), &single))
	assert.Equal(t, Target{"all"}, single)

	var many Target
	require.NoError(t, json.Unmarshal([]byte(`["a","b"]`), &many))
	assert.Equal(t, Target{"a", "b"}, many)
}

func TestExtra_UnknownFieldsSurvive(t *testing.T) {
	in := `{"caption":"hi","customField":{"x":1},"urls":["http://x.co"]}`

	var e Extra
	require.NoError(t, json.Unmarshal([]byte(in), &e))
	assert.Equal(t, "hi", e.Caption)
	assert.Equal(t, []string{"http://x.co"}, e.URLs)
	require.Contains(t, e.Unknown, "customField")

	out, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestNumberish_AcceptsNumberAndString(t *testing.T) {
	var e Extra
	require.NoError(t, json.Unmarshal([]byte(`{"conversation":-100123,"message":"42"}`), &e))
	assert.Equal(t, Numberish("-100123"), e.Conversation)

	id, err := e.Message.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestNumberish_MarshalNumericAsNumber(t *testing.T) {
	data, err := json.Marshal(Numberish("42"))
	require.NoError(t, err)
	assert.Equal(t, "42", string(data))
}

func TestDecodeFrame_Malformed(t *testing.T) {
	_, err := DecodeFrame([]byte("not json"))
	assert.Error(t, err)

	_, err = DecodeFrame([]byte(`{"bot":"x"}`))
	assert.Error(t, err, "frame without a type tag is rejected")
}

func TestDecodeFrame_Message(t *testing.T) {
	raw := `{"bot":"hub","platform":"telegram","type":"message","message":{"conversation":{"id":"1"},"content":"hi","type":"text"}}`
	f, err := DecodeFrame([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, EnvelopeMessage, f.Type)
	require.NotNil(t, f.Message)
	assert.Equal(t, "hi", f.Message.Content)
	assert.Equal(t, TypeText, f.Message.Type)
	assert.JSONEq(t, raw, string(f.Raw))
}

func TestInitEnvelope_Shape(t *testing.T) {
	env := InitEnvelope{
		Envelope: Envelope{Bot: "relaybot", Platform: "telegram", Type: EnvelopeInit},
		User:     User{ID: 7, FirstName: "Relay", Username: "relaybot", IsBot: true},
		Config:   json.RawMessage(`{"broadcastConversationId":1}`),
	}
	data, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "bot")
	assert.Contains(t, decoded, "user")
	assert.Contains(t, decoded, "config")
	assert.Equal(t, `"init"`, string(decoded["type"]))
}
