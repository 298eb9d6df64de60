package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeKeepsKeyAndJSONValue(t *testing.T) {
	msg, err := encode(Event{Key: "doc.txt", Value: map[string]int{"n": 2}})
	require.NoError(t, err)
	assert.Equal(t, []byte("doc.txt"), msg.Key)
	assert.JSONEq(t, `{"n":2}`, string(msg.Value))
}

func TestEncodeRejectsUnmarshalableValue(t *testing.T) {
	_, err := encode(Event{Key: "k", Value: make(chan int)})
	require.Error(t, err)
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	got, err := DecodeJSON[payload]([]byte(`{"name":"a.txt"}`))
	require.NoError(t, err)
	assert.Equal(t, "a.txt", got.Name)

	_, err = DecodeJSON[payload]([]byte(`{`))
	require.Error(t, err)
}
