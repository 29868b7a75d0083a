package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONCodec(t *testing.T) {
	type info struct {
		LastEvent uint64 `json:"last_event"`
	}

	data, err := JSONCodec{}.Marshal(info{LastEvent: 7})
	require.NoError(t, err)
	require.Equal(t, "{\n  \"last_event\": 7\n}", string(data))

	var out info
	require.NoError(t, CompactJSONCodec{}.Unmarshal(data, &out))
	require.Equal(t, uint64(7), out.LastEvent)

	data, err = CompactJSONCodec{}.Marshal(out)
	require.NoError(t, err)
	require.Equal(t, `{"last_event":7}`, string(data))
}
