package codec

import "encoding/json"

type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec writes indented JSON so values stay readable when inspected on disk.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error)   { return json.MarshalIndent(v, "", "  ") }
func (JSONCodec) Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }

// CompactJSONCodec is used for backends that are inspected through tools rather than by eye.
type CompactJSONCodec struct{}

func (CompactJSONCodec) Marshal(v any) ([]byte, error)   { return json.Marshal(v) }
func (CompactJSONCodec) Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }

// Default is the codec used by the kv helpers for stores that do not pick their own.
func Default() Codec { return JSONCodec{} }
