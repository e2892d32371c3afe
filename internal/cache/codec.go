package cache

import "github.com/bytedance/sonic"

// Codec turns cached values into bytes and back.
type Codec interface {
	Marshal(value any) ([]byte, error)
	Unmarshal(data []byte, dest any) error
}

// JSONCodec encodes values as JSON.
type JSONCodec struct{}

func (JSONCodec) Marshal(value any) ([]byte, error) {
	return sonic.Marshal(value)
}

func (JSONCodec) Unmarshal(data []byte, dest any) error {
	return sonic.Unmarshal(data, dest)
}
