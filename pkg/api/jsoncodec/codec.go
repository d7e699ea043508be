// Package jsoncodec registers a gRPC codec that carries plain Go structs as JSON.
package jsoncodec

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// Name is the content subtype of services whose messages are plain Go structs.
// Clients select it with grpc.CallContentSubtype(Name).
const Name = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return Name
}
