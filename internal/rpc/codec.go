package rpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// codecName is registered with gRPC as the content-subtype used on the
// wire. The schema in messages.go is authoritative; this codec only
// decides how those Go structs are serialized, which spec.md leaves
// unspecified at the byte level.
const codecName = "json"

// jsonCodec implements google.golang.org/grpc/encoding.Codec using
// encoding/json instead of protobuf wire format — there is no .proto
// toolchain in this build, and the request/response types in messages.go are plain
// structs, not generated protobuf messages.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("rpc: marshal %T: %w", v, err)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("rpc: unmarshal %T: %w", v, err)
	}
	return nil
}

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
