// Package rpc implements the node-to-node RPC surface over gRPC: WHOIS,
// LOOKUP, GET and SET. Message schemas follow the spec's schema-level
// contract; no .proto toolchain is involved — requests and responses are
// plain Go structs carried by a small JSON codec (see codec.go), and the
// service is wired directly against grpc.ServiceDesc (see service.go).
package rpc

// WhoisRequest carries no fields.
type WhoisRequest struct{}

// WhoisResponse is a node's identity.
type WhoisResponse struct {
	KeySlot uint64 `json:"key_slot"`
	Addr    string `json:"addr"`
}

// LookupRequest asks the callee to resolve key_slot, either answering
// authoritatively (Relay=false) or routing through its finger table
// (Relay=true).
type LookupRequest struct {
	KeySlot uint64 `json:"key_slot"`
	Relay   bool   `json:"relay"`
}

// LookupResponse is the resolved owner of the requested slot.
type LookupResponse struct {
	KeySlot uint64 `json:"key_slot"`
	Addr    string `json:"addr"`
}

// GetRequest asks for the value of Key, either answering from the local
// store (Relay=false) or routing to the responsible node (Relay=true).
type GetRequest struct {
	Key   string `json:"key"`
	Relay bool   `json:"relay"`
}

// GetResponse carries the found value, or Error set to a non-empty string
// (the literal "Key not found" for a missing key) when there is none. This
// is a success-path outcome, not an RPC error.
type GetResponse struct {
	Value []byte `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// SetRequest stores Value under Key, either locally (Relay=false) or
// routed to the responsible node (Relay=true).
type SetRequest struct {
	Key   string `json:"key"`
	Value []byte `json:"value"`
	Relay bool   `json:"relay"`
}

// SetResponse reports whether the set succeeded. This core always
// succeeds locally; the field exists for symmetry with GetResponse and for
// future failure modes.
type SetResponse struct {
	Success bool `json:"success"`
}
