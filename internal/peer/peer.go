// Package peer defines the immutable identity of a ring participant.
package peer

import (
	"fmt"

	"chordkv/internal/ring"
)

// Info is a node's identity: its ring position and network address.
// Immutable once constructed; two Infos are equal iff both fields match.
type Info struct {
	KeySlot ring.ID
	Addr    string
}

// Equal reports whether both fields match.
func (n Info) Equal(other Info) bool {
	return n.KeySlot == other.KeySlot && n.Addr == other.Addr
}

func (n Info) String() string {
	return fmt.Sprintf("%d@%s", n.KeySlot, n.Addr)
}
