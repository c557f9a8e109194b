// Package idgen generates globally unique, prefixed identifiers for the
// engine's entities. Prefixing improves log/trace readability without
// sacrificing uniqueness, since every ID still carries a full UUIDv4.
package idgen

import (
	"fmt"

	"github.com/google/uuid"
)

// Prefix constants identify the entity family an ID belongs to.
const (
	PrefixAgent        = "agt"
	PrefixStep         = "stp"
	PrefixToolCall      = "tc"
	PrefixSystemStep   = "sys"
	PrefixMessage      = "msg"
	PrefixEndpoint     = "ep"
	PrefixConversation = "conv"
	PrefixVariable     = "var"
	PrefixArchive      = "arc"
	PrefixSnapshot     = "snap"
	PrefixInvite       = "inv"
	PrefixCompute      = "cmp"
	PrefixEvalSuite    = "evs"
	PrefixEvalRun      = "evr"
	PrefixEvalTask     = "evt"
	PrefixRun          = "run"
)

// New returns a new identifier of the form "<prefix>_<uuidv4>".
func New(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

// Valid reports whether id carries the given prefix and a syntactically
// plausible UUID suffix. It does not verify the entity exists.
func Valid(id, prefix string) bool {
	want := prefix + "_"
	if len(id) <= len(want) || id[:len(want)] != want {
		return false
	}
	_, err := uuid.Parse(id[len(want):])
	return err == nil
}
