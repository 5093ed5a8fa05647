// Package idgen provides ID primitives used for log correlation.
//
// The store's durable rows use plain auto-increment integers (per the data
// model); ULIDs here are only minted per accepted connection so related log
// lines can be grepped together without threading a request ID through every
// call.
package idgen

import (
	"github.com/oklog/ulid/v2"
)

// NewConnID returns a new lexicographically sortable ULID string (26 chars).
func NewConnID() string {
	return ulid.Make().String()
}
