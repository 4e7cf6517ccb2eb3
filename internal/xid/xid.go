package xid

import (
	"github.com/google/uuid"
)

// New returns a random identifier tagged with prefix, e.g. "req-5f0c...".
func New(prefix string) string {
	id := uuid.NewString()
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}

// Valid reports whether id carries a well-formed UUID after its prefix.
func Valid(id string, prefix string) bool {
	if prefix != "" {
		if len(id) <= len(prefix)+1 || id[:len(prefix)+1] != prefix+"-" {
			return false
		}
		id = id[len(prefix)+1:]
	}
	_, err := uuid.Parse(id)
	return err == nil
}
