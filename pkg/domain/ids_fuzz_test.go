package domain

import (
	"testing"

	"github.com/google/uuid"
)

// FuzzParseAccountID checks that parsing never panics on arbitrary input and
// that every accepted value round-trips through String.
func FuzzParseAccountID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("550e8400e29b41d4a716446655440000")

	f.Fuzz(func(t *testing.T, raw string) {
		id, err := ParseAccountID(raw)
		if err != nil {
			return
		}
		if uuid.UUID(id) == uuid.Nil {
			t.Fatalf("accepted nil UUID from %q", raw)
		}
		reparsed, err := ParseAccountID(id.String())
		if err != nil {
			t.Fatalf("round-trip of %q failed: %v", raw, err)
		}
		if reparsed != id {
			t.Fatalf("round-trip of %q changed the ID", raw)
		}
	})
}
