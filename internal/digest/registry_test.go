package digest

import (
	"crypto/sha1"
	"testing"
)

func replaceRegistry(t *testing.T) func() {
	t.Helper()
	prev := globalRegistry
	globalRegistry = newRegistry()
	return func() { globalRegistry = prev }
}

func TestBuiltinAlgorithmsRegistered(t *testing.T) {
	for _, name := range []string{"sha1", "sha256", "sha512", "md5", "blake2b-256", "blake2b-512", "blake3"} {
		alg, ok := Lookup(name)
		if !ok {
			t.Fatalf("expected %s to be registered", name)
		}
		if got := alg.New().Size(); got != alg.Size {
			t.Fatalf("%s: declared size %d, constructor size %d", name, alg.Size, got)
		}
	}
	if _, ok := Lookup("SHA1"); !ok {
		t.Fatalf("lookup should be case-insensitive")
	}
}

func TestRegisterDuplicateFails(t *testing.T) {
	cleanup := replaceRegistry(t)
	defer cleanup()

	if err := Register(Algorithm{Name: "sha1", New: sha1.New}); err != nil {
		t.Fatalf("first registration should succeed: %v", err)
	}
	if err := Register(Algorithm{Name: "SHA1", New: sha1.New}); err == nil {
		t.Fatalf("duplicate registration should fail")
	}
	if names := Names(); len(names) != 1 || names[0] != "sha1" {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestRegisterRequiresConstructor(t *testing.T) {
	cleanup := replaceRegistry(t)
	defer cleanup()

	if err := Register(Algorithm{Name: "nothing"}); err == nil {
		t.Fatalf("registration without constructor should fail")
	}
	if err := Register(Algorithm{New: sha1.New}); err == nil {
		t.Fatalf("registration without name should fail")
	}
}
