package redis

import (
	"strings"
	"testing"
)

func TestKey_HidesToken(t *testing.T) {
	token := "eyJhbGciOiJIUzI1NiJ9.payload.signature"
	k := key(token)

	if !strings.HasPrefix(k, revokedPrefix) {
		t.Fatalf("key %q lacks prefix", k)
	}
	if strings.Contains(k, token) {
		t.Fatalf("raw token leaked into key")
	}
	if k != key(token) {
		t.Fatalf("key must be stable")
	}
}

func TestKey_KnownDigest(t *testing.T) {
	const want = revokedPrefix + "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := key("abc"); got != want {
		t.Fatalf("key(abc) = %s", got)
	}
}
