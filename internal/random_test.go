package internal

import "testing"

func TestSessionTokenRoundTrip(t *testing.T) {
	tok, err := NewSessionToken()
	if err != nil {
		t.Fatalf("NewSessionToken error: %v", err)
	}

	s := tok.String()
	if len(s) != 43 {
		t.Fatalf("expected 43-char token, got %d (%s)", len(s), s)
	}

	parsed, err := ParseSessionToken(s)
	if err != nil {
		t.Fatalf("ParseSessionToken error: %v", err)
	}
	if parsed != tok {
		t.Fatal("round trip mismatch")
	}
}

func TestSessionTokensAreUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		tok, err := NewSessionToken()
		if err != nil {
			t.Fatalf("NewSessionToken error: %v", err)
		}
		s := tok.String()
		if _, dup := seen[s]; dup {
			t.Fatal("duplicate token generated")
		}
		seen[s] = struct{}{}
	}
}

func TestParseSessionTokenRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "short", "!!!not-base64url!!!", "AAAA"} {
		if _, err := ParseSessionToken(in); err == nil {
			t.Fatalf("expected parse failure for %q", in)
		}
	}
}
