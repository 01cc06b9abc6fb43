package session

import (
	"errors"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	now := time.Now().Unix()
	orig := &Session{
		Token:        "tok-abc",
		Username:     "alice",
		Role:         "manager",
		CreatedAt:    now - 120,
		LastActivity: now,
	}

	data, err := Encode(orig)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode("tok-abc", data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if *got != *orig {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, orig)
	}
}

func TestEncodeRejectsInvalidFields(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}

	cases := []struct {
		name string
		sess Session
	}{
		{"empty username", Session{Role: "viewer"}},
		{"empty role", Session{Username: "alice"}},
		{"oversized username", Session{Username: string(long), Role: "viewer"}},
		{"oversized role", Session{Username: "alice", Role: string(long)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Encode(&tc.sess); !errors.Is(err, ErrCorrupt) {
				t.Fatalf("expected ErrCorrupt, got %v", err)
			}
		})
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	valid, err := Encode(&Session{Username: "alice", Role: "viewer", CreatedAt: 1, LastActivity: 2})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	cases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"too short", valid[:4]},
		{"truncated timestamps", valid[:len(valid)-3]},
		{"trailing garbage", append(append([]byte{}, valid...), 0xFF)},
		{"username overflow", []byte{codecVersion, 200, 'a', 'b'}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode("tok", tc.data); err == nil {
				t.Fatal("expected decode error")
			}
		})
	}
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	data, err := Encode(&Session{Username: "alice", Role: "viewer", CreatedAt: 1, LastActivity: 2})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	data[0] = 99
	if _, err := Decode("tok", data); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func FuzzDecode(f *testing.F) {
	seed, err := Encode(&Session{Username: "alice", Role: "admin", CreatedAt: 100, LastActivity: 200})
	if err != nil {
		f.Fatalf("Encode: %v", err)
	}
	f.Add(seed)
	f.Add([]byte{})
	f.Add([]byte{codecVersion})
	f.Add([]byte{codecVersion, 0})

	f.Fuzz(func(t *testing.T, data []byte) {
		sess, err := Decode("tok", data)
		if err != nil {
			return
		}
		// Anything that decodes must re-encode to the same bytes.
		out, err := Encode(sess)
		if err != nil {
			t.Fatalf("re-encode of decoded session failed: %v", err)
		}
		if string(out) != string(data) {
			t.Fatalf("re-encode mismatch: got %x want %x", out, data)
		}
	})
}
