package session

import (
	"testing"
	"time"
)

func TestValidAtBuffer(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name      string
		expiresIn time.Duration
		want      bool
	}{
		{"well before expiry", time.Hour, true},
		{"just outside buffer", ValidityBuffer + time.Second, true},
		{"exactly at buffer", ValidityBuffer, true},
		{"inside buffer", ValidityBuffer - time.Second, false},
		{"expired", -time.Minute, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sess := &Session{
				AccessToken: "at",
				ExpiresAt:   now.Add(tc.expiresIn),
			}
			if got := sess.ValidAt(now); got != tc.want {
				t.Fatalf("ValidAt with %v remaining = %v, want %v", tc.expiresIn, got, tc.want)
			}
		})
	}
}

func TestValidAtNilSession(t *testing.T) {
	var sess *Session
	if sess.ValidAt(time.Now()) {
		t.Fatal("nil session must not be valid")
	}
}

func TestCloneIndependence(t *testing.T) {
	orig := &Session{AccessToken: "at", RefreshToken: "rt"}
	cp := orig.clone()
	cp.AccessToken = "changed"

	if orig.AccessToken != "at" {
		t.Fatal("clone shares memory with original")
	}
}
