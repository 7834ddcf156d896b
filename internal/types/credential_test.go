package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEphemeralCredential_Expired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		cred    EphemeralCredential
		expired bool
	}{
		{"zero expiry never expires", EphemeralCredential{}, false},
		{"future expiry not yet expired", EphemeralCredential{ExpiresAt: now.Add(time.Hour)}, false},
		{"past expiry is expired", EphemeralCredential{ExpiresAt: now.Add(-time.Hour)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expired, tc.cred.Expired(now))
		})
	}
}
