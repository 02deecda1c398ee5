package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEntryTTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := now.Add(d)
		return &v
	}

	cases := []struct {
		name      string
		ttl       time.Duration
		expiresAt *time.Time
		want      time.Duration
	}{
		{"default when unset", 0, nil, 5 * time.Minute},
		{"requested ttl", time.Minute, nil, time.Minute},
		{"capped at default", time.Hour, nil, 5 * time.Minute},
		{"capped at expiry", time.Minute, at(20 * time.Second), 20 * time.Second},
		{"expiry beyond ttl", time.Minute, at(time.Hour), time.Minute},
		{"already expired", time.Minute, at(-time.Second), 0},
		{"expiring now", time.Minute, at(0), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := entryTTL(tc.ttl, 5*time.Minute, tc.expiresAt, now)
			assert.Equal(t, tc.want, got)
			if tc.expiresAt != nil {
				assert.False(t, now.Add(got).After(*tc.expiresAt))
			}
		})
	}
}

func TestNewTokenCacheDefaultTTL(t *testing.T) {
	assert.Equal(t, 5*time.Minute, NewTokenCache(nil, 0).defaultTTL)
	assert.Equal(t, time.Minute, NewTokenCache(nil, time.Minute).defaultTTL)
}
