package utils

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInstant(t *testing.T) {
	want := time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  any
		want time.Time
		ok   bool
	}{
		{"rfc3339", "2024-05-17T10:30:00Z", want, true},
		{"date only", "2024-05-17", time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC), true},
		{"unix seconds", int64(1715941800), want, true},
		{"unix millis", int64(1715941800000), want, true},
		{"unix seconds float", float64(1715941800), want, true},
		{"unix seconds string", "1715941800", want, true},
		{"json number", json.Number("1715941800"), want, true},
		{"time value", want, want, true},
		{"garbage", "not a date", time.Time{}, false},
		{"nil", nil, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseInstant(tt.raw)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
			}
		})
	}
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"f1", "f2"}, Dedupe([]string{"f1", "f2", "f1", "", "f2"}))
	assert.Empty(t, Dedupe(nil))
}
