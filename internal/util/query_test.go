package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeFlexible(t *testing.T) {
	want := time.Date(2024, 3, 5, 7, 8, 9, 0, time.UTC)
	tests := []struct {
		name string
		in   string
	}{
		{"rfc3339", "2024-03-05T07:08:09Z"},
		{"rfc3339 offset", "2024-03-05T09:08:09+02:00"},
		{"epoch millis", "1709622489000"},
		{"versalex date", "2024/03/05 07:08:09"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimeFlexible(tt.in, time.UTC)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s", got)
		})
	}

	_, err := ParseTimeFlexible("yesterday", time.UTC)
	assert.EqualError(t, err, "invalid time format: yesterday")
}

func TestParseTimeFlexibleLocation(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	got, err := ParseTimeFlexible("2024/03/05 07:08:09", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 12, 8, 9, 0, time.UTC), got)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList(""))
	assert.Equal(t, []string{"Detail", "Result"}, SplitList(" Detail, ,Result "))
}
