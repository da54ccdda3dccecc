package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "rfc3339 timestamp",
			input: `"2025-01-01T15:04:05Z"`,
			want:  time.Date(2025, 1, 1, 15, 4, 5, 0, time.UTC),
		},
		{
			name:  "bare date",
			input: `"2025-01-01"`,
			want:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "empty string leaves zero value",
			input: `""`,
			want:  time.Time{},
		},
		{
			name:    "garbage",
			input:   `"not-a-date"`,
			wantErr: true,
		},
		{
			name:    "number",
			input:   `42`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(d.Time), "got %v, want %v", d.Time, tt.want)
		})
	}
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusPending))
	assert.True(t, ValidStatus(StatusInProgress))
	assert.True(t, ValidStatus(StatusCompleted))
	assert.False(t, ValidStatus("archived"))
	assert.False(t, ValidStatus(""))
}
