package probe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDuration(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    time.Duration
		wantErr error
	}{
		{
			name:   "valid duration",
			output: `{"format":{"duration":"1800.480000","format_name":"mov,mp4"}}`,
			want:   1800*time.Second + 480*time.Millisecond,
		},
		{
			name:   "integer duration",
			output: `{"format":{"duration":"30"}}`,
			want:   30 * time.Second,
		},
		{
			name:    "missing duration",
			output:  `{"format":{"format_name":"mov,mp4"}}`,
			wantErr: ErrNoDuration,
		},
		{
			name:    "non numeric duration",
			output:  `{"format":{"duration":"N/A"}}`,
			wantErr: ErrNoDuration,
		},
		{
			name:    "zero duration",
			output:  `{"format":{"duration":"0.000000"}}`,
			wantErr: ErrNoDuration,
		},
		{
			name:    "malformed json",
			output:  `not json`,
			wantErr: nil, // parse error, not a sentinel
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractDuration([]byte(tt.output))
			if tt.want != 0 {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestNew_DefaultTimeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, New(0).timeout)
	assert.Equal(t, 5*time.Second, New(5*time.Second).timeout)
}
