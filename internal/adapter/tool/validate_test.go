package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRange(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		wantErr bool
	}{
		{"min", MinNumResults, false},
		{"default", DefaultNumResults, false},
		{"max", MaxNumResults, false},
		{"zero", 0, true},
		{"negative", -1, true},
		{"above max", MaxNumResults + 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRange("num_results", tt.value, MinNumResults, MaxNumResults)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, "num_results must be 1-50", err.Error())
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateRange_EdgeCases(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		min     int
		max     int
		wantErr bool
		wantMsg string
	}{
		{"negative range", -5, -10, -1, false, ""},
		{"below negative min", -11, -10, -1, true, "field must be -10--1"},
		{"single-value range (at value)", 5, 5, 5, false, ""},
		{"single-value range (below)", 4, 5, 5, true, "field must be 5-5"},
		{"single-value range (above)", 6, 5, 5, true, "field must be 5-5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRange("field", tt.value, tt.min, tt.max)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}
