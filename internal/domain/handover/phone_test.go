package handover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeWhatsAppNumber(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain US number", input: "5551234567", want: "whatsapp:+15551234567"},
		{name: "formatted number", input: "(555) 123-4567", want: "whatsapp:+15551234567"},
		{name: "dotted number", input: "555.123.4567", want: "whatsapp:+15551234567"},
		{name: "already international", input: "+31612345678", want: "whatsapp:+31612345678"},
		{name: "double zero prefix", input: "0031612345678", want: "whatsapp:+31612345678"},
		{name: "prefix passthrough", input: "whatsapp:+15551234567", want: "whatsapp:+15551234567"},
		{name: "spaces inside", input: "+31 6 1234 5678", want: "whatsapp:+31612345678"},
		{name: "too short", input: "12345", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "letters only", input: "call me", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeWhatsAppNumber(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePhoneNumber(t *testing.T) {
	got, err := NormalizePhoneNumber("555-123-4567")
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", got)

	got, err = NormalizePhoneNumber("0044 20 7946 0958")
	require.NoError(t, err)
	assert.Equal(t, "+442079460958", got)

	_, err = NormalizePhoneNumber("999")
	assert.Error(t, err)
}
