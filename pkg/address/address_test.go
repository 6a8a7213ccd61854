package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidEVM(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", true},
		{"0xA0B86991C6218B36C1D19D4A2E9EB0CE3606EB48", true},
		{"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", true},
		{"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eb48", false},
		{"a0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", false},
		{"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb4", false},
		{"0xg0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidEVM(tt.in))
		})
	}
}

func TestValidate(t *testing.T) {
	got, err := Validate(1, " 0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48 ")
	require.NoError(t, err)
	assert.Equal(t, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", got)

	_, err = Validate(8453, "So11111111111111111111111111111111111111112")
	assert.Error(t, err)

	got, err = Validate(SolanaChainID, "So11111111111111111111111111111111111111112")
	require.NoError(t, err)
	assert.Equal(t, "So11111111111111111111111111111111111111112", got)

	_, err = Validate(SolanaChainID, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	assert.Error(t, err)

	_, err = Validate(1, "")
	assert.Error(t, err)
}
