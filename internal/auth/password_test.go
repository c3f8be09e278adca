package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_RoundTrip(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}

	digest, err := h.Hash("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", digest)

	assert.True(t, h.Verify(digest, "hunter22"))
	assert.False(t, h.Verify(digest, "hunter23"))
	assert.False(t, h.Verify(digest, ""))
}

func TestBcryptHasher_DistinctSalts(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}

	d1, err := h.Hash("same password")
	require.NoError(t, err)
	d2, err := h.Hash("same password")
	require.NoError(t, err)

	// per-call random salt: same input, different digests, both verify
	assert.NotEqual(t, d1, d2)
	assert.True(t, h.Verify(d1, "same password"))
	assert.True(t, h.Verify(d2, "same password"))
}

func TestBcryptHasher_DefaultCost(t *testing.T) {
	h := BcryptHasher{}
	digest, err := h.Hash("abcd")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestHasherFromEnv(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want int
	}{
		{name: "unset falls back to 12", env: "", want: 12},
		{name: "valid value", env: "10", want: 10},
		{name: "below range ignored", env: "2", want: 12},
		{name: "above range ignored", env: "40", want: 12},
		{name: "garbage ignored", env: "sixteen", want: 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BCRYPT_COST", tt.env)
			assert.Equal(t, tt.want, HasherFromEnv().Cost)
		})
	}
}
