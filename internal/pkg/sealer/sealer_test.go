package sealer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealer_RoundTrip(t *testing.T) {
	s, err := New("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	sealed, err := s.Seal("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "JBSWY3DPEHPK3PXP")

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", opened)
}

func TestSealer_NonceIsRandom(t *testing.T) {
	s, err := New("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	a, err := s.Seal("secret")
	require.NoError(t, err)
	b, err := s.Seal("secret")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSealer_WrongKey(t *testing.T) {
	s1, err := New("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	s2, err := New("fedcba9876543210fedcba9876543210")
	require.NoError(t, err)

	sealed, err := s1.Seal("secret")
	require.NoError(t, err)

	_, err = s2.Open(sealed)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestSealer_Malformed(t *testing.T) {
	s, err := New("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	for _, input := range []string{"", "not base64 !", "c2hvcnQ"} {
		_, err := s.Open(input)
		assert.ErrorIs(t, err, ErrMalformed, input)
	}
}

func TestNew_EmptyKey(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}
