package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDateMonthNames(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"16-NOV-2017", "2017-11-16"},
		{"16-noviembre-2017", "2017-11-16"},
		{"3 ene 2024", "2024-01-03"},
		{"25 de mayo de 2025", "2025-05-25"},
		{"1 de enero del 2020", "2020-01-01"},
		{"07-AGO-1999", "1999-08-07"},
		{"12-Dec-2021", "2021-12-12"},
	}
	for _, tc := range tests {
		iso, coerced, err := NormalizeDate(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, iso, tc.in)
		assert.False(t, coerced, tc.in)
	}
}

func TestNormalizeDateNumeric(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"16/11/2017", "2017-11-16"},
		{"16-11-2017", "2017-11-16"},
		{"16.11.17", "2017-11-16"},
		{"01/02/99", "1999-02-01"},
		{"2017-11-16", "2017-11-16"},
	}
	for _, tc := range tests {
		iso, coerced, err := NormalizeDate(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, iso, tc.in)
		assert.False(t, coerced, tc.in)
	}
}

func TestNormalizeDateCoercion(t *testing.T) {
	// Day zero is never accepted literally.
	iso, coerced, err := NormalizeDate("00-NOV-2017")
	require.NoError(t, err)
	assert.Equal(t, "2017-11-01", iso)
	assert.True(t, coerced)

	iso, coerced, err = NormalizeDate("31/02/2020")
	require.NoError(t, err)
	assert.Equal(t, "2020-02-29", iso)
	assert.True(t, coerced)

	iso, coerced, err = NormalizeDate("31/02/2021")
	require.NoError(t, err)
	assert.Equal(t, "2021-02-28", iso)
	assert.True(t, coerced)
}

func TestNormalizeDateRejects(t *testing.T) {
	for _, in := range []string{"", "no es fecha", "16-XXX-2017", "16/11/1850", "16/11/2150"} {
		_, _, err := NormalizeDate(in)
		assert.Error(t, err, in)
	}
}

func TestNormalizeDateRoundTrip(t *testing.T) {
	iso, _, err := NormalizeDate("16-NOV-2017")
	require.NoError(t, err)

	parsed, err := ParseISODate(iso)
	require.NoError(t, err)
	assert.Equal(t, "2017-11-16", parsed.Format("2006-01-02"))
}
