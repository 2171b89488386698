package library

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, in := range []string{"reading", "Want", " READ "} {
		_, err := ParseStatus(in)
		require.NoError(t, err, in)
	}
	_, err := ParseStatus("finished")
	require.Error(t, err)
}

func TestParseField(t *testing.T) {
	f, err := ParseField("Cover_URL")
	require.NoError(t, err)
	require.Equal(t, FieldCoverURL, f)

	_, err = ParseField("id")
	require.Error(t, err)
}

func TestBook_GetSet(t *testing.T) {
	var b Book
	for _, f := range EditableFields {
		b.Set(f, "v-"+string(f))
	}
	for _, f := range EditableFields {
		require.Equal(t, "v-"+string(f), b.Get(f))
	}
	require.Empty(t, b.Get(Field("unknown")))
}
