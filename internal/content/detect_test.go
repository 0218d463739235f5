package content

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsChanged(t *testing.T) {
	t.Parallel()
	b1 := Artifact{Format: FormatSource, Data: []byte("schedule v1")}
	b1Again := Artifact{Format: FormatSource, Name: "other-name.docx", Data: []byte("schedule v1")}
	b2 := Artifact{Format: FormatSource, Data: []byte("schedule v2")}

	tests := []struct {
		name     string
		cand     Artifact
		prev     *Artifact
		expected bool
	}{
		{name: "first artifact", cand: b1, prev: nil, expected: true},
		{name: "empty first artifact", cand: Artifact{}, prev: nil, expected: true},
		{name: "identical bytes", cand: b1Again, prev: &b1, expected: false},
		{name: "different bytes", cand: b2, prev: &b1, expected: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.expected, IsChanged(tt.cand, tt.prev))
		})
	}
}

func TestFingerprintStable(t *testing.T) {
	t.Parallel()
	a := Sum([]byte("abc"))
	require.Equal(t, a, Sum([]byte("abc")))
	require.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", a.String())
	require.Equal(t, "ba7816bf8f01", a.Short())
	require.False(t, a.IsZero())
	require.True(t, Fingerprint{}.IsZero())
}

func TestFormatString(t *testing.T) {
	t.Parallel()
	require.Equal(t, "source", FormatSource.String())
	require.Equal(t, "derived", FormatDerived.String())
	require.Equal(t, "unknown", Format(9).String())
}
