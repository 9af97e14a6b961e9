package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeTick_LowercasesASCII(t *testing.T) {
	require.Equal(t, "foo", NormalizeTick("FOO"))
	require.Equal(t, "dota", NormalizeTick("dota"))
}

func TestNormalizeTick_EscapesNonASCII(t *testing.T) {
	got := NormalizeTick("café")
	require.Equal(t, `caf\xe9`, got)
}

func TestNormalizeTick_Idempotent(t *testing.T) {
	for _, in := range []string{"FOO", "café", "dota", "\x01\x02", "日本語"} {
		once := NormalizeTick(in)
		twice := NormalizeTick(once)
		require.Equal(t, once, twice, "normalization of %q should be idempotent", in)
	}
}
