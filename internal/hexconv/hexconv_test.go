package hexconv

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func parse(str string) (result uint64) {
	for j := range str {
		result = (result << 4) | uint64(Halfbyte[str[j]])
	}

	return result
}

func TestHalfbyte(t *testing.T) {
	for _, sample := range []string{"0", "d", "D", "ff", "123456789abcdef", "ABCDEF"} {
		want, err := strconv.ParseUint(sample, 16, 64)
		require.NoError(t, err)
		require.Equal(t, want, parse(sample), sample)
	}

	for _, c := range []byte("gG;\r\n -xz") {
		require.Equal(t, byte(0xFF), Halfbyte[c], string(c))
	}
}

func benchLocal(b *testing.B, str string) {
	b.SetBytes(int64(len(str)))
	b.ResetTimer()

	for range b.N {
		_ = parse(str)
	}
}

func BenchmarkParse(b *testing.B) {
	b.Run("short", func(b *testing.B) {
		benchLocal(b, "123456789abcdef")
	})

	b.Run("long", func(b *testing.B) {
		benchLocal(b, strings.Repeat("123456789abcdef", 100))
	})
}
