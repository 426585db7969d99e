package dummy

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMockClient(t *testing.T) {
	t.Run("once", func(t *testing.T) {
		slices := [][]byte{
			[]byte("Hello"), []byte("world!"),
		}
		client := NewMockClient(slices...).Once()

		for _, slice := range slices {
			got, err := client.Read()
			require.NoError(t, err)
			require.Equal(t, string(slice), string(got))
		}

		_, err := client.Read()
		require.ErrorIs(t, err, io.EOF)
	})

	t.Run("looped slices", func(t *testing.T) {
		slices := [][]byte{
			[]byte("Hello"), []byte("world"), []byte("!"),
		}
		client := NewMockClient(slices...)
		for i := 0; i < len(slices)*2; i++ {
			data, err := client.Read()
			require.NoError(t, err)
			require.Equal(t, string(slices[i%len(slices)]), string(data))
		}
	})

	t.Run("pushback", func(t *testing.T) {
		client := NewMockClient([]byte("Hello, world!")).Once()
		data, err := client.Read()
		require.NoError(t, err)
		client.Pushback(data[7:])
		require.Equal(t, "world!", string(client.Pending()))

		data, err = client.Read()
		require.NoError(t, err)
		require.Equal(t, "world!", string(data))
		require.Empty(t, client.Pending())
	})
}

func TestScatter(t *testing.T) {
	require.Equal(t, [][]byte{[]byte("ab"), []byte("cd"), []byte("e")}, Scatter([]byte("abcde"), 2))
	require.Equal(t, [][]byte{[]byte("abc")}, Scatter([]byte("abc"), 10))
	require.Empty(t, Scatter(nil, 3))
}
