package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/indigo-web/h1/http/status"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"
)

func decodeOutput(t *testing.T, output string) (messages []message) {
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		var msg message
		require.NoError(t, jsoniter.UnmarshalFromString(line, &msg))
		messages = append(messages, msg)
	}

	return messages
}

func TestRun(t *testing.T) {
	t.Run("requests", func(t *testing.T) {
		input := "POST /upload?x=1 HTTP/1.1\r\nHost: example.com\r\nTransfer-Encoding: chunked\r\n\r\n" +
			"4\r\nWiki\r\n0\r\nChecksum: abc\r\n\r\n" +
			"GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"

		var stdout bytes.Buffer
		require.NoError(t, run(nil, strings.NewReader(input), &stdout))

		messages := decodeOutput(t, stdout.String())
		require.Len(t, messages, 2)
		require.Equal(t, "POST", messages[0].Method)
		require.Equal(t, "/upload?x=1", messages[0].Target)
		require.Equal(t, "HTTP/1.1", messages[0].Protocol)
		require.Equal(t, "Wiki", messages[0].Body)
		require.Equal(t, int64(4), messages[0].BodyLength)
		require.Equal(t, []field{{Name: "Checksum", Value: "abc"}}, messages[0].Trailers)
		require.Equal(t, "GET", messages[1].Method)
		require.Equal(t, []field{{Name: "Host", Value: "example.com"}}, messages[1].Headers)
	})

	t.Run("responses from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "capture")
		input := "HTTP/1.1 200 OK\r\nContent-Length: 2\r\nDate: today\r\n\r\nok" +
			"HTTP/1.1 404 Not Found\r\nDate: today\r\n\r\nuntil close"
		require.NoError(t, os.WriteFile(path, []byte(input), 0o600))

		var stdout bytes.Buffer
		require.NoError(t, run([]string{"-response", path}, nil, &stdout))

		messages := decodeOutput(t, stdout.String())
		require.Len(t, messages, 2)
		require.Equal(t, int(status.OK), messages[0].Code)
		require.Equal(t, "ok", messages[0].Body)
		require.Equal(t, "Not Found", messages[1].Reason)
		require.Equal(t, "until close", messages[1].Body)
	})

	t.Run("malformed", func(t *testing.T) {
		var stdout bytes.Buffer
		err := run(nil, strings.NewReader("GET / HTTP/1.0\r\n\r\n"), &stdout)
		require.ErrorIs(t, err, status.ErrHTTPVersionNotSupported)
		require.Empty(t, stdout.String())
	})

	t.Run("unknown method", func(t *testing.T) {
		err := run([]string{"-response", "-method", "BREW"}, strings.NewReader(""), new(bytes.Buffer))
		require.Error(t, err)
	})
}
