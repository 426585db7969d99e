// Package tokenizer splits a complete message head into its tokens. It works on heads that
// are already known to be complete, i.e. terminated by an empty line, so there's no need to
// keep any state between calls.
package tokenizer

import (
	"errors"
	"strconv"
	"strings"

	"github.com/indigo-web/h1/kv"
)

var (
	ErrIncomplete    = errors.New("head is not terminated by an empty line")
	ErrMalformed     = errors.New("malformed head")
	ErrTooManyFields = errors.New("too many header fields")
)

const crlf = "\r\n"

type RequestLine struct {
	Method  string
	Target  string
	Version string
}

type StatusLine struct {
	Version string
	Code    int
	Reason  string
}

// Request tokenizes a request head. Empty lines preceding the request-line are skipped.
func Request(head string, maxFields int) (line RequestLine, fields []kv.Pair, err error) {
	for strings.HasPrefix(head, crlf) {
		head = head[len(crlf):]
	}

	first, rest, found := strings.Cut(head, crlf)
	if !found {
		return line, nil, ErrIncomplete
	}

	var ok bool
	if line.Method, first, ok = strings.Cut(first, " "); !ok || !isToken(line.Method) {
		return line, nil, ErrMalformed
	}

	if line.Target, line.Version, ok = strings.Cut(first, " "); !ok || len(line.Target) == 0 {
		return line, nil, ErrMalformed
	}

	if !printable(line.Target) || !isToken(strings.ReplaceAll(line.Version, "/", "")) {
		return line, nil, ErrMalformed
	}

	fields, err = Fields(rest, maxFields)
	return line, fields, err
}

// Response tokenizes a response head. The reason-phrase may be empty, as well as the space
// preceding it.
func Response(head string, maxFields int) (line StatusLine, fields []kv.Pair, err error) {
	first, rest, found := strings.Cut(head, crlf)
	if !found {
		return line, nil, ErrIncomplete
	}

	version, tail, ok := strings.Cut(first, " ")
	if !ok || len(version) == 0 {
		return line, nil, ErrMalformed
	}

	code, reason, _ := strings.Cut(tail, " ")
	if len(code) != 3 || !digits(code) {
		return line, nil, ErrMalformed
	}

	if strings.ContainsAny(reason, "\r\n") {
		return line, nil, ErrMalformed
	}

	line.Version, line.Reason = version, reason
	line.Code, _ = strconv.Atoi(code)
	fields, err = Fields(rest, maxFields)

	return line, fields, err
}

// Fields tokenizes a block of field lines, terminated by an empty line. Nothing must follow the
// empty line. Optional whitespaces around the value are trimmed, obsolete line folding isn't
// supported.
func Fields(block string, maxFields int) ([]kv.Pair, error) {
	var fields []kv.Pair

	for {
		line, rest, found := strings.Cut(block, crlf)
		if !found {
			return nil, ErrIncomplete
		}

		if len(line) == 0 {
			if len(rest) > 0 {
				return nil, ErrMalformed
			}

			return fields, nil
		}

		if len(fields) >= maxFields {
			return nil, ErrTooManyFields
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok || !isToken(key) {
			return nil, ErrMalformed
		}

		value = strings.Trim(value, " \t")
		if strings.ContainsAny(value, "\r\n\x00") {
			return nil, ErrMalformed
		}

		fields = append(fields, kv.Pair{Key: key, Value: value})
		block = rest
	}
}

var tchars = func() (table [256]bool) {
	for c := '0'; c <= '9'; c++ {
		table[c] = true
	}

	for c := 'a'; c <= 'z'; c++ {
		table[c] = true
		table[c-'a'+'A'] = true
	}

	for _, c := range "!#$%&'*+-.^_`|~" {
		table[c] = true
	}

	return table
}()

func isToken(str string) bool {
	if len(str) == 0 {
		return false
	}

	for i := 0; i < len(str); i++ {
		if !tchars[str[i]] {
			return false
		}
	}

	return true
}

func printable(str string) bool {
	for i := 0; i < len(str); i++ {
		if str[i] <= ' ' || str[i] == 0x7F {
			return false
		}
	}

	return true
}

func digits(str string) bool {
	for i := 0; i < len(str); i++ {
		if str[i] < '0' || str[i] > '9' {
			return false
		}
	}

	return true
}
