// h1dump decodes HTTP/1.1 messages captured from the wire and prints them as JSON, one
// object per line.
//
// Usage:
//
//	h1dump [-response] [-method HEAD] [-v] [file]
//
// The standard input is read if no file is given.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/indigo-web/h1/config"
	"github.com/indigo-web/h1/http"
	"github.com/indigo-web/h1/http/method"
	"github.com/indigo-web/h1/http1"
	"github.com/indigo-web/h1/kv"
	"github.com/indigo-web/h1/transport"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type message struct {
	Method     string  `json:"method,omitempty"`
	Target     string  `json:"target,omitempty"`
	Code       int     `json:"code,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	Protocol   string  `json:"protocol"`
	Headers    []field `json:"headers"`
	BodyLength int64   `json:"bodyLength"`
	Body       string  `json:"body"`
	Trailers   []field `json:"trailers,omitempty"`
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "h1dump:", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	flags := flag.NewFlagSet("h1dump", flag.ContinueOnError)
	response := flags.Bool("response", false, "decode responses instead of requests")
	methodName := flags.String("method", "GET", "method of the requests the responses answer")
	verbose := flags.Bool("v", false, "log decoding steps")
	maxBody := flags.Uint64("max-body", config.Default().Body.MaxSize, "maximal body size in bytes")
	if err := flags.Parse(args); err != nil {
		return err
	}

	input := stdin
	if flags.NArg() > 0 {
		file, err := os.Open(flags.Arg(0))
		if err != nil {
			return err
		}

		defer file.Close()
		input = file
	}

	m := method.Parse(*methodName)
	if *response && m == method.Unknown {
		return fmt.Errorf("unknown method: %s", *methodName)
	}

	logger := zap.NewNop()
	if *verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			return err
		}

		defer func() { _ = logger.Sync() }()
	}

	cfg := config.Default()
	cfg.Body.MaxSize = *maxBody
	cfg.Body.ReadUntilClose = true

	local, remote := net.Pipe()
	defer local.Close()
	go func() {
		_, _ = io.Copy(remote, input)
		_ = remote.Close()
	}()

	client := transport.NewClient(local, 0, make([]byte, cfg.NET.ReadBufferSize))
	decoder := http1.NewDecoder(client, cfg, http1.WithLogger(logger))
	encoder := json.NewEncoder(stdout)

	for {
		var (
			msg message
			err error
		)

		if *response {
			msg, err = decodeResponse(decoder, m)
		} else {
			msg, err = decodeRequest(decoder)
		}

		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return nil
		default:
			return err
		}

		if err = encoder.Encode(msg); err != nil {
			return err
		}
	}
}

func decodeRequest(decoder *http1.Decoder) (message, error) {
	request, err := decoder.DecodeRequest()
	if err != nil {
		return message{}, err
	}

	msg := message{
		Method:   request.Method.String(),
		Target:   request.Target(),
		Protocol: request.Protocol.String(),
		Headers:  fields(request.Headers),
	}

	return msg, readBody(&msg, request.Body)
}

func decodeResponse(decoder *http1.Decoder, m method.Method) (message, error) {
	response, err := decoder.DecodeResponse(m)
	if err != nil {
		return message{}, err
	}

	msg := message{
		Code:     int(response.StatusCode),
		Reason:   string(response.Reason),
		Protocol: response.Protocol.String(),
		Headers:  fields(response.Headers),
	}

	return msg, readBody(&msg, response.Body)
}

func readBody(msg *message, body *http.Body) error {
	payload, err := body.Bytes()
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	msg.Body = string(payload)
	msg.BodyLength = int64(len(payload))

	if trailers := body.Trailers(); trailers != nil {
		if values, ok := trailers.Fields(); ok {
			msg.Trailers = fields(values)
		}
	}

	return nil
}

func fields(storage *kv.Storage) []field {
	result := make([]field, 0, storage.Len())
	for key, value := range storage.Pairs() {
		result = append(result, field{Name: key, Value: value})
	}

	return result
}
