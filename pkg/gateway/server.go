package gateway

import (
	"bufio"
	"encoding/json"
	"io"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// Server reads one JSON-RPC request per line from r and writes one response
// per line to w, the line-delimited framing adapted from the teacher's
// bufio.Scanner-based MCP client loop (there used to read a subprocess's
// stdout; here used server-side to read a host's requests).
type Server struct {
	router *RPCRouter
	logger zerolog.Logger
}

// NewServer constructs a Server bound to router.
func NewServer(router *RPCRouter, logger zerolog.Logger) *Server {
	return &Server{router: router, logger: logger}
}

// Serve blocks reading lines from r until EOF or a read error, dispatching
// each through the router and writing the JSON response followed by a
// newline to w.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	writer := bufio.NewWriter(w)
	defer writer.Flush()

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		resp := s.handleLine(line)
		encoded, err := json.Marshal(resp)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to marshal response")
			continue
		}

		if _, err := writer.Write(encoded); err != nil {
			return err
		}
		if err := writer.WriteByte('\n'); err != nil {
			return err
		}
		if err := writer.Flush(); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (s *Server) handleLine(line []byte) *RPCResponse {
	corrID, err := gonanoid.New(10)
	if err != nil {
		corrID = "unavailable"
	}
	log := s.logger.With().Str("correlationId", corrID).Logger()

	req, parseErr := s.router.ParseRequest(line)
	if parseErr != nil {
		log.Warn().Err(parseErr).Msg("failed to parse rpc request")
		if rpcErr, ok := parseErr.(*RPCError); ok {
			return &RPCResponse{JSONRPC: "2.0", Error: rpcErr}
		}
		return &RPCResponse{JSONRPC: "2.0", Error: &RPCError{Code: InternalError, Message: parseErr.Error()}}
	}

	log.Debug().Str("method", req.Method).Str("id", req.ID).Msg("dispatching rpc request")
	return s.router.RouteRequest(req)
}
