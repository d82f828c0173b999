package transport

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// maxLineSize bounds one JSON-RPC message on stdin.
const maxLineSize = 64 * 1024 * 1024

// StdioHandler handles JSON-RPC communication over standard input/output.
// Requests are answered one at a time, in order.
type StdioHandler struct {
	processor Processor
	logger    zerolog.Logger
}

// NewStdioHandler creates a new StdioHandler.
func NewStdioHandler(p Processor, logger zerolog.Logger) *StdioHandler {
	return &StdioHandler{processor: p, logger: logger}
}

// Start reads one JSON object per line from input and writes one response
// line per request to output. It returns when input is exhausted or ctx is
// cancelled.
func (h *StdioHandler) Start(ctx context.Context, input io.Reader, output io.Writer) error {
	h.logger.Info().Msg("stdio transport started")
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			h.logger.Info().Msg("stdio transport cancelled")
			return nil
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		resp := handleMessage(ctx, h.processor, line)
		if resp == nil {
			continue
		}
		if _, err := fmt.Fprintln(output, string(marshalResponse(resp))); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		h.logger.Error().Err(err).Msg("error reading from stdin")
		return err
	}
	h.logger.Info().Msg("stdio transport finished")
	return nil
}
