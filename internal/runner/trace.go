package runner

import (
	"fmt"

	"github.com/armon/circbuf"

	"github.com/hurlrunner/hurl/internal/httpengine"
	"github.com/hurlrunner/hurl/internal/query"
)

// traceBufferSize bounds the wire-trace kept per entry for
// --verbose/--very-verbose output: large multipart/file bodies must not
// make a long run's memory footprint grow with the number of entries.
const traceBufferSize = 64 * 1024

// newWireTrace returns a fixed-capacity ring buffer that the oldest
// bytes fall out of once full, the same bounded-log-capture idiom
// circbuf is built for.
func newWireTrace() *circbuf.Buffer {
	buf, err := circbuf.NewBuffer(traceBufferSize)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// traceBufferSize never is.
		panic(err)
	}
	return buf
}

func writeRequestTrace(buf *circbuf.Buffer, req httpengine.Request) {
	fmt.Fprintf(buf, "> %s %s\n", req.Method, req.URL)
	for _, h := range req.Headers {
		fmt.Fprintf(buf, "> %s: %s\n", h.Name, h.Value)
	}
	if len(req.Body) > 0 {
		fmt.Fprintf(buf, "> [%d byte body]\n", len(req.Body))
	}
}

func writeResponseTrace(buf *circbuf.Buffer, resp *query.Response) {
	fmt.Fprintf(buf, "< %s %d\n", resp.HTTPVersion, resp.StatusCode)
	for _, h := range resp.NameValues {
		fmt.Fprintf(buf, "< %s: %s\n", h.Name, h.Value)
	}
	fmt.Fprintf(buf, "< [%d byte body]\n", len(resp.Body))
}
