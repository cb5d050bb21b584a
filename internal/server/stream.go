package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Aman-CERP/amanrag/internal/answer"
	amanerrors "github.com/Aman-CERP/amanrag/internal/errors"
)

// handleQueryStream streams answer fragments as server-sent events. Each
// fragment is one event; the last event carries the __SOURCES__: provenance
// fragment. A failure becomes a single "error" event.
func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeQuery(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, r, amanerrors.InternalError("streaming is not supported by this connection", nil))
		return
	}

	ctx, cancel := s.queryContext(r.Context())
	defer cancel()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	var last string
	for fragment, err := range s.engine.QueryStream(ctx, req.Question, req.QueryOptions) {
		if err != nil {
			writeSSEError(w, err)
			flusher.Flush()
			return
		}
		if err := writeSSEData(w, fragment); err != nil {
			// client went away; breaking releases the generator
			return
		}
		flusher.Flush()
		last = fragment
	}

	// a clean end means the last fragment is the provenance record
	if prov, ok, err := answer.ParseFragment(last); ok && err == nil {
		s.recordQuery(r.Context(), req.Question, req.Mode().String(), len(prov.Sources))
	}
}

// writeSSEData writes one event. Embedded newlines become continuation
// data lines, which SSE clients join back with "\n".
func writeSSEData(w io.Writer, data string) error {
	var b strings.Builder
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

func writeSSEError(w io.Writer, err error) {
	body, mErr := amanerrors.FormatJSON(err)
	if mErr != nil {
		body, _ = json.Marshal(map[string]string{"message": err.Error()})
	}
	_, _ = fmt.Fprintf(w, "event: error\ndata: %s\n\n", body)
}
