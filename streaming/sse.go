package streaming

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// WriteSSE writes ev to w in the `event: <kind>\ndata: <json>\n\n` wire
// format (spec §6). It does not flush; callers using net/http must flush
// the underlying http.Flusher themselves after each write.
func WriteSSE(w io.Writer, ev Event) error {
	body, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshal %s event payload: %w", ev.Kind, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, body)
	return err
}

// ResponseHeaders returns the header set an HTTP handler serving this
// stream must set (spec §6): no-cache, keep-alive, event-stream content
// type. Setting them on the actual http.ResponseWriter is the HTTP
// layer's responsibility; streaming only documents the required values.
func ResponseHeaders() http.Header {
	h := make(http.Header)
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	return h
}
