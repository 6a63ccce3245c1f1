package trace

import (
	"encoding/json"
	"net/http"
)

// Middleware continues the caller's trace from request headers, or starts one,
// and echoes the trace id so overlay clients can quote it back.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parent := Context{TraceID: r.Header.Get(TraceIDKey), SpanID: r.Header.Get(SpanIDKey)}
		tc := parent.Child()
		w.Header().Set(TraceIDKey, tc.TraceID)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), tc)))
	})
}

// ExtractFromJSON reads trace_id (and optional span_id) from an overlay WebSocket message.
// Reports false when the message carries no trace id.
func ExtractFromJSON(data []byte) (Context, bool) {
	var msg struct {
		TraceID string `json:"trace_id"`
		SpanID  string `json:"span_id"`
	}
	if err := json.Unmarshal(data, &msg); err != nil || msg.TraceID == "" {
		return Context{}, false
	}
	return Context{TraceID: msg.TraceID, SpanID: msg.SpanID}.Child(), true
}
