package httpapi

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// auditEntry records one mutating API request. The ledger itself is the
// source of truth for XP; the audit trail answers who called what, when.
type auditEntry struct {
	Time       time.Time `json:"time"`
	UserID     string    `json:"user_id,omitempty"`
	Path       string    `json:"path"`
	Method     string    `json:"method"`
	Status     int       `json:"status"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
}

type auditLog struct {
	mu      sync.Mutex
	entries []auditEntry
	max     int
	sink    auditSink
}

type auditSink interface {
	Write(entry auditEntry) error
}

func newAuditLog(max int, sink auditSink) *auditLog {
	if max <= 0 {
		max = 200
	}
	return &auditLog{max: max, sink: sink}
}

func (l *auditLog) add(entry auditEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
	if l.sink != nil {
		// Best-effort persistence; ignore errors to avoid impacting request flow.
		_ = l.sink.Write(entry)
	}
}

func (l *auditLog) list() []auditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]auditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// fileAuditSink appends audit entries as JSONL.
type fileAuditSink struct {
	mu   sync.Mutex
	file *os.File
}

func newFileAuditSink(path string) (*fileAuditSink, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, err
	}
	return &fileAuditSink{file: f}, nil
}

func (s *fileAuditSink) Write(entry auditEntry) error {
	if s == nil || s.file == nil {
		return nil
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.file.Write(append(b, '\n'))
	return err
}

// WrapWithAudit records mutating requests in a bounded in-memory trail,
// optionally mirrored to a JSONL file. Reads pass through unrecorded.
func WrapWithAudit(next http.Handler, maxEntries int, filePath string) (http.Handler, error) {
	sink, err := newFileAuditSink(filePath)
	if err != nil {
		return nil, err
	}
	return wrapWithAuditLog(next, newAuditLog(maxEntries, sink)), nil
}

func wrapWithAuditLog(next http.Handler, log *auditLog) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
		default:
			next.ServeHTTP(w, r)
			return
		}

		rec := &auditResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.add(auditEntry{
			Time:       time.Now().UTC(),
			UserID:     pathUserID(r.URL.Path),
			Path:       r.URL.Path,
			Method:     r.Method,
			Status:     rec.status,
			RemoteAddr: r.RemoteAddr,
			UserAgent:  r.UserAgent(),
		})
	})
}

func pathUserID(path string) string {
	rest, ok := strings.CutPrefix(path, "/users/")
	if !ok {
		return ""
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

type auditResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *auditResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
