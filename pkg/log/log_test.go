package log

import (
	"bytes"
	"encoding/json"
	golog "log"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newBufferLogger() (*bytes.Buffer, JsonLogger) {
	buf := new(bytes.Buffer)
	return buf, NewJsonLogger(golog.New(buf, "", 0), "testhost")
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	line, err := buf.ReadBytes('\n')
	if err != nil {
		t.Fatalf("Expected a log line, got error: %s", err.Error())
	}
	var m map[string]interface{}
	if err := json.Unmarshal(line, &m); err != nil {
		t.Fatalf("Log line %q is not json: %s", line, err.Error())
	}
	return m
}

func TestErrorInterpolatesMessage(t *testing.T) {
	buf, logger := newBufferLogger()
	logger.Error(LogCategory_TileQueryError, "upstream %s answered %d", "http://example.org", 500)

	m := decodeLine(t, buf)
	if m["message"] != "upstream http://example.org answered 500" {
		t.Fatalf("Unexpected message %#v", m["message"])
	}
	if m["category"] != "tile_query" || m["type"] != "error" || m["hostname"] != "testhost" {
		t.Fatalf("Unexpected log line %#v", m)
	}
}

func TestMetricsCategory(t *testing.T) {
	buf, logger := newBufferLogger()
	logger.Metrics(map[string]interface{}{"http": map[string]int{"status": 200}})

	m := decodeLine(t, buf)
	if m["category"] != "metrics" || m["type"] != "info" {
		t.Fatalf("Unexpected log line %#v", m)
	}
}

func TestLoggingMiddlewareCapturesStatus(t *testing.T) {
	buf, logger := newBufferLogger()
	h := LoggingMiddleware(logger)(http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.Write([]byte("hello"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/collections", nil))

	m := decodeLine(t, buf)
	if m["status"] != float64(200) {
		t.Fatalf("Expected status 200 in log line, got %#v", m["status"])
	}
	if m["path"] != "/collections" {
		t.Fatalf("Unexpected path %#v", m["path"])
	}
}

func TestLoggingMiddlewareRecovers(t *testing.T) {
	buf, logger := newBufferLogger()
	h := LoggingMiddleware(logger)(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rec.Code)
	}
	m := decodeLine(t, buf)
	if m["err"] != "boom" {
		t.Fatalf("Expected recovered panic to be logged, got %#v", m)
	}
}
