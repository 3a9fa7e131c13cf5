// Package output implements the file sinks that persist hits: a
// human-readable log, a JSON-lines log, and a clean list of bare
// addresses for downstream tooling. All sinks are append-only and
// opened once before probing starts.
package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	apperrors "github.com/pulsenet/pulsenet/internal/errors"
	"github.com/pulsenet/pulsenet/internal/report"
)

const timestampLayout = "2006-01-02 15:04:05"

func openAppend(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, apperrors.ErrSinkOpen(path, err)
	}
	return file, nil
}

// PlainSink writes one formatted log line per hit.
type PlainSink struct {
	file *os.File
	w    *bufio.Writer
}

// NewPlainSink opens path for appending.
func NewPlainSink(path string) (*PlainSink, error) {
	file, err := openAppend(path)
	if err != nil {
		return nil, err
	}
	return &PlainSink{file: file, w: bufio.NewWriter(file)}, nil
}

// WriteHit appends one log line for the hit.
func (s *PlainSink) WriteHit(event report.HitEvent) error {
	_, err := fmt.Fprintf(s.w, "[%s] %s, Port: %d, Latency: %dms\n",
		event.Timestamp.Format(timestampLayout),
		event.Addr.String(),
		event.Port,
		event.Latency.Milliseconds())
	if err != nil {
		return apperrors.WrapSinkError(apperrors.CodeSinkWrite, "failed to write hit", s.file.Name(), err)
	}
	return nil
}

// Close flushes buffered lines and closes the file.
func (s *PlainSink) Close() error {
	if err := s.w.Flush(); err != nil {
		_ = s.file.Close()
		return apperrors.WrapSinkError(apperrors.CodeSinkWrite, "failed to flush sink", s.file.Name(), err)
	}
	return s.file.Close()
}

// jsonHit is the wire form of one hit in the JSON sink.
type jsonHit struct {
	Timestamp string `json:"timestamp"`
	IP        string `json:"ip"`
	Port      int    `json:"port"`
	LatencyMS int64  `json:"latency_ms"`
}

// JSONSink writes one JSON object per line per hit.
type JSONSink struct {
	file *os.File
	w    *bufio.Writer
	enc  *json.Encoder
}

// NewJSONSink opens path for appending.
func NewJSONSink(path string) (*JSONSink, error) {
	file, err := openAppend(path)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(file)
	return &JSONSink{file: file, w: w, enc: json.NewEncoder(w)}, nil
}

// WriteHit appends the hit as a single JSON line.
func (s *JSONSink) WriteHit(event report.HitEvent) error {
	record := jsonHit{
		Timestamp: event.Timestamp.Format(timestampLayout),
		IP:        event.Addr.String(),
		Port:      int(event.Port),
		LatencyMS: event.Latency.Milliseconds(),
	}
	if err := s.enc.Encode(record); err != nil {
		return apperrors.WrapSinkError(apperrors.CodeSinkWrite, "failed to write hit", s.file.Name(), err)
	}
	return nil
}

// Close flushes buffered lines and closes the file.
func (s *JSONSink) Close() error {
	if err := s.w.Flush(); err != nil {
		_ = s.file.Close()
		return apperrors.WrapSinkError(apperrors.CodeSinkWrite, "failed to flush sink", s.file.Name(), err)
	}
	return s.file.Close()
}

// CleanListSink writes one bare address per hit, nothing else.
type CleanListSink struct {
	file *os.File
	w    *bufio.Writer
}

// NewCleanListSink opens path for appending.
func NewCleanListSink(path string) (*CleanListSink, error) {
	file, err := openAppend(path)
	if err != nil {
		return nil, err
	}
	return &CleanListSink{file: file, w: bufio.NewWriter(file)}, nil
}

// WriteHit appends the bare address.
func (s *CleanListSink) WriteHit(event report.HitEvent) error {
	_, err := fmt.Fprintln(s.w, event.Addr.String())
	if err != nil {
		return apperrors.WrapSinkError(apperrors.CodeSinkWrite, "failed to write hit", s.file.Name(), err)
	}
	return nil
}

// Close flushes buffered lines and closes the file.
func (s *CleanListSink) Close() error {
	if err := s.w.Flush(); err != nil {
		_ = s.file.Close()
		return apperrors.WrapSinkError(apperrors.CodeSinkWrite, "failed to flush sink", s.file.Name(), err)
	}
	return s.file.Close()
}
