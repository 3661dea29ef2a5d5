// Copyright (c) 2025 Neomantra Corp

package file

import (
	"fmt"
	"io"

	"github.com/segmentio/encoding/json"

	nexus "github.com/skywalkerx28/nexus-sub000"
	"github.com/skywalkerx28/nexus-sub000/eventlog"
)

// WriteEventLogAsJson streams an event log file (canonical or `.partial`
// path) to newline-delimited JSON. Filters active on the reader would
// apply, but this export opens its own unfiltered reader.
func WriteEventLogAsJson(sourceFile string, writer io.Writer) error {
	reader, err := nexus_eventlog.OpenReader(sourceFile, nexus_eventlog.ReaderOptions{})
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	defer reader.Close()

	visitor := NewJsonWriterVisitor(writer)
	for reader.Next() {
		if err := reader.Event().Visit(visitor); err != nil {
			return fmt.Errorf("json export failed: %w", err)
		}
	}
	if err := reader.Err(); err != nil {
		return fmt.Errorf("reader error: %w", err)
	}
	return visitor.OnStreamEnd()
}

////////////////////////////////////////////////////////////////////////////////

// WriteAsJson writes a value marshalled as JSON to the writer, returning any error.
func WriteAsJson[T any](val *T, writer io.Writer) error {
	jstr, err := json.Marshal(val)
	if err != nil {
		return err
	}
	if _, err = writer.Write(jstr); err != nil {
		return err
	}
	_, err = writer.Write([]byte{'\n'})
	return err
}

////////////////////////////////////////////////////////////////////////////////

// JsonWriterVisitor implements the nexus.Visitor interface, marshalling
// every event as one JSON line on its writer.
type JsonWriterVisitor struct {
	writer io.Writer
}

// NewJsonWriterVisitor creates a new JsonWriterVisitor with the given writer.
func NewJsonWriterVisitor(writer io.Writer) *JsonWriterVisitor {
	return &JsonWriterVisitor{writer: writer}
}

func (v *JsonWriterVisitor) OnDepthUpdate(ev *nexus.Event) error {
	return WriteAsJson(ev, v.writer)
}

func (v *JsonWriterVisitor) OnTrade(ev *nexus.Event) error {
	return WriteAsJson(ev, v.writer)
}

func (v *JsonWriterVisitor) OnOrderEvent(ev *nexus.Event) error {
	return WriteAsJson(ev, v.writer)
}

func (v *JsonWriterVisitor) OnBar(ev *nexus.Event) error {
	return WriteAsJson(ev, v.writer)
}

func (v *JsonWriterVisitor) OnHeartbeat(ev *nexus.Event) error {
	return WriteAsJson(ev, v.writer)
}

func (v *JsonWriterVisitor) OnStreamEnd() error {
	return nil
}
