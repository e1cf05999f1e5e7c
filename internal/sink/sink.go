// Package sink renders and persists fully-built Reports. Sinks are the
// outer boundary: the engine hands over one complete Report per run and is
// agnostic to how it is formatted or stored.
package sink

import (
	"io"

	"github.com/pkg/errors"

	"github.com/user/fleetprobe/internal/model"
)

// Sink consumes one fully-built Report.
type Sink interface {
	Write(report *model.Report) error
}

// ForFormat returns the sink for a named output format.
func ForFormat(format string, w io.Writer) (Sink, error) {
	switch format {
	case "text", "":
		return NewTextSink(w), nil
	case "json":
		return NewJSONSink(w), nil
	case "yaml":
		return NewYAMLSink(w), nil
	}
	return nil, errors.Errorf("unknown output format %q", format)
}
