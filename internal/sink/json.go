package sink

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/user/fleetprobe/internal/model"
)

// JSONSink writes the report as indented JSON.
type JSONSink struct {
	w io.Writer
}

// NewJSONSink creates a JSON sink writing to w.
func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{w: w}
}

func (s *JSONSink) Write(report *model.Report) error {
	enc := json.NewEncoder(s.w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(report), "failed to write json report")
}
