package sink

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/user/fleetprobe/internal/model"
)

// YAMLSink writes the report as YAML.
type YAMLSink struct {
	w io.Writer
}

// NewYAMLSink creates a YAML sink writing to w.
func NewYAMLSink(w io.Writer) *YAMLSink {
	return &YAMLSink{w: w}
}

func (s *YAMLSink) Write(report *model.Report) error {
	enc := yaml.NewEncoder(s.w)
	defer enc.Close()
	return errors.Wrap(enc.Encode(report), "failed to write yaml report")
}
