// Package exposition implements the Prometheus text-format builder.
// It is hand-rolled rather than built on promhttp/expfmt because
// the stable label-order contract requires label ordering to be
// reproduced verbatim, which a map-keyed client_golang Desc does not
// guarantee.
package exposition

import (
	"fmt"
	"strconv"
	"strings"
)

// MetricKind is the Prometheus metric type.
type MetricKind string

const (
	Gauge   MetricKind = "gauge"
	Counter MetricKind = "counter"
)

// Label is one ordered key/value pair. Order is part of the contract and
// is reproduced verbatim in the output.
type Label struct {
	Key   string
	Value string
}

// Builder accumulates HELP/TYPE/sample lines for one scrape body. It
// deduplicates adjacent help/type lines for the same metric name: each
// unique metric name emits "# HELP" and "# TYPE" exactly once, immediately
// before its first sample.
type Builder struct {
	buf       strings.Builder
	help      map[string]string
	kind      map[string]MetricKind
	announced map[string]bool
	families  map[string]bool
}

// New creates an empty Builder.
func New() *Builder {
	return &Builder{
		help:      make(map[string]string),
		kind:      make(map[string]MetricKind),
		announced: make(map[string]bool),
		families:  make(map[string]bool),
	}
}

// Help registers the HELP text for name. Calling it more than once for the
// same name is a no-op after the first call.
func (b *Builder) Help(name, text string) {
	if _, ok := b.help[name]; !ok {
		b.help[name] = text
	}
}

// Type registers the TYPE for name. Calling it more than once for the same
// name is a no-op after the first call.
func (b *Builder) Type(name string, kind MetricKind) {
	if _, ok := b.kind[name]; !ok {
		b.kind[name] = kind
	}
}

// ensureAnnounced writes the HELP/TYPE header for name immediately before
// its first sample, exactly once per builder instance.
func (b *Builder) ensureAnnounced(name string) {
	if b.announced[name] {
		return
	}
	b.announced[name] = true
	b.families[name] = true

	if help, ok := b.help[name]; ok {
		fmt.Fprintf(&b.buf, "# HELP %s %s\n", name, help)
	}
	if kind, ok := b.kind[name]; ok {
		fmt.Fprintf(&b.buf, "# TYPE %s %s\n", name, kind)
	}
}

// sanitize forbids '"', '\' and newlines in a label value. Inputs are
// expected to already be sanitized upstream; this is a defensive stop
// against producing invalid exposition text, not a general escaper.
func sanitize(v string) string {
	v = strings.ReplaceAll(v, "\\", "")
	v = strings.ReplaceAll(v, "\"", "")
	v = strings.ReplaceAll(v, "\n", "")
	return v
}

// Metric appends one sample line for name with the given ordered labels
// and value, emitting the HELP/TYPE header first if this is the first
// sample seen for name.
func (b *Builder) Metric(name string, labels []Label, value float64) {
	b.ensureAnnounced(name)

	b.buf.WriteString(name)
	if len(labels) > 0 {
		b.buf.WriteByte('{')
		for i, l := range labels {
			if i > 0 {
				b.buf.WriteString(", ")
			}
			fmt.Fprintf(&b.buf, "%s=\"%s\"", l.Key, sanitize(l.Value))
		}
		b.buf.WriteByte('}')
	}
	b.buf.WriteByte(' ')
	b.buf.WriteString(formatValue(name, value))
	b.buf.WriteByte('\n')
}

// formatValue applies the numeric formatting rules: integers
// as-is, floats with 2 decimals for power metrics, 1 decimal for
// temperature metrics, otherwise a general float representation.
func formatValue(name string, value float64) string {
	switch {
	case strings.Contains(name, "power_watts"):
		return strconv.FormatFloat(value, 'f', 2, 64)
	case strings.Contains(name, "temperature_celsius"):
		return strconv.FormatFloat(value, 'f', 1, 64)
	case value == float64(int64(value)):
		return strconv.FormatInt(int64(value), 10)
	default:
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
}

// HasFamily reports whether any sample has been emitted for name. Used by
// callers implementing "a family is emitted only if at least one sample
// is present".
func (b *Builder) HasFamily(name string) bool { return b.families[name] }

// String returns the accumulated exposition text.
func (b *Builder) String() string { return b.buf.String() }

// Bytes returns a copy of the accumulated exposition text as a byte
// slice.
func (b *Builder) Bytes() []byte { return []byte(b.buf.String()) }
