/*Package telemetry publishes periodic axis status snapshots to a metrics
sink (spec.md §4.4's publish task, grounded in the Python original's
__publishTask, which built a telegraf.metric per axis and wrote it over
a Telegraf line-protocol socket). This package stays transport-agnostic:
Sink is satisfied by a line-protocol TCP writer in production and by an
in-memory recorder in tests.
*/
package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openogs/ogscore/comm"
)

// Sink accepts one measurement at a time: a name, a set of tag key/value
// pairs identifying what produced it, and a set of numeric/boolean
// fields. It mirrors the shape of an InfluxDB/Telegraf line-protocol
// point without depending on any particular client library.
type Sink interface {
	Publish(ctx context.Context, measurement string, tags map[string]string, fields map[string]interface{}) error
}

// LineProtocolSink writes measurements as newline-terminated InfluxDB
// line protocol over a comm.RemoteDevice, typically a TCP connection to a
// local Telegraf agent.
type LineProtocolSink struct {
	dev *comm.RemoteDevice
}

// NewLineProtocolSink wraps an already-open RemoteDevice.
func NewLineProtocolSink(dev *comm.RemoteDevice) *LineProtocolSink {
	return &LineProtocolSink{dev: dev}
}

// Publish implements Sink by formatting and writing one line-protocol
// record. Field values are type-switched into their line-protocol
// representation; an unsupported field type is an error rather than a
// silently malformed point.
func (s *LineProtocolSink) Publish(_ context.Context, measurement string, tags map[string]string, fields map[string]interface{}) error {
	line, err := encodeLine(measurement, tags, fields, time.Now())
	if err != nil {
		return err
	}
	return s.dev.Send([]byte(line))
}

func encodeLine(measurement string, tags map[string]string, fields map[string]interface{}, t time.Time) (string, error) {
	var b strings.Builder
	b.WriteString(measurement)
	for k, v := range tags {
		fmt.Fprintf(&b, ",%s=%s", k, v)
	}
	b.WriteByte(' ')

	first := true
	for k, v := range fields {
		if !first {
			b.WriteByte(',')
		}
		first = false
		switch val := v.(type) {
		case float64:
			fmt.Fprintf(&b, "%s=%g", k, val)
		case float32:
			fmt.Fprintf(&b, "%s=%g", k, val)
		case int:
			fmt.Fprintf(&b, "%s=%di", k, val)
		case int32:
			fmt.Fprintf(&b, "%s=%di", k, val)
		case int64:
			fmt.Fprintf(&b, "%s=%di", k, val)
		case uint32:
			fmt.Fprintf(&b, "%s=%di", k, val)
		case uint64:
			fmt.Fprintf(&b, "%s=%di", k, val)
		case bool:
			fmt.Fprintf(&b, "%s=%t", k, val)
		case string:
			fmt.Fprintf(&b, "%s=%q", k, val)
		default:
			return "", fmt.Errorf("telemetry: unsupported field type %T for key %q", v, k)
		}
	}
	fmt.Fprintf(&b, " %d", t.UnixNano())
	return b.String(), nil
}

// Recorder is an in-memory Sink used by tests to assert on what would
// have been published without needing a network socket.
type Recorder struct {
	Points []Point
}

// Point is one recorded call to Publish.
type Point struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]interface{}
}

// Publish implements Sink.
func (r *Recorder) Publish(_ context.Context, measurement string, tags map[string]string, fields map[string]interface{}) error {
	r.Points = append(r.Points, Point{Measurement: measurement, Tags: tags, Fields: fields})
	return nil
}

var (
	_ Sink = (*LineProtocolSink)(nil)
	_ Sink = (*Recorder)(nil)
)
