package observability

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Textfile collects OTel metrics into a private Prometheus registry and
// writes them in text exposition format. Batch runs are short-lived, so a
// file for node_exporter's textfile collector replaces a scrape endpoint.
type Textfile struct {
	path     string
	registry *prometheus.Registry
	exporter *promexporter.Exporter
}

// NewTextfile creates a Textfile that writes to path on Flush.
func NewTextfile(path string) (*Textfile, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(
		promexporter.WithRegisterer(registry),
	)
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return &Textfile{path: path, registry: registry, exporter: exporter}, nil
}

// Reader returns the metric reader to attach to a MeterProvider.
func (tf *Textfile) Reader() sdkmetric.Reader {
	return tf.exporter
}

// Gatherer exposes the underlying registry.
func (tf *Textfile) Gatherer() prometheus.Gatherer {
	return tf.registry
}

// Flush writes the current metric values to the configured path. The
// write is atomic: WriteToTextfile renames a temporary file into place.
func (tf *Textfile) Flush() error {
	dir := filepath.Dir(tf.path)

	err := os.MkdirAll(dir, 0o750)
	if err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}

	err = prometheus.WriteToTextfile(tf.path, tf.registry)
	if err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}

	return nil
}
