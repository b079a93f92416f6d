// internal/metrics/textfile.go
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// WriteTextfile dumps g in the node_exporter textfile format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}

// RunTextfile rewrites path every interval until ctx ends, then writes
// once more so the last state is kept.
func RunTextfile(ctx context.Context, path string, interval time.Duration, g prometheus.Gatherer, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := WriteTextfile(path, g); err != nil {
				log.Warn("metrics textfile write failed", zap.String("path", path), zap.Error(err))
			}
			return
		case <-ticker.C:
			if err := WriteTextfile(path, g); err != nil {
				log.Warn("metrics textfile write failed", zap.String("path", path), zap.Error(err))
			}
		}
	}
}
