package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/osse101/DropTracker_Go/internal/logger"
)

// WriteTextfile dumps the default registry in the node-exporter textfile format.
// An empty path is a no-op.
func WriteTextfile(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return err
	}
	logger.FromContext(ctx).Info(LogMsgTextfileWritten, "path", path)
	return nil
}
