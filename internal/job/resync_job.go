package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/doclibre/ragline/internal/ingest"
)

// ResyncJob re-walks the file store and re-indexes every supported object so
// the indices converge with the store even when notifications were lost.
type ResyncJob struct {
	ingest *ingest.Service
	prefix string
}

func NewResyncJob(svc *ingest.Service, prefix string) *ResyncJob {
	return &ResyncJob{ingest: svc, prefix: prefix}
}

func (j *ResyncJob) Name() string {
	return "resync"
}

func (j *ResyncJob) Run(ctx context.Context) error {
	if j.ingest == nil {
		return nil
	}
	report, err := j.ingest.Resync(ctx, j.prefix)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("resync sweep done",
		zap.Int("scanned", report.Scanned),
		zap.Int("ingested", report.Ingested),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return nil
}
