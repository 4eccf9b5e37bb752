package ingest

import (
	"mediavault/internal/config"
	"mediavault/internal/mv"
)

// NewPipelineFromConfig builds the ingestion pipeline from the [ingest] section.
func NewPipelineFromConfig(cfg config.IngestConfig, blobs mv.BlobStore, logger mv.Logger, clock mv.Clock, ids mv.IDGenerator) (*Pipeline, error) {
	return NewPipeline(blobs, logger, clock, ids, cfg.MaxSize, cfg.AllowedTypes)
}
