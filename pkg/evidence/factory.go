package evidence

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Mindburn-Labs/riskgov/pkg/config"
)

// NewStore creates the archive selected by cfg.Type. It returns a nil Store
// and no error when archiving is disabled.
//
// Backends:
//   - "fs":  DATA_DIR/evidence on local disk
//   - "s3":  EVIDENCE_S3_BUCKET (required), EVIDENCE_S3_REGION, EVIDENCE_S3_ENDPOINT, EVIDENCE_S3_PREFIX
//   - "gcs": EVIDENCE_GCS_BUCKET (required), EVIDENCE_GCS_PREFIX; needs the gcp build tag
func NewStore(ctx context.Context, cfg config.EvidenceConfig) (Store, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case config.EvidenceFS:
		return NewFileStore(filepath.Join(cfg.DataDir, "evidence"))
	case config.EvidenceS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("EVIDENCE_S3_BUCKET is required for S3 storage")
		}
		return NewS3Store(ctx, S3StoreConfig{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
			Prefix:   cfg.S3Prefix,
		})
	case config.EvidenceGCS:
		return newGCSStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported evidence storage type: %s", cfg.Type)
	}
}
