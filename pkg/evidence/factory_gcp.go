//go:build gcp

package evidence

import (
	"context"
	"fmt"

	"github.com/Mindburn-Labs/riskgov/pkg/config"
)

func newGCSStore(ctx context.Context, cfg config.EvidenceConfig) (Store, error) {
	if cfg.GCSBucket == "" {
		return nil, fmt.Errorf("EVIDENCE_GCS_BUCKET is required for GCS storage")
	}
	return NewGCSStore(ctx, GCSStoreConfig{Bucket: cfg.GCSBucket, Prefix: cfg.GCSPrefix})
}
