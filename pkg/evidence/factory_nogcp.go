//go:build !gcp

package evidence

import (
	"context"
	"fmt"

	"github.com/Mindburn-Labs/riskgov/pkg/config"
)

func newGCSStore(_ context.Context, _ config.EvidenceConfig) (Store, error) {
	return nil, fmt.Errorf("GCS storage is not enabled in this build (use -tags gcp)")
}
