package evidence

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/riskgov/pkg/config"
)

func TestCanonicalize_KeyOrderAndEscaping(t *testing.T) {
	data, digest, err := Canonicalize(map[string]any{
		"zeta":  1,
		"alpha": "<b>&</b>",
		"mid":   []any{true, nil, 1.5},
	})
	require.NoError(t, err)

	assert.Equal(t, `{"alpha":"<b>&</b>","mid":[true,null,1.5],"zeta":1}`, string(data))
	assert.True(t, strings.HasPrefix(digest, DigestPrefix))
	assert.Len(t, digest, len(DigestPrefix)+64)
	assert.Equal(t, Digest(data), digest)
}

func TestCanonicalize_StructAndMapAgree(t *testing.T) {
	type rec struct {
		B string `json:"b"`
		A int    `json:"a"`
	}
	_, d1, err := Canonicalize(rec{B: "x", A: 2})
	require.NoError(t, err)
	_, d2, err := Canonicalize(map[string]any{"a": 2, "b": "x"})
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestCanonicalize_Unmarshalable(t *testing.T) {
	_, _, err := Canonicalize(map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	data := []byte(`{"state":"OBSERVED"}`)
	digest, err := s.Put(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, Digest(data), digest)

	again, err := s.Put(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, digest, again)

	ok, err := s.Exists(ctx, digest)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.Get(ctx, digest)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	entries, err := os.ReadDir(s.baseDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFileStore_Missing(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	missing := Digest([]byte("nothing"))
	ok, err := s.Exists(ctx, missing)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Get(ctx, missing)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_RejectsBadDigest(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, d := range []string{"", "md5:abcd", "sha256:zz", "sha256:abcd", "sha256:../../etc/passwd"} {
		_, err := s.Get(ctx, d)
		assert.Error(t, err, d)
		_, err = s.Exists(ctx, d)
		assert.Error(t, err, d)
	}
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	disabled, err := NewStore(ctx, config.EvidenceConfig{})
	require.NoError(t, err)
	assert.Nil(t, disabled)

	dir := t.TempDir()
	fs, err := NewStore(ctx, config.EvidenceConfig{Type: config.EvidenceFS, DataDir: dir})
	require.NoError(t, err)
	fileStore, ok := fs.(*FileStore)
	require.True(t, ok, "expected *FileStore, got %T", fs)
	assert.Equal(t, filepath.Join(dir, "evidence"), fileStore.baseDir)

	_, err = NewStore(ctx, config.EvidenceConfig{Type: config.EvidenceS3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EVIDENCE_S3_BUCKET is required")

	_, err = NewStore(ctx, config.EvidenceConfig{Type: config.EvidenceGCS})
	assert.Error(t, err)

	_, err = NewStore(ctx, config.EvidenceConfig{Type: "ftp"})
	assert.Error(t, err)
}
