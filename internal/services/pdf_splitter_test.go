package services

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/asodocumentflow/internal/models"
	"github.com/Lllllllleong/asodocumentflow/internal/pdfdoc"
)

func TestOptionsFromMetadata_Defaults(t *testing.T) {
	opts, err := OptionsFromMetadata(nil)
	require.NoError(t, err)
	assert.Equal(t, pdfdoc.ModeOnePerPage, opts.Spec.Mode)
	assert.Equal(t, NamingPositional, opts.Naming)
	assert.Empty(t, opts.Warnings)
}

func TestOptionsFromMetadata_FixedSizeWithAI(t *testing.T) {
	opts, err := OptionsFromMetadata(map[string]string{
		MetaSplitMode:     "fixed",
		MetaPagesPerChunk: "2",
		MetaNaming:        "ai",
	})
	require.NoError(t, err)
	assert.Equal(t, pdfdoc.FixedSize(2), opts.Spec)
	assert.Equal(t, NamingAI, opts.Naming)
}

func TestOptionsFromMetadata_RangesKeepWarnings(t *testing.T) {
	opts, err := OptionsFromMetadata(map[string]string{
		MetaSplitMode: "ranges",
		MetaRanges:    "1-2,abc,3-4",
		MetaPattern:   "lote_{numero}",
	})
	require.NoError(t, err)
	assert.Equal(t, []pdfdoc.PageRange{{Start: 1, End: 2}, {Start: 3, End: 4}}, opts.Spec.Ranges)
	require.Len(t, opts.Warnings, 1)
	assert.Equal(t, "abc", opts.Warnings[0].Entry)
	assert.Equal(t, "lote_{numero}", opts.Pattern)
}

func TestOptionsFromMetadata_Rejects(t *testing.T) {
	_, err := OptionsFromMetadata(map[string]string{MetaSplitMode: "fixed", MetaPagesPerChunk: "zero"})
	var inputErr *pdfdoc.InputError
	assert.True(t, errors.As(err, &inputErr))

	_, err = OptionsFromMetadata(map[string]string{MetaNaming: "manual"})
	assert.Error(t, err)

	_, err = OptionsFromMetadata(map[string]string{MetaNaming: "guess"})
	assert.Error(t, err)
}

func TestGCSEvent_DecodesMetadata(t *testing.T) {
	payload := `{"bucket":"aso-inbox","name":"lote 7.pdf","contentType":"application/pdf","metadata":{"split-mode":"pages","pages":"2,4"}}`
	var e GCSEvent
	require.NoError(t, json.Unmarshal([]byte(payload), &e))
	assert.Equal(t, "aso-inbox", e.Bucket)
	assert.Equal(t, "pages", e.Metadata[MetaSplitMode])

	opts, err := OptionsFromMetadata(e.Metadata)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, opts.Spec.Pages)
}

func TestOutputObjectName(t *testing.T) {
	assert.Equal(t, "abc123/ASO 05032024 MARIA.pdf", OutputObjectName("abc123", "ASO 05032024 MARIA.pdf"))
}

func TestCalculateHash(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", calculateHash(nil))
	assert.NotEqual(t, calculateHash([]byte("a")), calculateHash([]byte("b")))
}

func TestDedupeKey(t *testing.T) {
	hash := calculateHash([]byte("lote"))
	base := DedupeKey(hash, nil)

	assert.Equal(t, base, DedupeKey(hash, map[string]string{MetaSplitMode: " Single ", MetaNaming: "POSITIONAL"}),
		"defaults and their explicit spelling are the same request")
	assert.NotEqual(t, base, DedupeKey(calculateHash([]byte("outro")), nil))

	fixed := DedupeKey(hash, map[string]string{MetaSplitMode: "fixed", MetaPagesPerChunk: "2"})
	assert.NotEqual(t, base, fixed, "new split options are a new request")
	assert.NotEqual(t, fixed, DedupeKey(hash, map[string]string{MetaSplitMode: "fixed", MetaPagesPerChunk: "3"}))
	assert.NotEqual(t, base, DedupeKey(hash, map[string]string{MetaNaming: "ai"}))
	assert.NotEqual(t, base, DedupeKey(hash, map[string]string{MetaPattern: "aso_{numero}"}))

	// Field boundaries are kept, so values cannot bleed into each other.
	assert.NotEqual(t,
		DedupeKey(hash, map[string]string{MetaRanges: "1-2", MetaPages: ""}),
		DedupeKey(hash, map[string]string{MetaRanges: "", MetaPages: "1-2"}))
}

func TestDecideJob(t *testing.T) {
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	stale := 15 * time.Minute

	cases := []struct {
		name     string
		existing *models.Job
		want     jobAction
	}{
		{"no previous job", nil, jobCreate},
		{"completed", &models.Job{Status: models.StatusCompleted, StartedAt: now.Add(-time.Hour)}, jobSkip},
		{"failed upload is retried", &models.Job{Status: models.StatusFailed, StartedAt: now.Add(-time.Second)}, jobResume},
		{"in progress", &models.Job{Status: models.StatusUploading, StartedAt: now.Add(-time.Minute)}, jobSkip},
		{"stuck in progress", &models.Job{Status: models.StatusNaming, StartedAt: now.Add(-time.Hour)}, jobResume},
		{"stuck without start time", &models.Job{Status: models.StatusSplitting, CreatedAt: now.Add(-time.Hour)}, jobResume},
		{"no timestamps", &models.Job{Status: models.StatusValidating}, jobSkip},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, decideJob(tc.existing, now, stale))
		})
	}

	stuck := &models.Job{Status: models.StatusUploading, StartedAt: now.Add(-24 * time.Hour)}
	assert.Equal(t, jobSkip, decideJob(stuck, now, 0), "zero stale window never takes over")
}
