package ingest_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/questsearch/internal/csvsource"
	"github.com/kailas-cloud/questsearch/internal/db"
	"github.com/kailas-cloud/questsearch/internal/domain"
	"github.com/kailas-cloud/questsearch/internal/repository/question"
	"github.com/kailas-cloud/questsearch/internal/usecase/ingest"
)

const fixtureDim = 8

// Latin-1 encoded, with a multiline quoted body and an accented title.
const questionsCSV = "Id,OwnerUserId,CreationDate,ClosedDate,Score,Title,Body\n" +
	"80,26,2008-08-01T13:57:07Z,NA,26,SQLServer ALTER TABLE,\"<p>line one\nline two</p>\"\n" +
	"90,58,2008-08-01T14:41:24Z,NA,144,Good branching tutorials,<p>b</p>\n" +
	"120,83,2008-08-01T15:50:08Z,NA,21,Caf\xe9 encoding in ASP.NET,<p>b</p>\n" +
	"180,2089740,2008-08-01T18:42:19Z,NA,53,Function for creating color wheels,<p>b</p>\n" +
	"260,91,2008-08-01T23:22:08Z,NA,49,Adding scripting functionality,<p>b</p>\n"

// hashStore keeps HSET writes in memory behind the question repository.
type hashStore struct {
	hashes  map[string]map[string]string
	hsets   []string
	indexed bool
}

func newHashStore() *hashStore {
	return &hashStore{hashes: map[string]map[string]string{}}
}

func (s *hashStore) HSet(_ context.Context, key string, fields map[string]string) error {
	s.hsets = append(s.hsets, key)
	s.hashes[key] = fields
	return nil
}

func (s *hashStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := s.hashes[key]
	return ok, nil
}

func (s *hashStore) IndexExists(context.Context, string) (bool, error) { return s.indexed, nil }

func (s *hashStore) CreateIndex(context.Context, *db.IndexDefinition) error {
	s.indexed = true
	return nil
}

func (s *hashStore) DropIndex(context.Context, string, bool) error {
	s.indexed = false
	s.hashes = map[string]map[string]string{}
	return nil
}

func (s *hashStore) SearchCount(context.Context, string) (int, error) { return len(s.hashes), nil }

type constEmbedder struct{ calls int }

func (e *constEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	e.calls++
	v := make([]float32, fixtureDim)
	for i := range v {
		v[i] = float32(i) / fixtureDim
	}
	return domain.EmbeddingResult{Embedding: v}, nil
}

func runFixture(t *testing.T, store *hashStore, emb *constEmbedder, opts ingest.Options) ingest.Summary {
	t.Helper()
	src, err := csvsource.NewReader(strings.NewReader(questionsCSV), "latin1")
	require.NoError(t, err)

	layout := question.Layout{KeyPrefix: "qs:", Name: "questions"}
	repo := question.New(store, layout, fixtureDim, question.HNSWConfig{})
	svc := ingest.New(repo, emb, fixtureDim, nil, zap.NewNop())

	sum, err := svc.Run(context.Background(), src, opts)
	require.NoError(t, err)
	return sum
}

func TestIngestPipeline_WritesEveryRow(t *testing.T) {
	store := newHashStore()
	emb := &constEmbedder{}

	sum := runFixture(t, store, emb, ingest.Options{})

	assert.Equal(t, 5, sum.Rows)
	assert.Equal(t, 5, sum.Created)
	assert.True(t, store.indexed)
	assert.Equal(t, []string{
		"qs:questions:80", "qs:questions:90", "qs:questions:120",
		"qs:questions:180", "qs:questions:260",
	}, store.hsets)

	for key, fields := range store.hashes {
		assert.Len(t, fields[question.VectorField], 4*fixtureDim, "vector bytes for %s", key)
		vec, err := db.DecodeVector(fields[question.VectorField])
		require.NoError(t, err)
		assert.Len(t, vec, fixtureDim)
	}
	assert.Equal(t, "Café encoding in ASP.NET", store.hashes["qs:questions:120"][question.TitleField])
}

func TestIngestPipeline_StopsAtMaxRows(t *testing.T) {
	store := newHashStore()
	emb := &constEmbedder{}

	sum := runFixture(t, store, emb, ingest.Options{MaxRows: 3})

	assert.Equal(t, 3, sum.Rows)
	assert.Equal(t, 3, emb.calls)
	require.Len(t, store.hsets, 3)
	assert.Equal(t, "qs:questions:120", store.hsets[2])
	for _, fields := range store.hashes {
		assert.Len(t, fields[question.VectorField], 4*fixtureDim)
	}
}

func TestIngestPipeline_RerunUpdatesAndResetRecreates(t *testing.T) {
	store := newHashStore()

	runFixture(t, store, &constEmbedder{}, ingest.Options{MaxRows: 2})
	again := runFixture(t, store, &constEmbedder{}, ingest.Options{MaxRows: 2})
	assert.Equal(t, 0, again.Created)
	assert.Equal(t, 2, again.Updated)

	reset := runFixture(t, store, &constEmbedder{}, ingest.Options{MaxRows: 2, Reset: true})
	assert.Equal(t, 2, reset.Created)
	assert.Len(t, store.hashes, 2)
}
