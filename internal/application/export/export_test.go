package export

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/AdamCoscia/KnowledgeVIS/internal/application/query"
	"github.com/AdamCoscia/KnowledgeVIS/internal/application/session"
	"github.com/AdamCoscia/KnowledgeVIS/internal/config"
	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/prediction"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/messaging/kafka"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/storage/memory"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/storage/minio"
	"github.com/AdamCoscia/KnowledgeVIS/internal/testutil"
	"github.com/AdamCoscia/KnowledgeVIS/pkg/client"
	"github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

type stubFetcher struct{}

func (stubFetcher) GetData(_ context.Context, req *client.Request) (*client.Response, error) {
	return &client.Response{
		Model:  req.Model,
		TopK:   req.TopK,
		Fill:   req.Fill,
		Groups: req.Groups,
		HeatMapData: []client.Prediction{
			{Parent: "s1", Name: "pet", Value: 0.5},
			{Parent: "s2", Name: "pet", Value: 0.4},
			{Parent: "s2", Name: "guard", Value: 0.1},
		},
		PredictionsClusters: client.Ordered{{Key: "pet", Value: "home"}, {Key: "guard", Value: "work"}},
	}, nil
}

type emitted struct {
	mu    sync.Mutex
	types []kafka.EventType
}

func (e *emitted) Emit(t kafka.EventType, _ string, _ interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.types = append(e.types, t)
}

func loadedSession(t *testing.T) *session.Session {
	t.Helper()
	m := session.NewManager(query.NewService(stubFetcher{}), config.SessionConfig{})
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	s := m.Create()
	_, err := s.Query(context.Background(), query.Query{
		Model:   "bert",
		TopK:    3,
		Prompts: []query.Prompt{{Template: "A [subject] is a _.", Subjects: []string{"cat", "dog"}}},
	})
	require.NoError(t, err)
	return s
}

func TestExporter_StoresDocumentUnderSessionPrefix(t *testing.T) {
	s := loadedSession(t)
	store := memory.NewStore()
	events := &emitted{}
	logger := testutil.NewMockLogger()
	e := NewExporter(store, WithEvents(events), WithLogger(logger))
	ctx := context.Background()

	r, err := e.Export(ctx, s)
	require.NoError(t, err)
	assert.Regexp(t, `^exports/`+s.ID+`/[0-9a-f-]{36}\.json$`, r.Key)
	assert.Positive(t, r.Size)
	assert.Empty(t, r.URL)
	assert.Equal(t, []kafka.EventType{kafka.EventDatasetExported}, events.types)
	assert.True(t, logger.HasMessage("info", "dataset exported"))

	doc, err := e.Load(ctx, r.Key)
	require.NoError(t, err)
	assert.Equal(t, s.ID, doc.SessionID)
	assert.Equal(t, "bert", doc.Model)
	assert.Len(t, doc.HeatMap, 3)
	assert.Equal(t, [2]float64{0.1, 0.5}, doc.Extent)
	assert.Equal(t, []string{"s1", "s2"}, doc.State.Selected)
	assert.Equal(t, prediction.SharingAll, doc.State.Sharing)
	assert.Equal(t, []prediction.ClusterAssignment{{Term: "pet", Cluster: "home"}, {Term: "guard", Cluster: "work"}}, doc.Clusters)
	require.NotNil(t, doc.Query)
	assert.Equal(t, "s2", doc.Query.Request.Groups[0].Subjects[1].ID)

	_, err = e.Export(ctx, s)
	require.NoError(t, err)
	list, err := e.List(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestExporter_NothingLoaded(t *testing.T) {
	m := session.NewManager(query.NewService(stubFetcher{}), config.SessionConfig{})
	defer m.Close(context.Background())

	_, err := NewExporter(memory.NewStore()).Export(context.Background(), m.Create())
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoDataset))
}

type mockStore struct {
	mock.Mock
	minio.ObjectStore
}

func (m *mockStore) Put(ctx context.Context, key string, data []byte, ct string, md map[string]string) (*minio.ObjectInfo, error) {
	args := m.Called(ctx, key, data, ct, md)
	info, _ := args.Get(0).(*minio.ObjectInfo)
	return info, args.Error(1)
}

func (m *mockStore) PresignGet(ctx context.Context, key string, d time.Duration) (string, error) {
	args := m.Called(ctx, key, d)
	return args.String(0), args.Error(1)
}

func TestExporter_PresignsWhenAsked(t *testing.T) {
	s := loadedSession(t)
	store := &mockStore{}
	store.On("Put", mock.Anything, mock.Anything, mock.Anything, "application/json", mock.Anything).
		Return(&minio.ObjectInfo{Key: "exports/x.json", Size: 10}, nil)
	store.On("PresignGet", mock.Anything, "exports/x.json", time.Hour).Return("https://objects/x", nil)

	r, err := NewExporter(store, WithPresign(time.Hour)).Export(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "https://objects/x", r.URL)
	store.AssertExpectations(t)
}

func TestExporter_StoreFailure(t *testing.T) {
	s := loadedSession(t)
	store := &mockStore{}
	store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New(errors.ErrCodeStorageError, "bucket gone"))
	events := &emitted{}

	_, err := NewExporter(store, WithEvents(events)).Export(context.Background(), s)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStorageError))
	assert.Empty(t, events.types)
}
