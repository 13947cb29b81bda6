package minio

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/AdamCoscia/KnowledgeVIS/internal/config"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/monitoring/logging"
	apperrors "github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

type mockObjectAPI struct {
	mock.Mock
}

func (m *mockObjectAPI) BucketExists(ctx context.Context, bucket string) (bool, error) {
	args := m.Called(ctx, bucket)
	return args.Bool(0), args.Error(1)
}

func (m *mockObjectAPI) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucket, opts).Error(0)
}

func (m *mockObjectAPI) SetBucketLifecycle(ctx context.Context, bucket string, cfg *lifecycle.Configuration) error {
	return m.Called(ctx, bucket, cfg).Error(0)
}

func (m *mockObjectAPI) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucket, key, r, size, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *mockObjectAPI) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, minio.ObjectInfo, error) {
	args := m.Called(ctx, bucket, key)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Get(1).(minio.ObjectInfo), args.Error(2)
}

func (m *mockObjectAPI) StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucket, key, opts)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

func (m *mockObjectAPI) ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	return m.Called(ctx, bucket, opts).Get(0).(<-chan minio.ObjectInfo)
}

func (m *mockObjectAPI) RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error {
	return m.Called(ctx, bucket, key, opts).Error(0)
}

func (m *mockObjectAPI) PresignedGetObject(ctx context.Context, bucket, key string, expiry time.Duration, params url.Values) (*url.URL, error) {
	args := m.Called(ctx, bucket, key, expiry, params)
	u, _ := args.Get(0).(*url.URL)
	return u, args.Error(1)
}

var notFound = minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}

type ClientTestSuite struct {
	suite.Suite
	api    *mockObjectAPI
	client *Client
	ctx    context.Context
}

func (s *ClientTestSuite) SetupTest() {
	s.api = &mockObjectAPI{}
	s.client = newClient(s.api, config.MinIOConfig{Bucket: "exports", RetentionDays: 30}, logging.NewNopLogger())
	s.ctx = context.Background()
}

func (s *ClientTestSuite) TearDownTest() {
	s.api.AssertExpectations(s.T())
}

func (s *ClientTestSuite) TestDefaults() {
	c := newClient(s.api, config.MinIOConfig{}, logging.NewNopLogger())
	s.Equal(config.DefaultMinIOBucket, c.Bucket())
	s.Equal("us-east-1", c.cfg.Region)
}

func (s *ClientTestSuite) TestEnsureBucket_Creates() {
	s.api.On("BucketExists", s.ctx, "exports").Return(false, nil)
	s.api.On("MakeBucket", s.ctx, "exports", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil)
	s.NoError(s.client.EnsureBucket(s.ctx))
}

func (s *ClientTestSuite) TestEnsureBucket_Unreachable() {
	s.api.On("BucketExists", s.ctx, "exports").Return(false, errors.New("dial tcp: refused"))
	err := s.client.EnsureBucket(s.ctx)
	s.True(apperrors.IsCode(err, apperrors.ErrCodeServiceUnavailable))
}

func (s *ClientTestSuite) TestSetupLifecycle() {
	s.api.On("SetBucketLifecycle", s.ctx, "exports", mock.MatchedBy(func(lc *lifecycle.Configuration) bool {
		return len(lc.Rules) == 1 && lc.Rules[0].Expiration.Days == 30
	})).Return(nil)
	s.NoError(s.client.SetupLifecycle(s.ctx))

	keep := newClient(s.api, config.MinIOConfig{Bucket: "exports"}, logging.NewNopLogger())
	s.NoError(keep.SetupLifecycle(s.ctx))
}

func (s *ClientTestSuite) TestPut() {
	s.api.On("PutObject", s.ctx, "exports", "exports/s1/a.json", mock.Anything, int64(2),
		minio.PutObjectOptions{ContentType: "application/json", UserMetadata: map[string]string{"session": "s1"}}).
		Return(minio.UploadInfo{Size: 2, ETag: "e"}, nil)

	info, err := s.client.Put(s.ctx, "exports/s1/a.json", []byte("{}"), "application/json", map[string]string{"session": "s1"})
	s.Require().NoError(err)
	s.Equal("exports/s1/a.json", info.Key)
	s.Equal("e", info.ETag)
}

func (s *ClientTestSuite) TestInvalidKeys() {
	for _, key := range []string{"", "/abs", "a/../b"} {
		_, err := s.client.Put(s.ctx, key, nil, "", nil)
		s.True(apperrors.IsCode(err, apperrors.ErrCodeValidation), key)
	}
}

func (s *ClientTestSuite) TestGet() {
	s.api.On("GetObject", s.ctx, "exports", "k").
		Return(io.NopCloser(strings.NewReader(`{"a":1}`)), minio.ObjectInfo{Key: "k", Size: 7}, nil)
	data, info, err := s.client.Get(s.ctx, "k")
	s.Require().NoError(err)
	s.Equal(`{"a":1}`, string(data))
	s.Equal(int64(7), info.Size)
}

func (s *ClientTestSuite) TestGet_NotFound() {
	s.api.On("GetObject", s.ctx, "exports", "missing").Return(nil, minio.ObjectInfo{}, notFound)
	_, _, err := s.client.Get(s.ctx, "missing")
	s.True(apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func (s *ClientTestSuite) TestExists() {
	s.api.On("StatObject", s.ctx, "exports", "yes", minio.StatObjectOptions{}).Return(minio.ObjectInfo{Key: "yes"}, nil)
	s.api.On("StatObject", s.ctx, "exports", "no", minio.StatObjectOptions{}).Return(minio.ObjectInfo{}, notFound)

	ok, err := s.client.Exists(s.ctx, "yes")
	s.NoError(err)
	s.True(ok)
	ok, err = s.client.Exists(s.ctx, "no")
	s.NoError(err)
	s.False(ok)
}

func (s *ClientTestSuite) TestListSortsByKey() {
	ch := make(chan minio.ObjectInfo, 2)
	ch <- minio.ObjectInfo{Key: "exports/s1/b.json"}
	ch <- minio.ObjectInfo{Key: "exports/s1/a.json"}
	close(ch)
	s.api.On("ListObjects", s.ctx, "exports", minio.ListObjectsOptions{Prefix: "exports/s1/", Recursive: true}).
		Return((<-chan minio.ObjectInfo)(ch))

	objs, err := s.client.List(s.ctx, "exports/s1/")
	s.Require().NoError(err)
	s.Require().Len(objs, 2)
	s.Equal("exports/s1/a.json", objs[0].Key)
}

func (s *ClientTestSuite) TestPresignGet() {
	u, _ := url.Parse("http://minio/exports/k?sig=1")
	s.api.On("PresignedGetObject", s.ctx, "exports", "k", time.Hour, url.Values(nil)).Return(u, nil)
	got, err := s.client.PresignGet(s.ctx, "k", 0)
	s.NoError(err)
	s.Equal(u.String(), got)
}

func (s *ClientTestSuite) TestClosed() {
	s.NoError(s.client.Close())
	_, err := s.client.Put(s.ctx, "k", []byte("x"), "", nil)
	s.ErrorIs(err, ErrClientClosed)
	s.ErrorIs(s.client.Delete(s.ctx, "k"), ErrClientClosed)
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(notFound))
	assert.False(t, isNotFound(errors.New("boom")))
	require.NoError(t, validateKey("exports/s/x.json"))
}
