package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

type CacheTestSuite struct {
	suite.Suite
	client *Client
	mock   redismock.ClientMock
	cache  Cache
}

func (s *CacheTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	s.client = newClient(db, logging.NewNopLogger())
	s.cache = NewRedisCache(s.client, logging.NewNopLogger(), WithPrefix("test:"), WithTTLJitter(0))
}

func (s *CacheTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

type cachedQuery struct {
	Model string   `json:"model"`
	Terms []string `json:"terms"`
}

func (s *CacheTestSuite) TestGet_Hit() {
	val := cachedQuery{Model: "bert", Terms: []string{"nurse", "doctor"}}
	data, _ := json.Marshal(val)
	s.mock.ExpectGet("test:q1").SetVal(string(data))

	var dest cachedQuery
	err := s.cache.Get(context.Background(), "q1", &dest)

	s.NoError(err)
	s.Equal(val, dest)
}

func (s *CacheTestSuite) TestGet_Miss() {
	s.mock.ExpectGet("test:q1").RedisNil()

	var dest cachedQuery
	err := s.cache.Get(context.Background(), "q1", &dest)

	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeNotFound))
}

func (s *CacheTestSuite) TestGet_CorruptEntryIsDropped() {
	s.mock.ExpectGet("test:q1").SetVal("{not json")
	s.mock.ExpectDel("test:q1").SetVal(1)

	var dest cachedQuery
	err := s.cache.Get(context.Background(), "q1", &dest)

	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeNotFound))
}

func (s *CacheTestSuite) TestGet_BackendError() {
	s.mock.ExpectGet("test:q1").SetErr(fmt.Errorf("connection reset"))

	var dest cachedQuery
	err := s.cache.Get(context.Background(), "q1", &dest)

	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
}

func (s *CacheTestSuite) TestSet_UsesDefaultTTL() {
	val := cachedQuery{Model: "bert"}
	data, _ := json.Marshal(val)
	s.mock.ExpectSet("test:q1", data, time.Hour).SetVal("OK")

	s.NoError(s.cache.Set(context.Background(), "q1", val, 0))
}

func (s *CacheTestSuite) TestSet_ExplicitTTL() {
	data, _ := json.Marshal("x")
	s.mock.ExpectSet("test:q1", data, time.Minute).SetVal("OK")

	s.NoError(s.cache.Set(context.Background(), "q1", "x", time.Minute))
}

func (s *CacheTestSuite) TestSet_Unserializable() {
	err := s.cache.Set(context.Background(), "q1", make(chan int), time.Minute)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeSerialization))
}

func (s *CacheTestSuite) TestDelete() {
	s.mock.ExpectDel("test:k1", "test:k2").SetVal(2)
	s.NoError(s.cache.Delete(context.Background(), "k1", "k2"))
	s.NoError(s.cache.Delete(context.Background()))
}

func (s *CacheTestSuite) TestExists() {
	s.mock.ExpectExists("test:k1").SetVal(1)

	exists, err := s.cache.Exists(context.Background(), "k1")
	s.NoError(err)
	s.True(exists)
}

func (s *CacheTestSuite) TestDeleteByPrefix() {
	s.mock.ExpectScan(0, "test:query:*", 100).SetVal([]string{"test:query:a", "test:query:b"}, 7)
	s.mock.ExpectDel("test:query:a", "test:query:b").SetVal(2)
	s.mock.ExpectScan(7, "test:query:*", 100).SetVal([]string{"test:query:c"}, 0)
	s.mock.ExpectDel("test:query:c").SetVal(1)

	n, err := s.cache.DeleteByPrefix(context.Background(), "query:")
	s.NoError(err)
	s.Equal(int64(3), n)
}

func (s *CacheTestSuite) TestPing() {
	s.mock.ExpectPing().SetVal("PONG")
	s.NoError(s.cache.Ping(context.Background()))
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func TestJitterStaysInRange(t *testing.T) {
	c := &redisCache{jitter: 0.1}
	for i := 0; i < 100; i++ {
		got := c.jitterTTL(time.Hour)
		assert.GreaterOrEqual(t, got, 54*time.Minute)
		assert.LessOrEqual(t, got, 66*time.Minute)
	}
	assert.Equal(t, time.Duration(0), c.jitterTTL(0))
}
