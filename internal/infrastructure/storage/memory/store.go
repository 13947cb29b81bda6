// Package memory is an in-process object store used when MinIO is disabled.
// Objects live until the process exits.
package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/storage/minio"
	"github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

type object struct {
	data []byte
	info minio.ObjectInfo
}

// Store implements minio.ObjectStore on a go-cache map.
type Store struct {
	objects *gocache.Cache
}

var _ minio.ObjectStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{objects: gocache.New(gocache.NoExpiration, 0)}
}

func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return minio.ErrInvalidRequest.WithDetail("bad object key: " + key)
	}
	return nil
}

func (s *Store) Put(_ context.Context, key string, data []byte, contentType string, metadata map[string]string) (*minio.ObjectInfo, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info := minio.ObjectInfo{
		Key:          key,
		Size:         int64(len(data)),
		ContentType:  contentType,
		LastModified: time.Now().UTC(),
		Metadata:     metadata,
	}
	s.objects.SetDefault(key, object{data: append([]byte(nil), data...), info: info})
	return &info, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, *minio.ObjectInfo, error) {
	if err := checkKey(key); err != nil {
		return nil, nil, err
	}
	v, ok := s.objects.Get(key)
	if !ok {
		return nil, nil, minio.ErrObjectNotFound.WithDetail(key)
	}
	obj := v.(object)
	info := obj.info
	return append([]byte(nil), obj.data...), &info, nil
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	_, ok := s.objects.Get(key)
	return ok, nil
}

func (s *Store) List(_ context.Context, prefix string) ([]minio.ObjectInfo, error) {
	var out []minio.ObjectInfo
	for key, item := range s.objects.Items() {
		if strings.HasPrefix(key, prefix) {
			out = append(out, item.Object.(object).info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.objects.Delete(key)
	return nil
}

// PresignGet has no meaning without an object server.
func (s *Store) PresignGet(context.Context, string, time.Duration) (string, error) {
	return "", errors.New(errors.ErrCodeFeatureDisabled, "presigned urls need object storage")
}
