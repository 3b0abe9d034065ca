package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tnqbao/gau-media-gateway/config"
	"github.com/tnqbao/gau-media-gateway/entity"
	"github.com/tnqbao/gau-media-gateway/infra"
	"github.com/tnqbao/gau-media-gateway/infra/produce"
	"github.com/tnqbao/gau-media-gateway/repository"
	"github.com/tnqbao/gau-media-gateway/utils"
)

type fakeStore struct {
	mu        sync.Mutex
	records   map[uuid.UUID]entity.Media
	createErr error
	deleteErr error
	clock     time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records: map[uuid.UUID]entity.Media{},
		clock:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *fakeStore) Create(_ context.Context, media *entity.Media) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	for _, existing := range s.records {
		if existing.Bucket == media.Bucket && existing.Path == media.Path {
			return fmt.Errorf("failed to insert media: %w", repository.ErrDuplicateMedia)
		}
	}
	if media.ID == uuid.Nil {
		media.ID = uuid.New()
	}
	s.clock = s.clock.Add(time.Second)
	media.CreatedAt = s.clock
	s.records[media.ID] = *media
	return nil
}

func (s *fakeStore) FindByIDAndOwner(_ context.Context, id, ownerID uuid.UUID) (*entity.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.records[id]
	if !ok || m.UserID != ownerID {
		return nil, repository.ErrMediaNotFound
	}
	return &m, nil
}

func (s *fakeStore) FindByID(_ context.Context, id uuid.UUID) (*entity.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.records[id]
	if !ok {
		return nil, repository.ErrMediaNotFound
	}
	return &m, nil
}

func (s *fakeStore) sorted(filter func(entity.Media) bool, opts repository.ListOptions) []entity.Media {
	s.mu.Lock()
	defer s.mu.Unlock()
	opts = opts.Normalize()
	var out []entity.Media
	for _, m := range s.records {
		if filter(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if opts.Offset >= len(out) {
		return nil
	}
	out = out[opts.Offset:]
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

func (s *fakeStore) ListByOwner(_ context.Context, ownerID uuid.UUID, opts repository.ListOptions) ([]entity.Media, error) {
	return s.sorted(func(m entity.Media) bool { return m.UserID == ownerID }, opts), nil
}

func (s *fakeStore) ListAll(_ context.Context, opts repository.ListOptions) ([]entity.Media, error) {
	return s.sorted(func(entity.Media) bool { return true }, opts), nil
}

func (s *fakeStore) CountByOwner(_ context.Context, ownerID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.records {
		if m.UserID == ownerID {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) CountAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.records)), nil
}

func (s *fakeStore) DeleteByIDAndOwner(_ context.Context, id, ownerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	m, ok := s.records[id]
	if !ok || m.UserID != ownerID {
		return repository.ErrMediaNotFound
	}
	delete(s.records, id)
	return nil
}

type fakeObjects struct {
	mu          sync.Mutex
	objects     map[string]int64
	putErr      error
	removeErr   error
	presignErr  map[string]error
	presignGets int
	calls       []string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string]int64{}, presignErr: map[string]error{}}
}

func objectKey(bucket, key string) string { return bucket + "/" + key }

func (f *fakeObjects) EnsureBucket(context.Context, string) error { return nil }

func (f *fakeObjects) Put(_ context.Context, bucket, key string, body io.Reader, _ int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "put")
	if f.putErr != nil {
		return f.putErr
	}
	n, err := io.Copy(io.Discard, body)
	if err != nil {
		return err
	}
	f.objects[objectKey(bucket, key)] = n
	return nil
}

func (f *fakeObjects) Remove(_ context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "remove")
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.objects, objectKey(bucket, key))
	return nil
}

func (f *fakeObjects) Stat(_ context.Context, bucket, key string) (*infra.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	size, ok := f.objects[objectKey(bucket, key)]
	if !ok {
		return nil, infra.ErrObjectNotFound
	}
	return &infra.ObjectInfo{Size: size}, nil
}

func (f *fakeObjects) PresignGet(_ context.Context, bucket, key string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presignGets++
	if err := f.presignErr[key]; err != nil {
		return "", err
	}
	return fmt.Sprintf("https://store.local/%s/%s?ttl=%d", bucket, key, int(ttl.Seconds())), nil
}

func (f *fakeObjects) PresignPut(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.presignErr[key]; err != nil {
		return "", err
	}
	return fmt.Sprintf("https://store.local/%s/%s?upload=1", bucket, key), nil
}

func (f *fakeObjects) Health(context.Context) error { return nil }

func (f *fakeObjects) has(bucket entity.StorageBucket, key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[objectKey(string(bucket), key)]
	return ok
}

type cachedURL struct {
	url       string
	expiresAt time.Time
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]cachedURL
	getErr  error
	now     func() time.Time
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]cachedURL{}, now: time.Now}
}

func (c *fakeCache) GetSignedURL(_ context.Context, bucket, path string, ttl time.Duration) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return "", false, c.getErr
	}
	entry, ok := c.entries[infra.SignedURLKey(bucket, path, ttl)]
	if !ok || !c.now().Before(entry.expiresAt) {
		return "", false, nil
	}
	return entry.url, true, nil
}

func (c *fakeCache) SetSignedURL(_ context.Context, bucket, path string, ttl, keepFor time.Duration, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[infra.SignedURLKey(bucket, path, ttl)] = cachedURL{url: url, expiresAt: c.now().Add(keepFor)}
	return nil
}

func (c *fakeCache) EvictObject(_ context.Context, bucket, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ttl := range []time.Duration{10 * time.Minute, time.Hour} {
		delete(c.entries, infra.SignedURLKey(bucket, path, ttl))
	}
	return nil
}

type fakeOrphans struct {
	mu      sync.Mutex
	orphans []Orphan
}

func (f *fakeOrphans) ReportOrphan(_ context.Context, orphan Orphan) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orphans = append(f.orphans, orphan)
}

type fakePublisher struct {
	messages []produce.DeleteObjectMessage
	err      error
}

func (p *fakePublisher) PublishDeleteObject(_ context.Context, msg produce.DeleteObjectMessage) error {
	p.messages = append(p.messages, msg)
	return p.err
}

var errBoom = errors.New("boom")

func testLimits() Limits {
	return Limits{
		MaxImageBytes:      10 * bytesPerMB,
		MaxAudioBytes:      50 * bytesPerMB,
		PreviewURLTTL:      10 * time.Minute,
		DownloadURLTTL:     time.Hour,
		SignedUploadTTL:    2 * time.Hour,
		TokenSecret:        "test-secret",
		SigningConcurrency: 4,
	}
}

func testPolicy() *utils.MimePolicy {
	return utils.NewMimePolicy(
		[]string{"image/jpeg", "image/png", "image/webp"},
		[]string{"audio/m4a", "audio/aac", "audio/mp3"},
		config.AudioMimePolicyPrefix,
	)
}

type harness struct {
	store   *fakeStore
	objects *fakeObjects
	cache   *fakeCache
	orphans *fakeOrphans
	broker  *Broker
	orch    *Orchestrator
	library *Library
	limits  Limits
}

func newHarness(mutate ...func(*Limits)) *harness {
	limits := testLimits()
	for _, m := range mutate {
		m(&limits)
	}
	h := &harness{
		store:   newFakeStore(),
		objects: newFakeObjects(),
		cache:   newFakeCache(),
		orphans: &fakeOrphans{},
		limits:  limits,
	}
	logger := infra.NewDiscardLogger()
	telemetry := infra.NewNoopTelemetry()
	h.broker = NewBroker(h.objects, h.cache, logger, telemetry, limits)
	h.orch = NewOrchestrator(h.store, h.objects, h.broker, testPolicy(), limits, h.orphans, logger, telemetry)
	h.library = NewLibrary(h.store, h.broker, limits, logger, telemetry)
	return h
}
