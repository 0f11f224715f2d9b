package documents

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ingest-gateway/internal/queue"
	"ingest-gateway/internal/shared/auth"
)

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeStore struct {
	mu      sync.Mutex
	log     *callLog
	err     error
	block   bool
	objects map[string][]byte
}

func (f *fakeStore) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (string, error) {
	f.log.add("store.put")
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[bucket+"/"+key] = data
	return key, nil
}

func (f *fakeStore) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, errors.New("missing")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type fakeRepo struct {
	*MemoryRepo
	log    *callLog
	err    error
	block  bool
	budget time.Duration
}

func (f *fakeRepo) Create(ctx context.Context, in NewDocument) (Document, error) {
	f.log.add("repo.create")
	if deadline, ok := ctx.Deadline(); ok {
		f.budget = time.Until(deadline)
	}
	if f.block {
		<-ctx.Done()
		return Document{}, ctx.Err()
	}
	if f.err != nil {
		return Document{}, f.err
	}
	return f.MemoryRepo.Create(ctx, in)
}

type fakeQueue struct {
	mu    sync.Mutex
	log   *callLog
	err   error
	block bool
	jobs  []queue.Job
	name  string
}

func (f *fakeQueue) Enqueue(ctx context.Context, queueName string, job queue.Job) error {
	f.log.add("queue.enqueue")
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.name = queueName
	f.jobs = append(f.jobs, job)
	return nil
}

type fixture struct {
	log   *callLog
	store *fakeStore
	repo  *fakeRepo
	queue *fakeQueue
	svc   *Service
}

func newFixture() *fixture {
	log := &callLog{}
	f := &fixture{
		log:   log,
		store: &fakeStore{log: log},
		repo:  &fakeRepo{MemoryRepo: NewMemoryRepo(), log: log},
		queue: &fakeQueue{log: log},
	}
	f.svc = &Service{
		Store: f.store,
		Repo:  f.repo,
		Queue: f.queue,
		Now:   func() time.Time { return time.Unix(1723123123, 0) },
	}
	return f
}

var owner = auth.Identity{OwnerID: "user-42", Email: "user-42@example.com"}

func pdfRequest(name string, data []byte) IngestRequest {
	return IngestRequest{
		FileName:     name,
		ContentType:  PDFContentType,
		DeclaredSize: int64(len(data)),
		Body:         bytes.NewReader(data),
	}
}

func TestIngestStoresPersistsAndQueues(t *testing.T) {
	f := newFixture()
	data := SamplePDF(2, 2<<20)

	result, err := f.svc.Ingest(context.Background(), owner, pdfRequest("manual.pdf", data))
	require.NoError(t, err)

	assert.Equal(t, []string{"store.put", "repo.create", "queue.enqueue"}, f.log.list())
	assert.True(t, result.Dispatched)
	assert.NoError(t, result.DispatchErr)

	doc := result.Document
	assert.Equal(t, int64(1), doc.ID)
	assert.Equal(t, "manual.pdf", doc.OriginalName)
	assert.Equal(t, "1723123123000000000-manual.pdf", doc.StoragePath)
	assert.Equal(t, "user-42", doc.OwnerID)
	assert.Equal(t, Metadata{Size: 2097152, Type: "application/pdf", Pages: 2}, doc.Metadata)

	assert.Equal(t, data, f.store.objects["pdfs/"+doc.StoragePath])
	assert.Equal(t, queue.QueueName, f.queue.name)
	assert.Equal(t, []queue.Job{{DocumentID: doc.ID, FilePath: doc.StoragePath, UserID: "user-42"}}, f.queue.jobs)
}

func TestIngestRejectsInvalidPayloadWithoutSideEffects(t *testing.T) {
	oversized := SamplePDF(1, 6<<20)
	tests := []struct {
		name    string
		req     IngestRequest
		wantErr error
	}{
		{name: "oversized", req: pdfRequest("big.pdf", oversized), wantErr: ErrPayloadTooLarge},
		{name: "wrong content type", req: IngestRequest{FileName: "a.txt", ContentType: "text/plain", DeclaredSize: 5, Body: bytes.NewReader([]byte("hello"))}, wantErr: ErrUnsupportedType},
		{name: "not pdf bytes", req: pdfRequest("fake.pdf", bytes.Repeat([]byte("a"), 200)), wantErr: ErrUnsupportedType},
		{name: "empty name", req: pdfRequest("  ", SamplePDF(1, 0)), wantErr: ErrPayloadInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.Ingest(context.Background(), owner, tt.req)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.log.list())
		})
	}
}

func TestIngestRequiresOwner(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Ingest(context.Background(), auth.Identity{}, pdfRequest("a.pdf", SamplePDF(1, 0)))
	require.ErrorIs(t, err, auth.ErrUnauthorized)
	assert.Empty(t, f.log.list())
}

func TestIngestStorageFailureCommitsNothing(t *testing.T) {
	f := newFixture()
	f.store.err = errors.New("connection refused")

	_, err := f.svc.Ingest(context.Background(), owner, pdfRequest("a.pdf", SamplePDF(1, 0)))
	require.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Equal(t, []string{"store.put"}, f.log.list())

	docs, err := f.repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIngestStorageTimeoutMapsToStorageUnavailable(t *testing.T) {
	f := newFixture()
	f.store.block = true
	f.svc.Timeouts.Storage = 20 * time.Millisecond

	_, err := f.svc.Ingest(context.Background(), owner, pdfRequest("a.pdf", SamplePDF(1, 0)))
	require.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, f.queue.jobs)
}

func TestIngestPersistenceFailureLeavesObjectOrphaned(t *testing.T) {
	f := newFixture()
	f.repo.err = errors.New("db down")

	_, err := f.svc.Ingest(context.Background(), owner, pdfRequest("a.pdf", SamplePDF(1, 0)))
	require.ErrorIs(t, err, ErrPersistenceFailed)
	assert.Equal(t, []string{"store.put", "repo.create"}, f.log.list())
	assert.Len(t, f.store.objects, 1)
	assert.Empty(t, f.queue.jobs)
}

func TestIngestDatabaseTimeoutMapsToPersistenceFailed(t *testing.T) {
	f := newFixture()
	f.repo.block = true
	f.svc.Timeouts.Database = 20 * time.Millisecond

	_, err := f.svc.Ingest(context.Background(), owner, pdfRequest("a.pdf", SamplePDF(1, 0)))
	require.ErrorIs(t, err, ErrPersistenceFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"store.put", "repo.create"}, f.log.list())
	assert.Len(t, f.store.objects, 1)
	assert.Empty(t, f.queue.jobs)
}

func TestIngestPageCountDoesNotSpendDatabaseBudget(t *testing.T) {
	f := newFixture()
	f.svc.Timeouts.Database = time.Second
	data := SamplePDF(300, 4<<20)

	result, err := f.svc.Ingest(context.Background(), owner, pdfRequest("long.pdf", data))
	require.NoError(t, err)
	assert.Equal(t, 300, result.Document.Metadata.Pages)
	assert.Greater(t, f.repo.budget, 900*time.Millisecond)
}

func TestIngestQueueTimeoutKeepsDocument(t *testing.T) {
	f := newFixture()
	f.queue.block = true
	f.svc.Timeouts.Queue = 20 * time.Millisecond

	result, err := f.svc.Ingest(context.Background(), owner, pdfRequest("a.pdf", SamplePDF(1, 0)))
	require.NoError(t, err)
	assert.False(t, result.Dispatched)
	require.ErrorIs(t, result.DispatchErr, ErrDispatchFailed)
	assert.ErrorIs(t, result.DispatchErr, context.DeadlineExceeded)

	saved, err := f.svc.Get(context.Background(), result.Document.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Document, saved)
}

func TestIngestQueueTimeoutBoundsRedisPush(t *testing.T) {
	// A Redis address that accepts connections and never replies.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()

	rdb, err := queue.NewRedisClient("redis://" + ln.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	f := newFixture()
	f.svc.Queue = rdb
	f.svc.Timeouts.Queue = 200 * time.Millisecond

	start := time.Now()
	result, err := f.svc.Ingest(context.Background(), owner, pdfRequest("a.pdf", SamplePDF(1, 0)))
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.False(t, result.Dispatched)
	require.ErrorIs(t, result.DispatchErr, ErrDispatchFailed)
	assert.Less(t, elapsed, 2*time.Second, "queue step took %s", elapsed)
}

func TestIngestDispatchFailureKeepsDocument(t *testing.T) {
	f := newFixture()
	f.queue.err = errors.New("redis unreachable")

	result, err := f.svc.Ingest(context.Background(), owner, pdfRequest("a.pdf", SamplePDF(1, 0)))
	require.NoError(t, err)
	assert.False(t, result.Dispatched)
	require.ErrorIs(t, result.DispatchErr, ErrDispatchFailed)

	saved, err := f.repo.GetByID(context.Background(), result.Document.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Document, saved)
}

func TestIngestWithoutQueueIsPending(t *testing.T) {
	f := newFixture()
	f.svc.Queue = nil

	result, err := f.svc.Ingest(context.Background(), owner, pdfRequest("a.pdf", SamplePDF(1, 0)))
	require.NoError(t, err)
	assert.False(t, result.Dispatched)
	assert.ErrorIs(t, result.DispatchErr, queue.ErrDisabled)
}

func TestIngestSurvivesClientCancellation(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.svc.Ingest(ctx, owner, pdfRequest("a.pdf", SamplePDF(1, 0)))
	require.NoError(t, err)
	assert.True(t, result.Dispatched)
}

func TestIngestIDsAreUniqueAcrossRequests(t *testing.T) {
	f := newFixture()
	clock := time.Unix(1723123123, 0)
	var mu sync.Mutex
	f.svc.Now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Nanosecond)
		return clock
	}

	var wg sync.WaitGroup
	results := make([]IngestResult, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.Ingest(context.Background(), owner, pdfRequest("a.pdf", SamplePDF(1, 0)))
			if err == nil {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()

	ids := map[int64]bool{}
	for _, r := range results {
		require.NotZero(t, r.Document.ID)
		ids[r.Document.ID] = true
	}
	assert.Len(t, ids, 10)
}

func TestListNewestFirst(t *testing.T) {
	f := newFixture()
	for _, name := range []string{"a.pdf", "b.pdf"} {
		_, err := f.svc.Ingest(context.Background(), owner, pdfRequest(name, SamplePDF(1, 0)))
		require.NoError(t, err)
	}

	docs, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "b.pdf", docs[0].OriginalName)
}

func TestGetUnknownID(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Get(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}
