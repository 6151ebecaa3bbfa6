package alchemy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eringen/alchemy/metadata"
	"github.com/eringen/alchemy/vision"
)

var (
	// ErrQueueFull is returned by Submit when no slot is free.
	ErrQueueFull = errors.New("processing queue is full")
	// ErrQueueClosed is returned by Submit after Stop.
	ErrQueueClosed = errors.New("processing queue is closed")
)

// processTimeout bounds one vision call plus bookkeeping.
const processTimeout = 2 * time.Minute

// Processor turns a stored image into generated metadata.
type Processor struct {
	Store     *Store
	Describer vision.Describer
	Parser    metadata.Parser
	Prompt    string
	// Dir holds uploaded files; images with an absolute URL are downloaded instead.
	Dir    string
	Client *http.Client
	// OnResult is called with the owner id after a result is stored.
	OnResult func(userID string)
}

// Process runs the model on one image and stores the outcome. A failure is
// recorded on the image as status failed and also returned.
func (p *Processor) Process(ctx context.Context, id string) (Image, error) {
	img, err := p.Store.ImageByID(ctx, id)
	if err != nil {
		return Image{}, err
	}

	md, procErr := p.describe(ctx, img)
	status := StatusComplete
	errMsg := ""
	if procErr != nil {
		status = StatusFailed
		errMsg = procErr.Error()
		md = metadata.Record{}
	}

	// Store the outcome even if the request context ended.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.Store.SetResult(saveCtx, img.ID, status, md, errMsg); err != nil {
		return img, fmt.Errorf("save result: %w", err)
	}
	if p.OnResult != nil {
		p.OnResult(img.UserID)
	}

	img.Status, img.Metadata, img.Error = status, md, errMsg
	return img, procErr
}

func (p *Processor) describe(ctx context.Context, img Image) (metadata.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, processTimeout)
	defer cancel()

	data, mime, err := p.load(ctx, img)
	if err != nil {
		return metadata.Record{}, err
	}
	text, err := p.Describer.Describe(ctx, data, mime, p.Prompt)
	if err != nil {
		return metadata.Record{}, err
	}
	return p.Parser.Parse(text), nil
}

func (p *Processor) load(ctx context.Context, img Image) ([]byte, string, error) {
	if strings.HasPrefix(img.URL, "http://") || strings.HasPrefix(img.URL, "https://") {
		return vision.Fetch(ctx, p.Client, img.URL)
	}
	data, err := os.ReadFile(filepath.Join(p.Dir, img.Filename))
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	return data, http.DetectContentType(data), nil
}

// Handle is the queue callback; it logs instead of returning errors.
func (p *Processor) Handle(ctx context.Context, id string) {
	if _, err := p.Process(ctx, id); err != nil {
		log.Printf("[worker] image %s failed: %v", id, err)
		return
	}
	log.Printf("[worker] image %s complete", id)
}

// BatchResult is the outcome for one image of ProcessBatch.
type BatchResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ProcessBatch processes ids with at most limit running at once. One image
// failing does not stop the others.
func (p *Processor) ProcessBatch(ctx context.Context, ids []string, limit int) []BatchResult {
	results := make([]BatchResult, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))

	for i, id := range ids {
		g.Go(func() error {
			img, err := p.Process(ctx, id)
			results[i] = BatchResult{ID: id, Status: img.Status}
			if err != nil {
				results[i].Error = err.Error()
				if results[i].Status == "" {
					results[i].Status = StatusFailed
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Queue feeds image ids to a fixed set of workers through a buffered channel.
type Queue struct {
	jobs    chan string
	workers int
	handle  func(context.Context, string)

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewQueue creates a stopped queue; Start launches the workers.
func NewQueue(workers, size int, handle func(context.Context, string)) *Queue {
	return &Queue{
		jobs:    make(chan string, max(size, 1)),
		workers: max(workers, 1),
		handle:  handle,
	}
}

// Start launches the workers. Extra calls do nothing.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true
	log.Printf("[worker] starting %d workers", q.workers)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for id := range q.jobs {
		q.handle(context.Background(), id)
	}
}

// Submit enqueues id without blocking.
func (q *Queue) Submit(id string) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- id:
		return nil
	default:
		return ErrQueueFull
	}
}

// Len reports the number of waiting jobs.
func (q *Queue) Len() int {
	return len(q.jobs)
}

// Stop refuses new jobs and waits for the workers to finish the queued ones.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
	log.Printf("[worker] stopped")
}
