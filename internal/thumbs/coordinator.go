package thumbs

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/face-explorer/internal/constants"
	"github.com/kozaktomas/face-explorer/internal/imgutil"
)

// taskState tracks where a load job is in its lifecycle.
type taskState int

const (
	statePending taskState = iota
	stateAttempting
	stateRetryWait
	stateDone
	stateFailed
)

// DeliverFunc receives the finished thumbnail for one slot. The bytes
// are a JPEG with the similarity badge already composited, or the
// placeholder tile when every attempt failed.
type DeliverFunc func(slot SlotID, icon []byte)

type waiter struct {
	slot    SlotID
	deliver DeliverFunc
}

type loadJob struct {
	url        string
	similarity float64
	state      taskState
	attempt    int
	waiters    []waiter

	// ctx is owned by the coordinator, not any requester. A shared
	// fetch must survive the first requester going away as long as
	// another slot still waits on it.
	ctx    context.Context
	cancel context.CancelFunc
}

// Coordinator deduplicates concurrent loads of the same URL, runs the
// fetch attempts through the bounded queue and fans finished thumbnails
// out to every slot that is still alive at delivery time. During the
// delay between retry attempts a job holds no queue credit, so other
// URLs keep downloading.
type Coordinator struct {
	cache   *ImageCache
	queue   *TaskQueue
	fetcher *Fetcher
	slots   *SlotTable

	maxAttempts int
	retryDelay  time.Duration

	placeholder []byte

	mu       sync.Mutex
	inflight map[string]*loadJob
}

type CoordinatorConfig struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

func NewCoordinator(cache *ImageCache, queue *TaskQueue, fetcher *Fetcher, slots *SlotTable, cfg CoordinatorConfig) *Coordinator {
	placeholder, err := imgutil.EncodeJPEG(imgutil.Placeholder(constants.ThumbnailSize))
	if err != nil {
		// Placeholder is generated from constants; failure is a build defect.
		panic("could not encode placeholder thumbnail: " + err.Error())
	}

	return &Coordinator{
		cache:       cache,
		queue:       queue,
		fetcher:     fetcher,
		slots:       slots,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		placeholder: placeholder,
		inflight:    make(map[string]*loadJob),
	}
}

// Slots exposes the slot table so consumers can allocate and free
// display slots against the same arena the coordinator checks.
func (c *Coordinator) Slots() *SlotTable {
	return c.slots
}

// Load requests the thumbnail for url on behalf of slot. A cache hit is
// delivered synchronously. Otherwise the slot joins the in-flight job
// for that URL, or a new job is queued. The similarity of the first
// requester is baked into the cached badge.
//
// Fetches run on a context the coordinator owns, so a shared job keeps
// going when its first requester disappears. A job is abandoned only
// once every slot waiting on it has been freed.
func (c *Coordinator) Load(url string, similarity float64, slot SlotID, deliver DeliverFunc) {
	if icon, ok := c.cache.Get(url); ok {
		if c.slots.Alive(slot) {
			deliver(slot, icon)
		}
		return
	}

	c.mu.Lock()
	if job, ok := c.inflight[url]; ok {
		job.waiters = append(job.waiters, waiter{slot: slot, deliver: deliver})
		c.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := &loadJob{
		url:        url,
		similarity: similarity,
		state:      statePending,
		attempt:    1,
		waiters:    []waiter{{slot: slot, deliver: deliver}},
		ctx:        ctx,
		cancel:     cancel,
	}
	c.inflight[url] = job
	c.mu.Unlock()

	c.queue.Submit(func() { c.runAttempt(job) })
}

// abandonIfOrphaned drops a job none of whose waiting slots are alive
// anymore. Reports whether the job was dropped.
func (c *Coordinator) abandonIfOrphaned(job *loadJob) bool {
	c.mu.Lock()
	for _, w := range job.waiters {
		if c.slots.Alive(w.slot) {
			c.mu.Unlock()
			return false
		}
	}
	job.state = stateFailed
	job.waiters = nil
	delete(c.inflight, job.url)
	c.mu.Unlock()

	job.cancel()
	return true
}

func (c *Coordinator) runAttempt(job *loadJob) {
	if c.abandonIfOrphaned(job) {
		return
	}

	c.mu.Lock()
	job.state = stateAttempting
	attempt := job.attempt
	c.mu.Unlock()

	img, err := c.fetcher.FetchAttempt(job.ctx, job.url, attempt)
	if err == nil {
		thumb := imgutil.Thumbnail(img, constants.ThumbnailSize)
		badged := imgutil.WithSimilarityBadge(thumb, job.similarity)
		icon, encErr := imgutil.EncodeJPEG(badged)
		if encErr == nil {
			c.cache.Put(job.url, icon)
			c.finish(job, stateDone, icon)
			return
		}
		err = encErr
	}

	if attempt >= c.maxAttempts || job.ctx.Err() != nil {
		_ = err
		c.finish(job, stateFailed, c.placeholder)
		return
	}

	c.mu.Lock()
	job.state = stateRetryWait
	job.attempt = attempt + 1
	c.mu.Unlock()

	// re-enter the queue after the delay; the credit for this attempt
	// is already released when this function returns
	time.AfterFunc(c.retryDelay, func() {
		c.mu.Lock()
		job.state = statePending
		c.mu.Unlock()
		c.queue.Submit(func() { c.runAttempt(job) })
	})
}

func (c *Coordinator) finish(job *loadJob, final taskState, icon []byte) {
	c.mu.Lock()
	job.state = final
	waiters := job.waiters
	job.waiters = nil
	delete(c.inflight, job.url)
	c.mu.Unlock()

	job.cancel()

	for _, w := range waiters {
		if c.slots.Alive(w.slot) {
			w.deliver(w.slot, icon)
		}
	}
}

// InflightCount reports how many distinct URLs currently have a job.
func (c *Coordinator) InflightCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}
