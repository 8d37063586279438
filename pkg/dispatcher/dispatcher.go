package dispatcher

import (
	"context"
	"errors"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thebartekbanach/imloader/pkg/loader"
	"golang.org/x/sync/errgroup"
)

// Dispatcher runs loads on a fixed pool of workers and hands their results
// to a single consumer, which applies them only if the target still wants
// the loaded URL.
type Dispatcher struct {
	loader      Loader
	binder      Binder
	workers     int
	loadTimeout time.Duration
	logger      *log.Logger

	requests *queue[Request]
	results  *queue[result]

	lock         sync.Mutex
	started      bool
	stopped      bool
	cancel       context.CancelFunc
	workerGroup  *errgroup.Group
	consumerDone chan struct{}
}

type Option func(*Dispatcher)

// WithWorkers overrides the worker count; values < 1 keep the default.
func WithWorkers(workers int) Option {
	return func(d *Dispatcher) {
		if workers > 0 {
			d.workers = workers
		}
	}
}

// WithLoadTimeout bounds every load run by a worker. Zero means no bound.
func WithLoadTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.loadTimeout = timeout
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func DefaultWorkers() int {
	return runtime.NumCPU()*2 + 1
}

func New(imageLoader Loader, binder Binder, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		loader:   imageLoader,
		binder:   binder,
		workers:  DefaultWorkers(),
		requests: newQueue[Request](),
		results:  newQueue[result](),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = log.New(log.Writer(), "[dispatcher] ", log.Flags())
	}

	return d
}

// Start launches the workers and the consumer. Requests dispatched before
// Start are queued and processed once it runs. A stopped dispatcher cannot
// be started again.
func (d *Dispatcher) Start(ctx context.Context) {
	d.lock.Lock()
	defer d.lock.Unlock()

	if d.started || d.stopped {
		return
	}
	d.started = true

	ctx, d.cancel = context.WithCancel(ctx)
	d.workerGroup, ctx = errgroup.WithContext(ctx)
	d.consumerDone = make(chan struct{})

	for i := 0; i < d.workers; i++ {
		d.workerGroup.Go(func() error {
			d.work(ctx)
			return nil
		})
	}

	go func() {
		defer close(d.consumerDone)
		d.consume(loader.WithNonBlocking(context.WithoutCancel(ctx)))
	}()
}

// Stop lets the workers finish the loads they are running, delivers the
// results already produced and returns. Queued requests are dropped.
func (d *Dispatcher) Stop() {
	d.lock.Lock()
	if d.stopped {
		d.lock.Unlock()
		return
	}
	d.stopped = true
	started := d.started
	d.lock.Unlock()

	if !started {
		d.requests.close()
		d.results.close()
		return
	}

	d.cancel()
	d.requests.close()
	d.workerGroup.Wait()
	d.results.close()
	<-d.consumerDone

	if pending := d.requests.len(); pending > 0 {
		d.logger.Printf("stopped with %d requests still queued", pending)
	}
}

// Dispatch schedules req and returns its id. Bitmaps already decoded in
// memory are handed to the consumer without going through the workers.
// After Stop every request is refused with ErrStopped.
func (d *Dispatcher) Dispatch(req Request) (uuid.UUID, error) {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	if bitmap, found := d.loader.LoadFromMemory(req.URL); found {
		if !d.results.push(result{req, bitmap}) {
			return req.ID, ErrStopped
		}
		return req.ID, nil
	}

	if !d.requests.push(req) {
		return req.ID, ErrStopped
	}
	return req.ID, nil
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		req, ok := d.requests.pop(ctx)
		if !ok || ctx.Err() != nil {
			return
		}

		d.process(context.WithoutCancel(ctx), req)
	}
}

func (d *Dispatcher) process(ctx context.Context, req Request) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Printf("request %s for %s panicked: %v", req.ID, req.URL, r)
		}
	}()

	if d.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.loadTimeout)
		defer cancel()
	}

	bitmap, err := d.loader.Load(ctx, req.URL, req.Width, req.Height)
	if err != nil {
		if !errors.Is(err, loader.ErrImageUnavailable) {
			d.logger.Printf("request %s for %s failed: %s", req.ID, req.URL, err)
		}
		return
	}

	d.results.push(result{req, bitmap})
}

func (d *Dispatcher) consume(ctx context.Context) {
	for {
		res, ok := d.results.pop(ctx)
		if !ok {
			return
		}

		d.deliver(ctx, res)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, res result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Printf("applying result of request %s panicked: %v", res.request.ID, r)
		}
	}()

	req := res.request
	if current := d.binder.CurrentURL(req.TargetID); current != req.URL {
		d.logger.Printf("dropping stale result of request %s: target %s now wants %s", req.ID, req.TargetID, current)
		return
	}

	d.binder.Apply(ctx, req.TargetID, req.URL, res.bitmap)
}

var ErrStopped = errors.New("dispatcher is stopped")
