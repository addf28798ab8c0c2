package emulator

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/tabeth/fakesqs/store"
)

const maxQueueNameLength = 80

// Registry holds named queues and addresses them by name or by URL. Every
// queue it creates gets the registry's options plus its own name.
type Registry struct {
	baseURL string
	opts    []Option
	log     *slog.Logger

	mu     sync.RWMutex
	queues map[string]*Queue
	ctx    context.Context // set by Start; queues created later start on it
}

// NewRegistry creates an empty registry. Queue URLs are baseURL joined with
// the queue name.
func NewRegistry(baseURL string, logger *slog.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		opts:    append(slices.Clone(opts), WithLogger(logger)),
		log:     logger.With("component", "registry"),
		queues:  make(map[string]*Queue),
	}
}

// CreateQueue creates a queue. If one with that name already exists it is
// returned together with store.ErrQueueAlreadyExists.
func (r *Registry) CreateQueue(name string) (*Queue, error) {
	if !isValidQueueName(name) {
		return nil, invalid("QueueName", "queue name %q must be 1-%d alphanumeric, hyphen or underscore characters", name, maxQueueNameLength)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.queues[name]; ok {
		return q, store.ErrQueueAlreadyExists
	}
	q := NewQueue(append(slices.Clone(r.opts), WithName(name))...)
	r.queues[name] = q
	if r.ctx != nil {
		q.Start(r.ctx)
	}
	r.log.Info("queue created", "queue", name)
	return q, nil
}

// GetQueue returns the named queue or store.ErrQueueDoesNotExist.
func (r *Registry) GetQueue(name string) (*Queue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.queues[name]
	if !ok {
		return nil, store.ErrQueueDoesNotExist
	}
	return q, nil
}

// Lookup resolves a queue URL, or a bare queue name, to its queue.
func (r *Registry) Lookup(queueURL string) (*Queue, error) {
	return r.GetQueue(QueueNameFromURL(queueURL))
}

// QueueURL returns the URL of the named queue, whether or not it exists.
func (r *Registry) QueueURL(name string) string {
	if r.baseURL == "" {
		return name
	}
	return r.baseURL + "/" + name
}

// ListQueues returns the URLs of the queues whose name starts with prefix,
// sorted by name.
func (r *Registry) ListQueues(prefix string) []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.queues))
	for name := range r.queues {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	r.mu.RUnlock()

	slices.Sort(names)
	urls := make([]string, len(names))
	for i, name := range names {
		urls[i] = r.QueueURL(name)
	}
	return urls
}

// DeleteQueue closes the named queue and forgets it. Pending calls on it fail
// with ErrQueueClosed.
func (r *Registry) DeleteQueue(name string) error {
	r.mu.Lock()
	q, ok := r.queues[name]
	delete(r.queues, name)
	r.mu.Unlock()
	if !ok {
		return store.ErrQueueDoesNotExist
	}
	r.log.Info("queue deleted", "queue", name)
	return q.Close()
}

// Start drives every queue, present and future, until ctx is done.
func (r *Registry) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctx = ctx
	for _, q := range r.queues {
		q.Start(ctx)
	}
}

// Close closes every queue.
func (r *Registry) Close() error {
	r.mu.Lock()
	queues := r.queues
	r.queues = make(map[string]*Queue)
	r.mu.Unlock()

	var errs []error
	for _, q := range queues {
		errs = append(errs, q.Close())
	}
	return errors.Join(errs...)
}

// QueueNameFromURL extracts the queue name from a queue URL. A value that is
// not a URL is taken to be the name itself.
func QueueNameFromURL(queueURL string) string {
	if u, err := url.Parse(queueURL); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(queueURL)
}

func isValidQueueName(name string) bool {
	return name != "" && len(name) <= maxQueueNameLength && isValidBatchEntryID(name)
}
