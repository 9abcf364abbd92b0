// Package token tracks outstanding submission tokens.
//
// The game client fetches a token before uploading a play; redeeming consumes
// it. The registry is bounded: when it overflows, the oldest outstanding token
// is forgotten and its submission will be rejected as stale.
package token

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Registry issues and redeems submission tokens.
type Registry interface {
	// Issue mints a new token and records it as outstanding.
	Issue(ctx context.Context) string

	// Redeem consumes an outstanding token. It returns false when the token
	// was never issued, already redeemed, or evicted.
	Redeem(ctx context.Context, tok string) bool

	Size() int64
}

// node is one entry in the issue-order list, newest at head.
type node struct {
	tok  string
	next *node
}

func (n *node) reset() {
	n.tok = ""
	n.next = nil
}

type registry struct {
	mu          sync.Mutex
	outstanding map[string]*node
	head        *node
	maxSize     int
	size        atomic.Int64
	nodePool    sync.Pool
}

// Option applies a configuration option to the registry.
type Option func(*registry)

// WithMaxSize bounds the number of outstanding tokens. Sizes <= 0 fall back
// to the default.
func WithMaxSize(maxSize int) Option {
	return func(r *registry) {
		if maxSize > 0 {
			r.maxSize = maxSize
		}
	}
}

// NewRegistry creates a bounded in-memory token registry.
func NewRegistry(opts ...Option) Registry {
	r := &registry{
		maxSize:     50000,
		outstanding: make(map[string]*node),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.nodePool = sync.Pool{
		New: func() interface{} {
			return &node{}
		},
	}
	return r
}

// Issue implements Registry.
func (r *registry) Issue(_ context.Context) string {
	tok := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.outstanding) >= r.maxSize {
		r.evictOldest()
	}

	n := r.nodePool.Get().(*node)
	n.tok = tok
	n.next = r.head
	r.head = n
	r.outstanding[tok] = n
	r.size.Add(1)
	return tok
}

// Redeem implements Registry.
func (r *registry) Redeem(_ context.Context, tok string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.outstanding[tok]
	if !ok {
		return false
	}
	delete(r.outstanding, tok)
	r.unlink(n)
	n.reset()
	r.nodePool.Put(n)
	r.size.Add(-1)
	return true
}

// Size returns the number of outstanding tokens.
func (r *registry) Size() int64 {
	return r.size.Load()
}

// unlink removes n from the issue-order list. Caller holds r.mu.
func (r *registry) unlink(n *node) {
	if r.head == n {
		r.head = n.next
		return
	}
	cur := r.head
	for cur != nil && cur.next != n {
		cur = cur.next
	}
	if cur != nil {
		cur.next = n.next
	}
}

// evictOldest drops the tail of the list, the earliest still-outstanding
// token. Caller holds r.mu.
func (r *registry) evictOldest() {
	if r.head == nil {
		return
	}
	var prev *node
	cur := r.head
	for cur.next != nil {
		prev = cur
		cur = cur.next
	}
	if prev == nil {
		r.head = nil
	} else {
		prev.next = nil
	}
	delete(r.outstanding, cur.tok)
	cur.reset()
	r.nodePool.Put(cur)
	r.size.Add(-1)
}
