package ernie

// pendingQueue is a growable FIFO ring of requests backing the dispatcher's
// shared pending queue. It is only ever touched from the dispatcher
// goroutine, so it carries no lock.
type pendingQueue struct {
	buf  []*Request // underlying buffer array.
	mask uint64     // mask for index wrapping.
	head uint64     // next position to read from.
	tail uint64     // next position to write to.
}

// nextPow2 returns the smallest power of two >= v with a minimum of 1.
func nextPow2(v uint64) uint64 {
	if v == 0 {
		return 1
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v |= v >> 32
	return v + 1
}

// newPendingQueue creates a queue with capacity rounded up to a power of two.
func newPendingQueue(size uint64) *pendingQueue {
	capacity := nextPow2(size)
	return &pendingQueue{
		buf:  make([]*Request, capacity),
		mask: capacity - 1,
	}
}

// push appends a request at the tail, growing the ring when full.
func (q *pendingQueue) push(r *Request) {
	if q.tail-q.head == uint64(len(q.buf)) {
		q.grow()
	}
	q.buf[q.tail&q.mask] = r
	q.tail++
}

// pop removes and returns the head request. It returns false when empty.
func (q *pendingQueue) pop() (*Request, bool) {
	if q.tail == q.head {
		return nil, false
	}
	r := q.buf[q.head&q.mask]
	q.buf[q.head&q.mask] = nil
	q.head++
	return r, true
}

// len returns the number of queued requests.
func (q *pendingQueue) len() int {
	return int(q.tail - q.head)
}

// grow doubles the ring, re-packing entries in FIFO order.
func (q *pendingQueue) grow() {
	next := make([]*Request, len(q.buf)*2)
	n := 0
	for i := q.head; i != q.tail; i++ {
		next[n] = q.buf[i&q.mask]
		n++
	}
	q.buf = next
	q.mask = uint64(len(next)) - 1
	q.head = 0
	q.tail = uint64(n)
}
