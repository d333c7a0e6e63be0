package presence

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CommandQueue holds per-agent command lists, bounded per agent.
//
// Thread Safety: all methods are safe for concurrent use. Drain is atomic:
// two concurrent polls can never deliver the same command twice.
type CommandQueue struct {
	mu       sync.Mutex
	maxDepth int
	queues   map[string][]Command
}

// NewCommandQueue bounds each agent's queue at maxDepth commands.
func NewCommandQueue(maxDepth int) *CommandQueue {
	return &CommandQueue{
		maxDepth: maxDepth,
		queues:   make(map[string][]Command),
	}
}

// Enqueue appends a command for key and returns the resulting queue depth.
// Returns ErrQueueFull when the agent has stopped polling and its queue has
// filled up; callers surface that as an insufficient-storage condition.
func (q *CommandQueue) Enqueue(key, cmdType string, payload map[string]any) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	queue := q.queues[key]
	if len(queue) >= q.maxDepth {
		return len(queue), fmt.Errorf("%w: %d commands pending for %s", ErrQueueFull, len(queue), key)
	}

	q.queues[key] = append(queue, Command{
		ID:       uuid.NewString(),
		Type:     cmdType,
		Payload:  payload,
		QueuedAt: time.Now().UTC(),
	})
	return len(q.queues[key]), nil
}

// Drain returns key's pending commands in enqueue order and clears the queue.
// An agent with nothing pending gets an empty slice, never nil, so the poll
// response always carries a commands array.
func (q *CommandQueue) Drain(key string) []Command {
	q.mu.Lock()
	defer q.mu.Unlock()

	queue, ok := q.queues[key]
	if !ok {
		return []Command{}
	}
	delete(q.queues, key)
	return queue
}

// Remove discards key's queue without delivering it. Used when the agent
// record itself is swept.
func (q *CommandQueue) Remove(key string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.queues, key)
}

// Depth returns the number of commands pending for key.
func (q *CommandQueue) Depth(key string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queues[key])
}
