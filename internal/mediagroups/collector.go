package mediagroups

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/mymmrac/telego"
)

const (
	// DefaultProcessDelay is how long an album stays open for more messages.
	DefaultProcessDelay = 2 * time.Second
	// DefaultMaxGroupSize is the largest album Telegram sends.
	DefaultMaxGroupSize = 10
)

// ProcessFunc receives a completed album, sorted by message id.
type ProcessFunc func(ctx context.Context, groupID string, messages []telego.Message) error

type group struct {
	messages []telego.Message
	timer    *time.Timer
}

// Collector gathers the messages of an album, which Telegram delivers as
// separate updates, and hands them over together once no more arrive.
type Collector struct {
	delay   time.Duration
	maxSize int

	mu     sync.Mutex
	groups map[string]*group
	closed bool
	wg     sync.WaitGroup
}

// NewCollector creates a collector. Non-positive arguments select the defaults.
func NewCollector(delay time.Duration, maxSize int) *Collector {
	if delay <= 0 {
		delay = DefaultProcessDelay
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxGroupSize
	}
	return &Collector{
		delay:   delay,
		maxSize: maxSize,
		groups:  make(map[string]*group),
	}
}

// Add stores an album message. The first message of an album schedules
// process to run after the collector's delay. Add reports false for
// messages outside of an album and after Shutdown.
func (c *Collector) Add(ctx context.Context, message telego.Message, process ProcessFunc) bool {
	groupID := message.MediaGroupID
	if groupID == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}

	g, ok := c.groups[groupID]
	if !ok {
		g = &group{messages: make([]telego.Message, 0, c.maxSize)}
		c.groups[groupID] = g
		// The update context ends with the update; the album outlives it.
		base := context.WithoutCancel(ctx)
		g.timer = time.AfterFunc(c.delay, func() { c.flush(base, groupID, process) })
		log.Printf("[MediaGroups Group:%s] Collecting, processing in %v", groupID, c.delay)
	}

	for _, m := range g.messages {
		if m.MessageID == message.MessageID {
			return true
		}
	}
	if len(g.messages) >= c.maxSize {
		log.Printf("[MediaGroups Group:%s] Limit %d reached, message %d dropped", groupID, c.maxSize, message.MessageID)
		return true
	}
	g.messages = append(g.messages, message)
	return true
}

func (c *Collector) flush(ctx context.Context, groupID string, process ProcessFunc) {
	c.mu.Lock()
	g, ok := c.groups[groupID]
	if !ok || c.closed {
		c.mu.Unlock()
		return
	}
	delete(c.groups, groupID)
	c.wg.Add(1)
	c.mu.Unlock()
	defer c.wg.Done()

	messages := g.messages
	sort.Slice(messages, func(i, j int) bool { return messages[i].MessageID < messages[j].MessageID })
	log.Printf("[MediaGroups Group:%s] Processing %d message(s)", groupID, len(messages))
	if err := process(ctx, groupID, messages); err != nil {
		log.Printf("[MediaGroups Group:%s] Error processing group: %v", groupID, err)
	}
}

// Pending returns the number of albums still being collected.
func (c *Collector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.groups)
}

// Shutdown drops the albums still being collected and waits for the ones
// being processed.
func (c *Collector) Shutdown() {
	c.mu.Lock()
	c.closed = true
	dropped := 0
	for id, g := range c.groups {
		if g.timer.Stop() {
			dropped++
		}
		delete(c.groups, id)
	}
	c.mu.Unlock()

	c.wg.Wait()
	log.Printf("[MediaGroups] Shutdown complete, %d pending album(s) dropped", dropped)
}
