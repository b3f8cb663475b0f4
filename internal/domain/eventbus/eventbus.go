package eventbus

import (
	"sync"

	evbus "github.com/asaskevich/EventBus"
)

// Bus wraps an EventBus instance with a bounded worker pool for
// fire-and-forget publishing.
type Bus struct {
	bus       evbus.Bus
	workerNum int
	workChan  chan asyncEvent
	stopChan  chan struct{}
	wg        sync.WaitGroup
	pending   sync.WaitGroup
	stopOnce  sync.Once
	startOnce sync.Once
}

type asyncEvent struct {
	topic string
	args  []any
}

// New 创建事件总线, workerNum <= 0 时使用 4 个 worker
func New(workerNum int) *Bus {
	if workerNum <= 0 {
		workerNum = 4
	}
	return &Bus{
		bus:       evbus.New(),
		workerNum: workerNum,
		workChan:  make(chan asyncEvent, 256),
		stopChan:  make(chan struct{}),
	}
}

// Start launches the async workers. Calling it more than once is a no-op.
func (b *Bus) Start() {
	b.startOnce.Do(func() {
		for i := 0; i < b.workerNum; i++ {
			b.wg.Add(1)
			go b.worker()
		}
	})
}

// Stop drains nothing: queued events that have not been picked up are dropped.
func (b *Bus) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopChan)
		b.wg.Wait()
		b.bus.WaitAsync()
	})
}

func (b *Bus) worker() {
	defer b.wg.Done()
	for {
		select {
		case <-b.stopChan:
			return
		case event := <-b.workChan:
			b.dispatch(event)
		}
	}
}

func (b *Bus) dispatch(event asyncEvent) {
	defer b.pending.Done()
	defer func() {
		// 订阅者 panic 不能终止 worker
		_ = recover()
	}()
	b.bus.Publish(event.topic, event.args...)
}

// Publish delivers synchronously to every subscriber of topic.
func (b *Bus) Publish(topic string, args ...any) {
	b.bus.Publish(topic, args...)
}

// PublishAsync queues the event for a worker. It reports false when the
// queue is full or the bus is stopped and the event was dropped.
func (b *Bus) PublishAsync(topic string, args ...any) bool {
	select {
	case <-b.stopChan:
		return false
	default:
	}

	b.pending.Add(1)
	select {
	case b.workChan <- asyncEvent{topic: topic, args: args}:
		return true
	default:
		b.pending.Done()
		return false
	}
}

func (b *Bus) Subscribe(topic string, fn any) error {
	return b.bus.Subscribe(topic, fn)
}

// SubscribeAsync runs fn on its own goroutine for every publish.
func (b *Bus) SubscribeAsync(topic string, fn any) error {
	return b.bus.SubscribeAsync(topic, fn, false)
}

func (b *Bus) Unsubscribe(topic string, fn any) error {
	return b.bus.Unsubscribe(topic, fn)
}

func (b *Bus) HasCallback(topic string) bool {
	return b.bus.HasCallback(topic)
}

// WaitAsync blocks until every queued event has been dispatched and every
// async subscriber has returned.
func (b *Bus) WaitAsync() {
	b.pending.Wait()
	b.bus.WaitAsync()
}
