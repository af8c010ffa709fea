package telegram

import "sync"

// dispatcher runs jobs of one chat one after another, in submission order.
// Different chats run concurrently. A chat's goroutine exits once its queue is empty.
type dispatcher struct {
	mu     sync.Mutex
	queues map[int64][]func()
	wg     sync.WaitGroup
}

func newDispatcher() *dispatcher {
	return &dispatcher{queues: make(map[int64][]func())}
}

func (d *dispatcher) Dispatch(chatID int64, job func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// очередь существует, пока для чата работает горутина
	if queue, running := d.queues[chatID]; running {
		d.queues[chatID] = append(queue, job)
		return
	}

	d.queues[chatID] = []func(){job}
	d.wg.Add(1)
	go d.drain(chatID)
}

func (d *dispatcher) drain(chatID int64) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		queue := d.queues[chatID]
		if len(queue) == 0 {
			delete(d.queues, chatID)
			d.mu.Unlock()
			return
		}
		job := queue[0]
		d.queues[chatID] = queue[1:]
		d.mu.Unlock()

		job()
	}
}

// Wait blocks until every dispatched job has finished.
func (d *dispatcher) Wait() {
	d.wg.Wait()
}
