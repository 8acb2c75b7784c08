package relay

import (
	"context"
	"sync"

	"github.com/tgwatch/relay/internal/logger"
)

// Pipeline fans incoming messages out to a fixed pool of workers fed from a
// bounded intake queue. Messages from the same source chat always land on the
// same worker, so per-chat order is preserved while slow media work on one
// chat never stalls another.
type Pipeline struct {
	svc    *Service
	log    *logger.Logger
	intake chan Message
	lanes  []chan Message
	wg     sync.WaitGroup
}

// NewPipeline creates a pipeline with the given worker count and intake
// queue size.
func NewPipeline(svc *Service, workers, queueSize int, log *logger.Logger) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	lanes := make([]chan Message, workers)
	for i := range lanes {
		lanes[i] = make(chan Message, queueSize)
	}
	return &Pipeline{
		svc:    svc,
		log:    log,
		intake: make(chan Message, queueSize),
		lanes:  lanes,
	}
}

// Enqueue offers a message to the intake queue without blocking. It returns
// false when the queue is full; the caller decides whether to log the drop.
// Never block here: the transport calls Enqueue from its keep-alive loop.
func (p *Pipeline) Enqueue(msg Message) bool {
	select {
	case p.intake <- msg:
		return true
	default:
		return false
	}
}

// Run dispatches until the context is canceled, then drains the lanes and
// waits for in-flight work. Workers process with a detached context so an
// in-flight send finishes or fails cleanly instead of being interrupted
// mid-retry.
func (p *Pipeline) Run(ctx context.Context) {
	work := context.WithoutCancel(ctx)

	for i := range p.lanes {
		lane := p.lanes[i]
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for msg := range lane {
				p.svc.Process(work, msg)
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			for _, lane := range p.lanes {
				close(lane)
			}
			p.wg.Wait()
			p.log.Info().Msg("relay: pipeline drained")
			return
		case msg := <-p.intake:
			p.lanes[p.laneFor(msg.Chat.ID)] <- msg
		}
	}
}

// laneFor maps a chat id to its worker lane. Canonical ids are non-negative,
// so the modulo is safe.
func (p *Pipeline) laneFor(chatID int64) int {
	return int(CanonicalChatID(chatID) % int64(len(p.lanes)))
}
