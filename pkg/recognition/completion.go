package recognition

import (
	"log/slog"
	"sync"
)

type outcome struct {
	observations []RawObservation
	err          error
}

// completion bridges an engine's completion handler into a blocking wait.
// Only the first invocation of the handler is delivered.
type completion struct {
	engine string
	once   sync.Once
	ch     chan outcome
}

func newCompletion(engine string) *completion {
	return &completion{engine: engine, ch: make(chan outcome, 1)}
}

func (c *completion) handler() CompletionHandler {
	return func(observations []RawObservation, err error) {
		delivered := false
		c.once.Do(func() {
			c.ch <- outcome{observations: observations, err: err}
			delivered = true
		})
		if !delivered {
			slog.Debug("Dropping duplicate completion", "engine", c.engine)
		}
	}
}

func (c *completion) wait() ([]RawObservation, error) {
	o := <-c.ch
	return o.observations, o.err
}
