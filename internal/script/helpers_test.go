package script

import (
	"sync"

	"github.com/roach88/expecto/engine"
)

// recorderFunc collects event kinds. Record runs on the engine loop and
// the sending goroutine, so appends are serialized.
func recorderFunc(f func(kind string)) engine.Recorder {
	var mu sync.Mutex
	return engine.RecorderFunc(func(ev engine.Event) error {
		mu.Lock()
		defer mu.Unlock()
		f(string(ev.Kind))
		return nil
	})
}
