package engine

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// onChunk decodes a chunk, appends it to the buffer and runs a pass.
func (e *Engine) onChunk(data []byte) {
	if e.inputClosed {
		e.logger.Debug("chunk after end of input dropped", "bytes", len(data))
		return
	}
	text := e.decoder.Decode(data)
	if text == "" {
		return
	}
	e.buffer += text
	e.logger.Debug("chunk received", "bytes", len(data), "buffered", len(e.buffer))
	e.record(Event{Kind: EventChunk, Text: text})

	e.runPass()
	e.trimBuffer()
}

// matchPass sweeps the registry once in registration order. The first
// expectation whose pattern matches anywhere in the buffer wins.
func (e *Engine) matchPass() {
	if e.buffer == "" || len(e.registry) == 0 {
		return
	}
	e.logger.Debug("matching", "buffer", e.buffer, "pending", len(e.registry))

	for i, ex := range e.registry {
		m, ok := ex.pattern.Find(e.buffer)
		if !ok || m.Text == "" {
			continue
		}
		m.Buffer = e.buffer
		e.settleMatch(i, m)
		return
	}
}

// settleMatch fulfils the winner, discards the buffer through the end of
// the matched text, and cancels every sibling and the timeout. The winner
// is fulfilled last: a goroutine woken by it sees the rest already settled.
func (e *Engine) settleMatch(winner int, m Match) {
	ex := e.registry[winner]
	siblings := slices.Delete(slices.Clone(e.registry), winner, winner+1)
	e.registry = nil

	end := consumed(e.buffer, m)
	e.buffer = e.buffer[end:]

	for _, other := range siblings {
		e.cancelExpectation(other, ErrSuperseded, nil)
	}
	e.clearTimeout(ErrTimeoutCleared, nil)

	e.logger.Info("expectation matched",
		"id", ex.id,
		"pattern", ex.desc,
		"text", m.Text,
		"consumed", end,
		"superseded", len(siblings),
	)
	e.record(Event{Kind: EventMatch, Pattern: ex.desc, Text: m.Text})
	e.publish()
	ex.outcome.fulfil(m)
}

// consumed returns the truncation point for a match: the end of the first
// occurrence of the matched text in buf.
func consumed(buf string, m Match) int {
	i := strings.Index(buf, m.Text)
	if i < 0 {
		// A custom pattern reported text that is not in buf.
		i = min(max(m.Index, 0), len(buf))
		return min(i+len(m.Text), len(buf))
	}
	return i + len(m.Text)
}

func (e *Engine) cancelExpectation(ex *expectation, reason *CancelError, cause error) {
	if !ex.outcome.reject(cancelWith(reason, ex.desc, cause)) {
		return
	}
	e.logger.Debug("expectation cancelled", "id", ex.id, "pattern", ex.desc, "reason", reason.Code)
	e.record(Event{Kind: EventCancel, Pattern: ex.desc, Reason: string(reason.Code)})
}

func (e *Engine) onCancel(target *expectation) {
	i := slices.Index(e.registry, target)
	if i < 0 {
		return
	}
	e.registry = slices.Delete(e.registry, i, i+1)
	e.cancelExpectation(target, ErrCancelled, nil)
}

// trimBuffer drops the oldest text once the buffer exceeds maxBuffer,
// cutting on a rune boundary.
func (e *Engine) trimBuffer() {
	if len(e.buffer) <= e.maxBuffer {
		return
	}
	cut := len(e.buffer) - e.maxBuffer
	for cut < len(e.buffer) && !utf8.RuneStart(e.buffer[cut]) {
		cut++
	}
	e.buffer = strings.Clone(e.buffer[cut:])

	e.logger.Warn("buffer limit exceeded, oldest output dropped",
		"dropped", cut,
		"limit", e.maxBuffer,
	)
	e.record(Event{Kind: EventTrim, Reason: fmt.Sprintf("dropped %d bytes", cut)})
}
