package pipeline

import (
	"time"

	"github.com/SyntaxAsSpiral/Collectivist/pkg/types"
)

// emitter fans progress events to the caller's callback. A nil callback
// makes every method a no-op so stage code never nil-checks.
type emitter struct {
	fn    types.EventFunc
	stage string
}

func newEmitter(fn types.EventFunc) *emitter {
	return &emitter{fn: fn}
}

func (e *emitter) setStage(stage string) {
	e.stage = stage
}

func (e *emitter) emit(level types.EventLevel, msg string) {
	if e.fn == nil {
		return
	}
	e.fn(types.ProgressEvent{
		Stage:     e.stage,
		Level:     level,
		Message:   msg,
		Timestamp: time.Now(),
	})
}

func (e *emitter) info(msg string)    { e.emit(types.LevelInfo, msg) }
func (e *emitter) warn(msg string)    { e.emit(types.LevelWarn, msg) }
func (e *emitter) errorf(msg string)  { e.emit(types.LevelError, msg) }
func (e *emitter) success(msg string) { e.emit(types.LevelSuccess, msg) }
