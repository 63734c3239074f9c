package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/phobos/squadai/internal/core/system"
	"github.com/phobos/squadai/internal/scripting"
)

// ScriptReloadSystem reloads the Lua engine on the tick goroutine after the
// watcher reports a change. Phase 0 (Input).
type ScriptReloadSystem struct {
	engine  *scripting.Engine
	watcher *scripting.Watcher
	log     *zap.Logger
}

func NewScriptReloadSystem(engine *scripting.Engine, watcher *scripting.Watcher, log *zap.Logger) *ScriptReloadSystem {
	return &ScriptReloadSystem{engine: engine, watcher: watcher, log: log}
}

func (s *ScriptReloadSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *ScriptReloadSystem) Update(_ time.Duration) {
	select {
	case err, ok := <-s.watcher.Errors:
		if ok {
			s.log.Warn("script watcher error", zap.Error(err))
		}
	default:
	}

	if !s.watcher.Drain() {
		return
	}
	if err := s.engine.Reload(); err != nil {
		s.log.Error("lua reload failed, keeping previous scripts", zap.Error(err))
	}
}
