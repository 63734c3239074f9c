package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// APIVersion is exposed to scripts as the API_VERSION global.
const APIVersion = 1

// Engine wraps a single gopher-lua VM for utility scoring.
// Single-goroutine access only (tick loop). Reload swaps the VM in place.
type Engine struct {
	dir string
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every script under dir.
func NewEngine(dir string, log *zap.Logger) (*Engine, error) {
	vm, err := loadState(dir, log)
	if err != nil {
		return nil, err
	}
	return &Engine{dir: dir, vm: vm, log: log}, nil
}

// Dir returns the script root the engine loads from.
func (e *Engine) Dir() string { return e.dir }

func loadState(dir string, log *zap.Logger) (*lua.LState, error) {
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(APIVersion))

	// Scripts at the root first, then one level of subdirectories in name order.
	if err := loadDir(vm, dir, log); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		vm.Close()
		return nil, fmt.Errorf("read script dir %s: %w", dir, err)
	}
	var subs []string
	for _, entry := range entries {
		if entry.IsDir() {
			subs = append(subs, entry.Name())
		}
	}
	sort.Strings(subs)
	for _, sub := range subs {
		if err := loadDir(vm, filepath.Join(dir, sub), log); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return vm, nil
}

// loadDir loads all .lua files in a directory.
func loadDir(vm *lua.LState, dir string, log *zap.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Reload rebuilds the VM from disk. On failure the previous VM stays live.
func (e *Engine) Reload() error {
	vm, err := loadState(e.dir, e.log)
	if err != nil {
		return err
	}
	e.vm.Close()
	e.vm = vm
	e.log.Info("lua scripts reloaded", zap.String("dir", e.dir))
	return nil
}

// ScoreContext holds the pre-packed agent state handed to a scoring function.
type ScoreContext struct {
	AgentID      int
	SquadSize    int
	Leader       bool
	HasObjective bool
	Inside       bool // within the objective radius
	DistanceSq   float64
	Moving       bool
	Guarding     bool
	Observed     int // privileged observers within ObservedRadius
}

// ObservedRadius is the reach in meters used to count observers near an agent.
const ObservedRadius = 30.0

// Has reports whether the global fn is a callable Lua function.
func (e *Engine) Has(fn string) bool {
	_, ok := e.vm.GetGlobal(fn).(*lua.LFunction)
	return ok
}

// Score calls the Lua function fn(ctx) and returns its numeric result.
// A missing function, a runtime error or a non-numeric result reports false.
func (e *Engine) Score(fn string, ctx ScoreContext) (float64, bool) {
	f, ok := e.vm.GetGlobal(fn).(*lua.LFunction)
	if !ok {
		return 0, false
	}

	t := e.vm.NewTable()
	t.RawSetString("agent_id", lua.LNumber(ctx.AgentID))
	t.RawSetString("squad_size", lua.LNumber(ctx.SquadSize))
	t.RawSetString("leader", lua.LBool(ctx.Leader))
	t.RawSetString("has_objective", lua.LBool(ctx.HasObjective))
	t.RawSetString("inside", lua.LBool(ctx.Inside))
	t.RawSetString("dist_sq", lua.LNumber(ctx.DistanceSq))
	t.RawSetString("moving", lua.LBool(ctx.Moving))
	t.RawSetString("guarding", lua.LBool(ctx.Guarding))
	t.RawSetString("observed", lua.LNumber(ctx.Observed))

	if err := e.vm.CallByParam(lua.P{
		Fn:      f,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua call error", zap.String("func", fn), zap.Error(err))
		return 0, false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	n, ok := result.(lua.LNumber)
	if !ok {
		e.log.Warn("lua score not a number",
			zap.String("func", fn),
			zap.String("type", result.Type().String()))
		return 0, false
	}
	return float64(n), true
}

// Tunable returns a numeric script global such as GUARD_WATCH_SECONDS,
// falling back to def when unset.
func (e *Engine) Tunable(name string, def float64) float64 {
	if n, ok := e.vm.GetGlobal(name).(lua.LNumber); ok {
		return float64(n)
	}
	return def
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
