package refdevice

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// MacroEngine plays back the Lua scripts named by "macro <keys>:<name>"
// lines: a single worker
// goroutine runs at most one script at a time, canceling whatever is
// running when a new one is requested.
type MacroEngine struct {
	dir string

	cmdChan chan macroCmd
	wg      sync.WaitGroup
}

type macroCmd struct {
	stop bool
	name string
	key  int
}

// NewMacroEngine starts a macro engine reading scripts from dir.
func NewMacroEngine(dir string) *MacroEngine {
	e := &MacroEngine{
		dir:     dir,
		cmdChan: make(chan macroCmd, 10),
	}
	go e.runLoop()
	return e
}

func (e *MacroEngine) runLoop() {
	var currentCancel context.CancelFunc
	var done chan struct{}

	for cmd := range e.cmdChan {
		if currentCancel != nil {
			currentCancel()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				log.Println("[Lua] Timeout waiting for macro to stop")
			}
			currentCancel = nil
			done = nil
		}

		if cmd.stop {
			continue
		}

		ctx, cancel := context.WithCancel(context.Background())
		currentCancel = cancel
		done = make(chan struct{})
		go e.execute(cmd.name, cmd.key, ctx, done)
	}
}

// Stop cancels whatever macro is currently playing.
func (e *MacroEngine) Stop() {
	select {
	case e.cmdChan <- macroCmd{stop: true}:
	default:
		log.Println("[Lua] Command channel full, could not send stop")
	}
}

// Play queues name (a macro file, ".lua" appended if missing) for
// playback against key. It never blocks the calling dispatcher
// goroutine.
func (e *MacroEngine) Play(name string, key int) {
	select {
	case e.cmdChan <- macroCmd{name: name, key: key}:
	default:
		log.Printf("[Lua] Macro command channel full, dropping %q", name)
	}
}

func sanitizeMacroName(name string) (string, error) {
	if !strings.HasSuffix(name, ".lua") {
		name += ".lua"
	}
	clean := filepath.Base(name)
	if clean == "" || clean == ".lua" || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid macro name %q", name)
	}
	return clean, nil
}

func (e *MacroEngine) path(name string) (string, error) {
	clean, err := sanitizeMacroName(name)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(e.dir); os.IsNotExist(err) {
		if err := os.MkdirAll(e.dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create macros directory: %w", err)
		}
	}
	return filepath.Join(e.dir, clean), nil
}

func (e *MacroEngine) execute(name string, key int, ctx context.Context, done chan struct{}) {
	defer close(done)

	path, err := e.path(name)
	if err != nil {
		log.Printf("[Lua] %v", err)
		return
	}

	log.Printf("[Lua] Starting macro %q on key %d...", name, key)
	defer log.Printf("[Lua] Macro %q finished.", name)

	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)

	L.SetGlobal("key", lua.LNumber(key))
	L.SetGlobal("print", L.NewFunction(luaMacroPrint))
	L.SetGlobal("sleep", L.NewFunction(func(L *lua.LState) int {
		ms := L.ToInt(1)
		select {
		case <-time.After(time.Duration(ms) * time.Millisecond):
		case <-ctx.Done():
		}
		return 0
	}))
	L.SetGlobal("should_stop", L.NewFunction(func(L *lua.LState) int {
		select {
		case <-ctx.Done():
			L.Push(lua.LBool(true))
		default:
			L.Push(lua.LBool(false))
		}
		return 1
	}))

	if err := L.DoFile(path); err != nil {
		if ctx.Err() == context.Canceled {
			log.Printf("[Lua] Macro %q canceled.", name)
		} else {
			log.Printf("[Lua] Error executing macro %q: %v", name, err)
		}
	}
}

func luaMacroPrint(L *lua.LState) int {
	log.Printf("[LUA] %s", L.ToString(1))
	return 0
}
