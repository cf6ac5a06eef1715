package desktop

import (
	"context"
	"encoding/json"

	"ergosum/internal/shell"
)

// wailsWindow drives the single Wails window on behalf of the shell
// coordinator. Its methods are only called from the coordinator loop.
type wailsWindow struct {
	ctx context.Context
	ops runtimeOps
}

var _ shell.Window = (*wailsWindow)(nil)

func newWailsWindow(ctx context.Context, ops runtimeOps) *wailsWindow {
	return &wailsWindow{ctx: ctx, ops: ops}
}

func (w *wailsWindow) LoadURL(target string) {
	w.ops.execJS(w.ctx, loadURLScript(target))
}

// Focus shows the window, which also raises it on every platform Wails
// supports.
func (w *wailsWindow) Focus() {
	w.ops.show(w.ctx)
}

func (w *wailsWindow) IsMinimized() bool {
	return w.ops.isMinimised(w.ctx)
}

func (w *wailsWindow) Restore() {
	w.ops.unminimise(w.ctx)
}

// loadURLScript quotes target as a JS string literal. json.Marshal escapes
// quotes and control characters, and "<", ">" and "&" as \u escapes.
func loadURLScript(target string) string {
	quoted, err := json.Marshal(target)
	if err != nil {
		return ""
	}
	return "window.location.assign(" + string(quoted) + ");"
}
