package desktop

import (
	"context"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// runtimeOps is the part of the Wails runtime the bridge calls. Tests swap
// in fakes.
type runtimeOps struct {
	execJS      func(ctx context.Context, js string)
	show        func(ctx context.Context)
	isMinimised func(ctx context.Context) bool
	unminimise  func(ctx context.Context)
	openBrowser func(ctx context.Context, url string)
	emit        func(ctx context.Context, eventName string, payload any)
}

func wailsRuntime() runtimeOps {
	return runtimeOps{
		execJS: func(ctx context.Context, js string) {
			if ctx != nil {
				runtime.WindowExecJS(ctx, js)
			}
		},
		show: func(ctx context.Context) {
			if ctx != nil {
				runtime.WindowShow(ctx)
			}
		},
		isMinimised: func(ctx context.Context) bool {
			if ctx == nil {
				return false
			}
			return runtime.WindowIsMinimised(ctx)
		},
		unminimise: func(ctx context.Context) {
			if ctx != nil {
				runtime.WindowUnminimise(ctx)
			}
		},
		openBrowser: func(ctx context.Context, url string) {
			if ctx != nil {
				runtime.BrowserOpenURL(ctx, url)
			}
		},
		emit: func(ctx context.Context, eventName string, payload any) {
			if ctx != nil {
				runtime.EventsEmit(ctx, eventName, payload)
			}
		},
	}
}
