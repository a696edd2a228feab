package goroutine

import (
	"runtime/debug"

	"github.com/ignatzorin/gallery-backend/internal/logger"
)

// SafeGo запускает горутину с обработкой panic: паника логируется вместе со
// стеком и не роняет процесс.
func SafeGo(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.WithComponent("goroutine").Errorf("panic в горутине: %v\nstack:\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}
