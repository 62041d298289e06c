// Package goroutine — запуск фоновых горутин с перехватом panic.
package goroutine

import (
	"fmt"
	"runtime/debug"

	"github.com/ignatzorin/gigmarket-backend/internal/logger"
)

// SafeGo запускает fn в горутине и перехватывает panic. Рассылка
// уведомлений и насосы веб-сокетов работают вне цепочки запроса:
// паника в них не должна ронять процесс.
func SafeGo(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				report(r)
			}
		}()
		fn()
	}()
}

func report(r interface{}) {
	if logger.Log != nil {
		logger.Log.Errorf("panic в горутине: %v\n%s", r, debug.Stack())
		return
	}
	fmt.Printf("[ERROR] panic в горутине: %v\n%s\n", r, debug.Stack())
}
