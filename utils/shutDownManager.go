package utils

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

type shutdownTask struct {
	name string
	run  func(context.Context) error
}

// ShutdownManager runs registered cleanup tasks once, on SIGINT/SIGTERM or
// an explicit Shutdown call. Tasks run in reverse registration order so that
// the HTTP server stops before the clients it depends on are closed.
type ShutdownManager struct {
	cancelFunc context.CancelFunc
	timeout    time.Duration

	mu    sync.Mutex
	tasks []shutdownTask

	once sync.Once
	done chan struct{}
}

func NewShutdownManager(ctx context.Context, timeout time.Duration) (context.Context, *ShutdownManager) {
	ctx, cancel := context.WithCancel(ctx)
	manager := &ShutdownManager{
		cancelFunc: cancel,
		timeout:    timeout,
		done:       make(chan struct{}),
	}
	return ctx, manager
}

func (sm *ShutdownManager) Register(name string, task func(context.Context) error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.tasks = append(sm.tasks, shutdownTask{name: name, run: task})
}

func (sm *ShutdownManager) StartListening() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Printf("[SHUTDOWN] Received signal: %v", sig)
			sm.Shutdown()
		case <-sm.done:
		}
		signal.Stop(sigChan)
	}()
}

// Shutdown cancels the root context and runs every task. Only the first
// call does any work; later calls wait for it to finish.
func (sm *ShutdownManager) Shutdown() {
	sm.once.Do(func() {
		defer close(sm.done)
		sm.cancelFunc()

		ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
		defer cancel()

		sm.mu.Lock()
		tasks := make([]shutdownTask, len(sm.tasks))
		copy(tasks, sm.tasks)
		sm.mu.Unlock()

		for i := len(tasks) - 1; i >= 0; i-- {
			log.Printf("[SHUTDOWN] %s...", tasks[i].name)
			if err := tasks[i].run(ctx); err != nil {
				log.Printf("[SHUTDOWN] Error during %s: %v", tasks[i].name, err)
			}
		}

		log.Println("[SHUTDOWN] Graceful shutdown complete")
	})
	<-sm.done
}

// Done is closed once every shutdown task has run.
func (sm *ShutdownManager) Done() <-chan struct{} {
	return sm.done
}
