package runtime

import (
	"os"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"
)

func newProcessManager() *processManager {
	return &processManager{procs: make(map[int]*os.Process)}
}

/**
 * processManager tracks every live child process across workers, solely so
 * the second-interrupt path can terminate them. Workers add and remove
 * concurrently, hence the mutex.
 */
type processManager struct {
	mu sync.Mutex

	procs map[int]*os.Process
}

// manage registers proc and returns the matching release function.
func (pm *processManager) manage(proc *os.Process) func() {
	if proc == nil {
		return func() {}
	}

	pm.mu.Lock()
	pm.procs[proc.Pid] = proc
	pm.mu.Unlock()

	return func() {
		pm.mu.Lock()
		delete(pm.procs, proc.Pid)
		pm.mu.Unlock()
	}
}

/**
 * killAll force-terminates every registered process group. Steps start
 * children in their own process group, so the negative pid reaches the
 * whole group; the plain kill is the fallback when that fails.
 */
func (pm *processManager) killAll() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	for pid, proc := range pm.procs {
		if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
			if err := proc.Kill(); err != nil {
				log.Errorf("failed to kill process %d: %v", pid, err)
			}
		}
	}
}
