// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"os"
	"os/signal"
	"sync"
)

// tmpFiles tracks the temporary files of all files processed in
// parallel.
type tmpFiles struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func newTmpFiles() *tmpFiles {
	return &tmpFiles{paths: make(map[string]struct{})}
}

func (t *tmpFiles) add(path string) {
	t.mu.Lock()
	t.paths[path] = struct{}{}
	t.mu.Unlock()
}

// remove deletes the file and stops tracking it. After a successful
// rename the file doesn't exist anymore and the error is ignored.
func (t *tmpFiles) remove(path string) {
	t.mu.Lock()
	delete(t.paths, path)
	t.mu.Unlock()
	os.Remove(path)
}

func (t *tmpFiles) removeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for path := range t.paths {
		os.Remove(path)
	}
	t.paths = make(map[string]struct{})
}

// signalHandler establishes the signal handler for interrupts and handles
// it in its own go routine. The returned quit channel must be closed to
// terminate the signal handler go routine.
func signalHandler(t *tmpFiles) chan<- struct{} {
	quit := make(chan struct{})
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt)
	go func() {
		select {
		case <-quit:
			signal.Stop(sigch)
			return
		case <-sigch:
			t.removeAll()
			os.Exit(7)
		}
	}()
	return quit
}
