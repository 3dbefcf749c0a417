// Copyright 2026 The QueryDesk Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/querydesk/querydesk/internal/classify"
)

// RuleWatcher hot-reloads a rule file. On every change it recompiles the
// file and hands the new rule set to the callback; a file that fails to
// parse or compile is logged and the previous rules stay active.
type RuleWatcher struct {
	path    string
	onSwap  func(*classify.RuleSet)
	watcher *fsnotify.Watcher
	stop    chan struct{}
}

// NewRuleWatcher builds a watcher for the given rule file.
func NewRuleWatcher(path string, onSwap func(*classify.RuleSet)) (*RuleWatcher, error) {
	if path == "" {
		return nil, fmt.Errorf("config: rule watcher needs a path")
	}
	if onSwap == nil {
		return nil, fmt.Errorf("config: rule watcher needs a swap callback")
	}
	return &RuleWatcher{path: path, onSwap: onSwap, stop: make(chan struct{})}, nil
}

// Start begins watching. The parent directory is watched rather than the
// file itself so atomic rename-style saves are caught.
func (w *RuleWatcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return err
	}
	w.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(w.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				// Editors often fire a burst of events per save.
				time.Sleep(100 * time.Millisecond)
				rules, err := LoadRules(w.path)
				if err != nil {
					log.WithError(err).Error("rule reload failed, keeping previous rules")
					continue
				}
				log.WithField("version", rules.Version()).Info("rule file changed, rules reloaded")
				w.onSwap(rules)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Error("rule watcher error")
			case <-w.stop:
				return
			}
		}
	}()

	return nil
}

// Stop shuts the watcher down. Safe to call more than once.
func (w *RuleWatcher) Stop() {
	if w.watcher != nil {
		select {
		case <-w.stop:
		default:
			close(w.stop)
		}
		w.watcher.Close()
		w.watcher = nil
	}
}
