package services

import (
	"log"
	"path/filepath"
	"sync"

	"slacksum/internal/config"
	"slacksum/internal/models"

	"github.com/fsnotify/fsnotify"
)

// QuickActionsService serves the configurable chat shortcut buttons and
// hot-reloads them when the JSON file changes on disk.
type QuickActionsService struct {
	filePath string
	mu       sync.RWMutex
	actions  []models.QuickAction
	watcher  *fsnotify.Watcher
}

// NewQuickActionsService loads quick actions from the given file. A missing
// or invalid file falls back to the built-in defaults.
func NewQuickActionsService(filePath string) *QuickActionsService {
	s := &QuickActionsService{filePath: filePath}
	s.reload()
	return s
}

// Actions returns the current quick actions
func (s *QuickActionsService) Actions() []models.QuickAction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.QuickAction{}, s.actions...)
}

// Watch starts watching the quick actions file for changes. Editors often
// replace files on save, so the watch is on the parent directory.
func (s *QuickActionsService) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	dir := filepath.Dir(s.filePath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(s.filePath) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					log.Printf("📦 Quick actions file changed, reloading...")
					s.reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("⚠️  Quick actions watcher error: %v", err)
			}
		}
	}()

	log.Printf("✅ Watching quick actions file: %s", s.filePath)
	return nil
}

// Close stops the file watcher
func (s *QuickActionsService) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *QuickActionsService) reload() {
	actions, err := config.LoadQuickActions(s.filePath)
	if err != nil {
		log.Printf("⚠️  Using default quick actions: %v", err)
		actions = config.DefaultQuickActions()
	}

	s.mu.Lock()
	s.actions = actions
	s.mu.Unlock()

	log.Printf("✅ Loaded %d quick actions", len(actions))
}
