package core

import (
	"context"
	"fmt"
	"qcledger/pkg/domain"
)

// Settings returns the project settings and templates.
func (s *Service) Settings() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// UpdateSettings replaces the settings. A positive history depth resizes
// the undo stack.
func (s *Service) UpdateSettings(ctx context.Context, settings domain.Settings) error {
	if settings.Project.HistoryDepth < 0 {
		return fmt.Errorf("history depth must not be negative, got %d", settings.Project.HistoryDepth)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	s.applyHistoryDepth()
	s.persistSettings(ctx)
	return nil
}

func (s *Service) applyImportedSettings(ctx context.Context, data domain.ImportData) {
	if data.ProjectSettings != nil {
		s.settings.Project = *data.ProjectSettings
	}
	if data.Template != "" {
		s.settings.Template = data.Template
	}
	if data.RegistryTemplate != "" {
		s.settings.RegistryTemplate = data.RegistryTemplate
	}
	s.applyHistoryDepth()
	s.persistSettings(ctx)
}

func (s *Service) applyHistoryDepth() {
	depth := s.depth
	if s.settings.Project.HistoryDepth > 0 {
		depth = s.settings.Project.HistoryDepth
	}
	s.history.setDepth(depth)
}

// HistoryDepth returns the effective undo depth.
func (s *Service) HistoryDepth() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.depth
}
