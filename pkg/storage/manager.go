package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ArtifactExt is the extension of export documents
const ArtifactExt = ".html"

// Manager writes export artifacts into one output directory
type Manager struct {
	outputDir string
	existing  map[string]bool
	mu        sync.RWMutex
}

// NewManager creates a new storage manager
func NewManager(outputDir string) (*Manager, error) {
	// Create output directory if it doesn't exist
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manager := &Manager{
		outputDir: outputDir,
		existing:  make(map[string]bool),
	}

	if err := manager.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}

	return manager, nil
}

// scanExistingFiles records the artifacts already present in the output directory
func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ArtifactExt {
			m.existing[entry.Name()] = true
		}
	}

	return nil
}

// exists reports whether an artifact named name is already in the output
// directory. It must be called with m.mu held.
func (m *Manager) exists(name string) bool {
	if m.existing[name] {
		return true
	}
	if _, err := os.Stat(filepath.Join(m.outputDir, name)); err == nil {
		m.existing[name] = true
		return true
	}
	return false
}

// SaveArtifact writes r under name and returns the final path. An existing
// file is never overwritten: a numeric suffix is added instead, the way
// browsers rename repeated downloads.
func (m *Manager) SaveArtifact(name string, r io.Reader) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	final := m.availableName(name)
	filename := filepath.Join(m.outputDir, final)

	// Create temporary file first
	tempFile := filename + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to close file: %w", closeErr)
	}

	// Atomic rename
	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.existing[final] = true
	return filename, nil
}

// availableName must be called with m.mu held
func (m *Manager) availableName(name string) string {
	if !m.exists(name) {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, i, ext)
		if !m.exists(candidate) {
			return candidate
		}
	}
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// GetArtifactCount returns the number of artifacts known in the output directory
func (m *Manager) GetArtifactCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.existing)
}
