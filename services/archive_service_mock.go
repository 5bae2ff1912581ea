package services

import (
	"fmt"
	"sync"
)

// MockArchiveService is an in-memory implementation of ArchiveInterface
// for testing
type MockArchiveService struct {
	documents map[string][]byte
	mu        sync.RWMutex
}

// NewMockArchiveService creates a new mock archive service
func NewMockArchiveService() *MockArchiveService {
	return &MockArchiveService{
		documents: make(map[string][]byte),
	}
}

// SetAsMockForTesting sets this mock as the global archive instance
func (m *MockArchiveService) SetAsMockForTesting() {
	SetArchiveService(m)
}

// Store keeps the document in memory
func (m *MockArchiveService) Store(key string, content []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[key] = content
	return nil
}

// GetPresignedURL returns a fake URL for a stored document
func (m *MockArchiveService) GetPresignedURL(key string) (string, error) {
	if key == "" {
		return "", nil
	}

	m.mu.RLock()
	_, exists := m.documents[key]
	m.mu.RUnlock()

	if !exists {
		return "", fmt.Errorf("document not found in mock archive: %s", key)
	}
	return fmt.Sprintf("https://test-bucket.s3.eu-west-3.amazonaws.com/%s?mock=true", key), nil
}

// Delete removes a document from the mock archive
func (m *MockArchiveService) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.documents, key)
	return nil
}

// DocumentExists checks whether a document was stored (for assertions)
func (m *MockArchiveService) DocumentExists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.documents[key]
	return exists
}

// GetDocument returns a stored document's content (for assertions)
func (m *MockArchiveService) GetDocument(key string) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.documents[key]
}

// Clear removes all documents from the mock archive
func (m *MockArchiveService) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents = make(map[string][]byte)
}
