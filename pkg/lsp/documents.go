package lsp

import (
	"strings"
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// DocumentStore is a thread-safe store for document contents keyed by URI.
type DocumentStore struct {
	documents map[string]string // URI -> content.
	mu        sync.RWMutex
}

// NewDocumentStore creates a new empty DocumentStore.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]string),
	}
}

// Set stores document content for the given URI.
func (ds *DocumentStore) Set(uri, content string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.documents[uri] = content
}

// Get retrieves document content by URI.
func (ds *DocumentStore) Get(uri string) (string, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	content, ok := ds.documents[uri]

	return content, ok
}

// Delete removes document content by URI.
func (ds *DocumentStore) Delete(uri string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	delete(ds.documents, uri)
}

// Len returns the number of open documents.
func (ds *DocumentStore) Len() int {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	return len(ds.documents)
}

func splitLines(input string) []string {
	return strings.Split(input, "\n")
}

// documentRange covers the whole text.
func documentRange(text string) protocol.Range {
	lines := splitLines(text)
	last := len(lines) - 1

	return protocol.Range{
		Start: protocol.Position{Line: 0, Character: 0},
		End:   protocol.Position{Line: protocol.UInteger(last), Character: protocol.UInteger(len(lines[last]))},
	}
}

// replaceAll is an edit swapping the whole document for text.
func replaceAll(original, text string) protocol.TextEdit {
	return protocol.TextEdit{Range: documentRange(original), NewText: text}
}

// extractWordAtPosition returns the identifier at the given line/character in the text.
func extractWordAtPosition(text string, line, character int) string {
	lines := splitLines(text)
	if line >= len(lines) {
		return ""
	}

	lineText := lines[line]
	if character > len(lineText) {
		character = len(lineText)
	}

	start := character

	for start > 0 && isWordChar(lineText[start-1]) {
		start--
	}

	end := character

	for end < len(lineText) && isWordChar(lineText[end]) {
		end++
	}

	return lineText[start:end]
}

func isWordChar(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_'
}
