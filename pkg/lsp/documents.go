package lsp

import (
	"strings"
	"sync"

	"github.com/walteh/gotmpls-hybrid/pkg/hybrid"
	"github.com/walteh/gotmpls-hybrid/pkg/lsp/protocol"
	"github.com/walteh/gotmpls-hybrid/pkg/position"
	"gitlab.com/tozd/go/errors"
)

// normalizeURI strips the file scheme so the same file opened under slightly
// different URIs maps to one document.
func normalizeURI(uri string) string {
	uri = strings.TrimPrefix(uri, "file://")
	return strings.TrimPrefix(uri, "file:")
}

// Document represents a text document with its metadata
type Document struct {
	URI        string
	LanguageID string
	Version    int32
	Content    string
}

func (d *Document) Hybrid() hybrid.Document {
	return hybrid.Document{URI: d.URI, Version: d.Version, Text: d.Content}
}

// ApplyChanges returns a copy of d at version with changes applied in order.
// Range positions are read in enc.
func (d *Document) ApplyChanges(enc protocol.PositionEncodingKind, version int32, changes []protocol.TextDocumentContentChangeEvent) (*Document, error) {
	content := d.Content
	for i, change := range changes {
		if change.Range == nil {
			content = change.Text
			continue
		}

		idx := position.NewLineIndex(content)
		start := offsetOf(enc, idx, change.Range.Start)
		end := offsetOf(enc, idx, change.Range.End)
		if end < start {
			return nil, errors.Errorf("change %d: range end %v before start %v", i, change.Range.End, change.Range.Start)
		}
		content = content[:start] + change.Text + content[end:]
	}

	return &Document{
		URI:        d.URI,
		LanguageID: d.LanguageID,
		Version:    version,
		Content:    content,
	}, nil
}

// DocumentManager handles document operations
type DocumentManager struct {
	store *sync.Map // map[string]*Document
}

func NewDocumentManager() *DocumentManager {
	return &DocumentManager{
		store: &sync.Map{},
	}
}

func (m *DocumentManager) Get(uri protocol.DocumentURI) (*Document, bool) {
	content, ok := m.store.Load(normalizeURI(string(uri)))
	if !ok {
		return nil, false
	}
	doc, ok := content.(*Document)
	return doc, ok
}

func (m *DocumentManager) Store(doc *Document) {
	m.store.Store(doc.URI, doc)
}

func (m *DocumentManager) Delete(uri protocol.DocumentURI) {
	m.store.Delete(normalizeURI(string(uri)))
}

func (m *DocumentManager) Range(fn func(doc *Document)) {
	m.store.Range(func(_, v any) bool {
		if doc, ok := v.(*Document); ok {
			fn(doc)
		}
		return true
	})
}

func (m *DocumentManager) Len() int {
	n := 0
	m.store.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
