// Package docwatch feeds documents from a watched directory into the
// catalog. It is the reference implementation of driven.DocumentFeed: a
// file appearing or changing under the directory becomes a document upsert
// plus a change event, a file vanishing becomes a delete event. Other
// deployments can replace it with a database diff poller or a message
// stream without touching the indexing side.
package docwatch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/arcadia-bio/litindex/internal/core/domain"
	"github.com/arcadia-bio/litindex/internal/core/ports/driven"
	"github.com/arcadia-bio/litindex/internal/logger"
	"github.com/arcadia-bio/litindex/internal/normalise"
)

// Ensure Watcher implements the interface.
var _ driven.DocumentFeed = (*Watcher)(nil)

// jsonDocument is the on-disk format for .json records.
type jsonDocument struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Abstract  string `json:"abstract"`
	FullText  string `json:"full_text"`
	Withdrawn bool   `json:"withdrawn"`
}

// Watcher watches a directory of document files and keeps the catalog in
// sync. Supported formats: .json (structured record), .txt (plain text,
// first line becomes the title), and .md/.html (markup stripped before
// storage so chunk offsets refer to readable text).
type Watcher struct {
	dir     string
	catalog driven.DocumentCatalog
	fsw     *fsnotify.Watcher
	events  chan driven.DocumentEvent
	done    chan struct{}
}

// New creates a watcher for dir. Existing files are loaded immediately so
// a restart picks up documents written while the engine was down; the
// fsnotify loop then streams subsequent changes until Close.
func New(ctx context.Context, dir string, catalog driven.DocumentCatalog) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	w := &Watcher{
		dir:     dir,
		catalog: catalog,
		fsw:     fsw,
		events:  make(chan driven.DocumentEvent, 64),
		done:    make(chan struct{}),
	}

	if err := w.loadExisting(ctx); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.loop(ctx)
	return w, nil
}

// Events returns the notification channel. Closed on shutdown.
func (w *Watcher) Events() <-chan driven.DocumentEvent {
	return w.events
}

// Close stops the feed.
func (w *Watcher) Close() error {
	select {
	case <-w.done:
		return nil
	default:
	}
	close(w.done)
	return w.fsw.Close()
}

// loadExisting ingests every supported file already in the directory.
func (w *Watcher) loadExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", w.dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !supported(entry.Name()) {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if err := w.ingest(ctx, path); err != nil {
			logger.Warn("Skipping %s: %v", path, err)
			continue
		}
		w.emit(driven.DocumentEvent{DocumentID: documentID(entry.Name())})
	}
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.events)

	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if !supported(name) {
		return
	}
	docID := documentID(name)

	switch {
	case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
		if err := w.ingest(ctx, event.Name); err != nil {
			logger.Warn("Ingesting %s: %v", event.Name, err)
			return
		}
		logger.Debug("Document %s updated from %s", docID, event.Name)
		w.emit(driven.DocumentEvent{DocumentID: docID})

	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		if err := w.catalog.DeleteDocument(ctx, docID); err != nil {
			logger.Warn("Deleting %s: %v", docID, err)
			return
		}
		logger.Debug("Document %s removed", docID)
		w.emit(driven.DocumentEvent{DocumentID: docID, Deleted: true})
	}
}

// ingest reads one file and upserts it into the catalog.
func (w *Watcher) ingest(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	name := filepath.Base(path)
	doc := domain.Document{ID: documentID(name)}

	switch filepath.Ext(name) {
	case ".json":
		var rec jsonDocument
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("parsing record: %w", err)
		}
		if rec.ID != "" {
			doc.ID = rec.ID
		}
		doc.Title = rec.Title
		doc.Abstract = rec.Abstract
		doc.FullText = rec.FullText
		doc.Withdrawn = rec.Withdrawn
	case ".md":
		text := string(data)
		doc.Title = normalise.MarkdownTitle(text, name)
		doc.FullText = normalise.Markdown(text)
	case ".html":
		text := string(data)
		doc.Title = normalise.HTMLTitle(text, name)
		doc.FullText = normalise.HTML(text)
	default:
		text := string(data)
		doc.FullText = text
		if line, _, found := strings.Cut(text, "\n"); found {
			doc.Title = strings.TrimSpace(line)
		} else {
			doc.Title = strings.TrimSpace(text)
		}
	}

	return w.catalog.PutDocument(ctx, &doc)
}

func (w *Watcher) emit(event driven.DocumentEvent) {
	select {
	case w.events <- event:
	case <-w.done:
	}
}

// supported reports whether the file name is a document format the
// watcher understands.
func supported(name string) bool {
	switch filepath.Ext(name) {
	case ".json", ".txt", ".md", ".html":
		return true
	}
	return false
}

// documentID derives the document ID from the file name, extension
// stripped. JSON records may override it with an explicit id field.
func documentID(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
