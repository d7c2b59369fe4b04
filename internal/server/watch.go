package server

import (
	"context"

	mailerrors "github.com/conneroisu/mailblocks/internal/errors"
	"github.com/conneroisu/mailblocks/internal/watcher"
)

func (s *Server) startWatcher(ctx context.Context) error {
	w, err := watcher.New(watcher.FromConfig(s.config.Watch, s.decoder(), s.logger), s.handleBatch)
	if err != nil {
		return mailerrors.NewIOError(mailerrors.ErrCodeIO, "failed to create file watcher", err)
	}

	for _, path := range s.config.Watch.Paths {
		if err := w.Add(path); err != nil {
			s.logger.Warn(ctx, err, "Failed to watch path", "path", path)
		}
	}
	w.Start(ctx)

	s.serverMutex.Lock()
	s.watcher = w
	s.serverMutex.Unlock()
	return nil
}

// handleBatch broadcasts one message per changed document.
func (s *Server) handleBatch(ctx context.Context, batch watcher.Batch) {
	for _, doc := range batch {
		s.hub.Broadcast(s.documentMessage(ctx, doc))
	}
}

func (s *Server) documentMessage(ctx context.Context, doc watcher.Document) Message {
	msg := Message{Path: doc.Path}

	switch {
	case doc.Op == watcher.OpRemoved:
		msg.Type = MessageDocumentRemoved
		return msg
	case doc.Err != nil:
		s.logger.Warn(ctx, doc.Err, "Watched file failed to decode", "path", doc.Path)
		msg.Type = MessageDocumentError
		msg.Error = doc.Err.Error()
		return msg
	}

	resp := s.checkDocument(ctx, doc.Tree)
	msg.Type = MessageDocumentUpdated
	msg.Document = resp.Document
	msg.Problems = resp.Problems
	s.logger.Info(ctx, "Document updated", "path", doc.Path, "valid", resp.Valid)
	return msg
}
