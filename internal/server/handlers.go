package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/conneroisu/mailblocks/internal/document"
	mailerrors "github.com/conneroisu/mailblocks/internal/errors"
	"github.com/conneroisu/mailblocks/internal/preview"
	"github.com/conneroisu/mailblocks/internal/resolver"
	"github.com/conneroisu/mailblocks/internal/types"
	"github.com/conneroisu/mailblocks/internal/version"
)

// Problem is one validation finding.
type Problem struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	BlockType string `json:"block_type,omitempty"`
	Path      string `json:"path,omitempty"`
	Line      int    `json:"line,omitempty"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error    string    `json:"error"`
	Code     string    `json:"code,omitempty"`
	Problems []Problem `json:"problems,omitempty"`
}

// EncodeResponse is returned by POST /api/encode.
type EncodeResponse struct {
	Markup string `json:"markup"`
}

// DecodeResponse is returned by POST /api/decode.
type DecodeResponse struct {
	Document  *types.Block `json:"document"`
	Valid     bool         `json:"valid"`
	Problems  []Problem    `json:"problems,omitempty"`
	Sanitized int          `json:"sanitized,omitempty"`
}

// ResolveRequest asks for the effective attributes of a block, either by id
// within Document or by type with explicit Attributes.
type ResolveRequest struct {
	Document   *types.Block     `json:"document,omitempty"`
	ID         string           `json:"id,omitempty"`
	Type       string           `json:"type,omitempty"`
	Attributes types.Attributes `json:"attributes"`
}

// ResolveResponse is returned by POST /api/resolve.
type ResolveResponse struct {
	Type       string           `json:"type"`
	Attributes types.Attributes `json:"attributes"`
}

// PreviewResponse is returned by POST /api/preview.
type PreviewResponse struct {
	PreviewText string         `json:"preview_text"`
	PlainText   string         `json:"plain_text"`
	Outline     string         `json:"outline"`
	Links       []preview.Link `json:"links"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code and a JSON body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.errors.Handle(r.Context(), err)

	status := http.StatusInternalServerError
	var me *mailerrors.MailError
	if errors.As(err, &me) {
		switch me.Type {
		case mailerrors.ErrorTypeParse:
			status = http.StatusBadRequest
		case mailerrors.ErrorTypeValidation:
			status = http.StatusUnprocessableEntity
		}
		if me.Code == mailerrors.ErrCodeBlockNotFound {
			status = http.StatusNotFound
		}
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
	}

	writeJSON(w, status, ErrorResponse{
		Error:    err.Error(),
		Code:     mailerrors.CodeOf(err),
		Problems: problems(err),
	})
}

func problems(err error) []Problem {
	var multi *mailerrors.MultiError
	if !errors.As(err, &multi) {
		return nil
	}
	return toProblems(multi.Errors)
}

func toProblems(errs []*mailerrors.MailError) []Problem {
	out := make([]Problem, 0, len(errs))
	for _, e := range errs {
		p := Problem{Code: e.Code, Message: e.Message, BlockType: e.BlockType, Line: e.Line}
		if path, ok := e.Context["path"].(string); ok {
			p.Path = path
		}
		out = append(out, p)
	}
	return out
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, mailerrors.NewIOError(mailerrors.ErrCodeIO, "failed to read request body", err)
	}
	return data, nil
}

func readBlock(w http.ResponseWriter, r *http.Request) (*types.Block, error) {
	data, err := readBody(w, r)
	if err != nil {
		return nil, err
	}
	block, err := types.ParseBlockJSON(data)
	if err != nil {
		var me *mailerrors.MailError
		if errors.As(err, &me) {
			return nil, err
		}
		return nil, mailerrors.NewParseError(mailerrors.ErrCodeInvalidJSON, "request body is not a block tree", err)
	}
	return block, nil
}

// decodeDocument decodes text and checks the result. Decode failures are
// returned as errors; validation findings are not.
func (s *Server) decodeDocument(ctx context.Context, text string) (*DecodeResponse, error) {
	root, err := s.decoder().DecodeContext(ctx, text)
	if err != nil {
		return nil, err
	}
	return s.checkDocument(ctx, root), nil
}

// checkDocument sanitizes root when configured and validates it.
func (s *Server) checkDocument(ctx context.Context, root *types.Block) *DecodeResponse {
	resp := &DecodeResponse{Document: root, Valid: true}
	if s.sanitizer != nil {
		resp.Document, resp.Sanitized = s.sanitizer.Tree(ctx, root)
	}
	if err := document.Validate(resp.Document, s.registry); err != nil {
		resp.Valid = false
		resp.Problems = toProblems(mailerrors.Flatten(err))
	}
	return resp
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	block, err := readBlock(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out, err := s.encoder().Encode(block)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, EncodeResponse{Markup: out})
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, err := s.decodeDocument(r.Context(), string(data))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req ResolveRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.writeError(w, r, mailerrors.NewParseError(mailerrors.ErrCodeInvalidJSON, "invalid resolve request", err))
		return
	}

	var resolved types.Attributes
	blockType := req.Type
	switch {
	case req.ID != "":
		block := req.Document.Find(req.ID)
		if block == nil {
			s.writeError(w, r, mailerrors.NewValidationError(mailerrors.ErrCodeBlockNotFound,
				fmt.Sprintf("block %q not found", req.ID)).WithContext("id", req.ID))
			return
		}
		blockType = block.Type
		configured, err := s.config.Defaults.For(blockType)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		resolved = resolver.ResolveBlock(s.registry, block, req.Document, configured)

	case req.Type != "":
		configured, err := s.config.Defaults.For(blockType)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		docDefaults := configured.Merge(resolver.DocumentDefaults(req.Document, blockType))
		resolved = resolver.Resolve(s.registry, blockType, req.Attributes, docDefaults)

	default:
		s.writeError(w, r, mailerrors.NewValidationError(mailerrors.ErrCodeInvalidType,
			"resolve needs an id or a type"))
		return
	}

	writeJSON(w, http.StatusOK, ResolveResponse{Type: blockType, Attributes: resolved})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	root, err := s.decoder().DecodeContext(r.Context(), string(data))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	links := preview.Links(s.registry, root)
	if links == nil {
		links = []preview.Link{}
	}
	writeJSON(w, http.StatusOK, PreviewResponse{
		PreviewText: preview.PreviewText(s.registry, root),
		PlainText:   preview.PlainText(s.registry, root),
		Outline:     preview.Outline(s.registry, root),
		Links:       links,
	})
}

func (s *Server) handleComponents(w http.ResponseWriter, r *http.Request) {
	infos := s.registry.Infos()
	if category := r.URL.Query().Get("category"); category != "" {
		filtered := infos[:0]
		for _, info := range infos {
			if info.Category == category {
				filtered = append(filtered, info)
			}
		}
		infos = filtered
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"timestamp":  time.Now().UTC(),
		"uptime":     time.Since(s.startedAt).Round(time.Second).String(),
		"version":    version.GetBuildInfo().Short(),
		"components": s.registry.Count(),
		"clients":    s.hub.ClientCount(),
	})
}
