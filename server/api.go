package server

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sambeau/jsonatafmt/pkg/jsonata/ast"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/errors"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/format"
	"github.com/sambeau/jsonatafmt/pkg/jsonata/jsonata"
)

// formatRequest is the body of POST /format and POST /serialize.
type formatRequest struct {
	Source  string          `json:"source"`
	AST     json.RawMessage `json:"ast"`
	Options *requestOptions `json:"options"`
}

// requestOptions override the configured layout for one request.
type requestOptions struct {
	PrintWidth *int  `json:"printWidth"`
	TabWidth   *int  `json:"tabWidth"`
	UseTabs    *bool `json:"useTabs"`
}

type formatResponse struct {
	Formatted string `json:"formatted"`
}

type errorResponse struct {
	Error map[string]any `json:"error"`
}

func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	req, opts, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	out, err := s.formatter.FormatSource(req.Source, jsonata.WithOptions(opts))
	if err != nil {
		s.writeFormatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, formatResponse{Formatted: out})
}

func (s *Server) handleSerialize(w http.ResponseWriter, r *http.Request) {
	req, opts, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	if len(bytes.TrimSpace(req.AST)) == 0 {
		writeError(w, http.StatusBadRequest, "missing ast")
		return
	}
	tree, err := ast.Decode(req.AST)
	if err != nil {
		s.writeFormatError(w, err)
		return
	}
	out, err := s.formatter.FormatTree(tree, jsonata.WithOptions(opts))
	if err != nil {
		s.writeFormatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, formatResponse{Formatted: out})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "ok")
}

// decodeRequest reads the JSON body and merges its options over the
// configured defaults. It writes the error response itself.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (*formatRequest, format.Options, bool) {
	body, err := readBody(w, r, s.maxBody)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return nil, format.Options{}, false
	}

	var req formatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return nil, format.Options{}, false
	}

	opts := s.config.Format.Options()
	if o := req.Options; o != nil {
		if o.PrintWidth != nil {
			if *o.PrintWidth < 1 {
				writeError(w, http.StatusBadRequest, "printWidth must be positive")
				return nil, format.Options{}, false
			}
			opts.PrintWidth = *o.PrintWidth
		}
		if o.TabWidth != nil {
			if *o.TabWidth < 1 {
				writeError(w, http.StatusBadRequest, "tabWidth must be positive")
				return nil, format.Options{}, false
			}
			opts.TabWidth = *o.TabWidth
		}
		if o.UseTabs != nil {
			opts.UseTabs = *o.UseTabs
		}
	}
	return &req, opts, true
}

// writeFormatError reports a syntax error with its diagnostic fields, and
// any other failure to format as a bad request.
func (s *Server) writeFormatError(w http.ResponseWriter, err error) {
	var se *errors.SyntaxError
	if stderrors.As(err, &se) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: se.Fields()})
		return
	}
	var unk *ast.UnknownNodeError
	if stderrors.As(err, &unk) || stderrors.Is(err, format.ErrUnknownNode) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: map[string]any{
			"message": err.Error(),
			"code":    "unknown-node",
		}})
		return
	}
	s.logger.Warn("request failed", "error", err)
	writeError(w, http.StatusBadRequest, err.Error())
}

func readBody(w http.ResponseWriter, r *http.Request, maxBody int64) ([]byte, error) {
	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = http.MaxBytesReader(w, r.Body, maxBody)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, fmt.Errorf("request body larger than %d bytes", tooLarge.Limit)
		}
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	return body, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
	w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: map[string]any{"message": message}})
}
