package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/poiesic/quickrag"
	"github.com/poiesic/quickrag/answer"
	"github.com/poiesic/quickrag/core"
	"github.com/poiesic/quickrag/pipeline"
)

// multipartMemory is how much of a multipart body is held in memory before spilling to disk.
const multipartMemory = 32 << 20

type healthResponse struct {
	Success bool   `json:"success"`
	App     string `json:"app"`
	Message string `json:"message"`
}

type uploadResponse struct {
	PipelineID       string `json:"pipeline_id"`
	PipelineFile     string `json:"pipeline_file"`
	ArchiveURL       string `json:"archive_url,omitempty"`
	DocumentsWritten int    `json:"documents_written"`
	DocumentsSkipped int    `json:"documents_skipped"`
	Chunks           int    `json:"chunks"`
	Content          string `json:"content"`
}

type sourceResponse struct {
	ID      string            `json:"id"`
	Content string            `json:"content"`
	Score   float32           `json:"score"`
	Meta    map[string]string `json:"meta,omitempty"`
}

type answerResponse struct {
	Answer  string           `json:"answer"`
	Sources []sourceResponse `json:"sources"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Success: true,
		App:     "Quick RAG",
		Message: "Server is up and running",
	})
}

func (s *Server) uploadAndGenerateEmbeddings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+formOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.writeError(w, r, formError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: file is required", core.ErrMalformedRequest))
		return
	}
	defer file.Close()

	if header.Size > s.maxUpload {
		s.writeError(w, r, &http.MaxBytesError{Limit: s.maxUpload})
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: read file: %w", core.ErrMalformedRequest, err))
		return
	}

	pipelineID := r.FormValue("credential_id")
	if pipelineID == "" {
		pipelineID = uuid.NewString()
	}

	req, err := core.NewIngestionRequest(
		r.FormValue("provider_name"),
		r.FormValue("embedding_model_name"),
		r.FormValue("embedding_args"),
		pipelineID,
	)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.service.Ingest(r.Context(), req, pipeline.Source{
		Name:        filepath.Base(header.Filename),
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("upload ingested",
		"request_id", middleware.GetReqID(r.Context()),
		"pipeline_id", res.PipelineID,
		"written", res.Write.Written,
		"skipped", res.Write.Skipped)
	writeJSON(w, http.StatusOK, uploadResponse{
		PipelineID:       res.PipelineID,
		PipelineFile:     filepath.Base(res.PipelineFile),
		ArchiveURL:       res.ArchiveURL,
		DocumentsWritten: res.Write.Written,
		DocumentsSkipped: res.Write.Skipped,
		Chunks:           res.Chunks,
		Content:          res.Content,
	})
}

func (s *Server) getAnswer(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, formOverhead)
	if err := parseForm(r); err != nil {
		s.writeError(w, r, formError(err))
		return
	}

	req, err := parseAskRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	reply, err := s.service.Ask(r.Context(), *req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := answerResponse{Answer: reply.Text, Sources: make([]sourceResponse, 0, len(reply.Sources))}
	for _, doc := range reply.Sources {
		resp.Sources = append(resp.Sources, sourceResponse{ID: doc.ID, Content: doc.Content, Score: doc.Score, Meta: doc.Meta})
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseAskRequest reads the answer form. The embedding provider defaults to
// the LLM provider.
func parseAskRequest(r *http.Request) (*quickrag.AskRequest, error) {
	llmProvider, llmArgs, err := core.ParseProviderArgs(
		r.FormValue("provider_name"), r.FormValue("llm_name"), r.FormValue("llm_args"))
	if err != nil {
		return nil, err
	}

	embeddingProviderName := r.FormValue("embedding_provider_name")
	if embeddingProviderName == "" {
		embeddingProviderName = r.FormValue("provider_name")
	}
	embeddingProvider, embeddingArgs, err := core.ParseProviderArgs(
		embeddingProviderName, r.FormValue("embedding_model_name"), r.FormValue("embedding_args"))
	if err != nil {
		return nil, err
	}

	q := answer.Question{
		Text:        r.FormValue("question"),
		TopK:        answer.DefaultTopK,
		Temperature: answer.DefaultTemperature,
	}
	if raw := strings.TrimSpace(r.FormValue("top_k")); raw != "" {
		if q.TopK, err = strconv.Atoi(raw); err != nil {
			return nil, fmt.Errorf("%w: top_k %q is not an integer", core.ErrMalformedRequest, raw)
		}
	}
	if raw := strings.TrimSpace(r.FormValue("temperature")); raw != "" {
		if q.Temperature, err = strconv.ParseFloat(raw, 64); err != nil {
			return nil, fmt.Errorf("%w: temperature %q is not a number", core.ErrMalformedRequest, raw)
		}
	}

	return &quickrag.AskRequest{
		Question:          q,
		LLMProvider:       llmProvider,
		LLMArgs:           llmArgs,
		EmbeddingProvider: embeddingProvider,
		EmbeddingArgs:     embeddingArgs,
	}, nil
}

// parseForm accepts url-encoded and multipart bodies.
func parseForm(r *http.Request) error {
	err := r.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

func formError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return fmt.Errorf("%w: %w", core.ErrMalformedRequest, err)
}
