// Package server exposes the ingestion and retrieval pipelines over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docqa/internal/domain"
	"docqa/internal/drive"
)

// Ingestor is the server-facing subset of the ingestion orchestrator.
type Ingestor interface {
	Ingest(ctx context.Context, text, filename string) (*domain.IngestResult, error)
}

// Retriever is the server-facing subset of the retrieval orchestrator.
type Retriever interface {
	Search(ctx context.Context, queryText string, topK int) ([]domain.SearchResult, error)
	ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error)
}

// DriveSource is the server-facing subset of the Drive connector.
type DriveSource interface {
	List(ctx context.Context, query string, max int) ([]drive.FileInfo, error)
	FetchText(ctx context.Context, fileID string) (name, text, mimeType string, err error)
}

// Server holds the HTTP handlers and their dependencies. The drive source
// is optional; without it the Drive routes are not registered.
type Server struct {
	ingestor  Ingestor
	retriever Retriever
	extractor domain.Extractor
	drive     DriveSource
	log       *zap.Logger
}

// New creates the HTTP server.
func New(ingestor Ingestor, retriever Retriever, extractor domain.Extractor, driveSource DriveSource, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		ingestor:  ingestor,
		retriever: retriever,
		extractor: extractor,
		drive:     driveSource,
		log:       log,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	v1 := r.Group("/api/v1")
	{
		v1.POST("/documents", s.uploadDocument)
		v1.GET("/documents", s.listDocuments)
		v1.POST("/search", s.search)
		if s.drive != nil {
			v1.GET("/drive/files", s.listDriveFiles)
			v1.POST("/drive/ingest", s.ingestDriveFile)
		}
	}
	return r
}

type uploadRequest struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

type searchRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"topK"`
}

type searchResultJSON struct {
	Text          string  `json:"text"`
	Filename      string  `json:"filename"`
	Score         float64 `json:"score"`
	PageNumber    *int    `json:"pageNumber,omitempty"`
	StartPosition *int    `json:"startPosition,omitempty"`
	EndPosition   *int    `json:"endPosition,omitempty"`
}

// uploadDocument accepts either a multipart file upload or a JSON body
// with already-extracted text, and ingests it.
func (s *Server) uploadDocument(c *gin.Context) {
	filename, text, ok := s.readUpload(c)
	if !ok {
		return
	}
	result, err := s.ingestor.Ingest(c.Request.Context(), text, filename)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "document ingested",
		"filename":    result.Filename,
		"chunksCount": result.ChunksCount,
	})
}

func (s *Server) readUpload(c *gin.Context) (filename, text string, ok bool) {
	if strings.HasPrefix(c.GetHeader("Content-Type"), "multipart/") {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			s.writeError(c, errors.Join(domain.ErrInvalidInput, err))
			return "", "", false
		}
		f, err := fileHeader.Open()
		if err != nil {
			s.writeError(c, err)
			return "", "", false
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			s.writeError(c, err)
			return "", "", false
		}
		mimeType := fileHeader.Header.Get("Content-Type")
		if mimeType == "" || mimeType == "application/octet-stream" {
			mimeType = mimeByExtension(fileHeader.Filename)
		}
		text, err := s.extractor.Extract(data, mimeType)
		if err != nil {
			s.writeError(c, err)
			return "", "", false
		}
		return fileHeader.Filename, text, true
	}

	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, errors.Join(domain.ErrInvalidInput, err))
		return "", "", false
	}
	return req.Filename, req.Text, true
}

func (s *Server) listDocuments(c *gin.Context) {
	docs, err := s.retriever.ListDocuments(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(docs))
	for _, d := range docs {
		out = append(out, gin.H{"filename": d.Filename, "totalChunks": d.TotalChunks})
	}
	c.JSON(http.StatusOK, gin.H{"documents": out})
}

func (s *Server) search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, errors.Join(domain.ErrInvalidInput, err))
		return
	}
	results, err := s.retriever.Search(c.Request.Context(), req.Query, req.TopK)
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]searchResultJSON, 0, len(results))
	for _, r := range results {
		out = append(out, searchResultJSON{
			Text:          r.Text,
			Filename:      r.Filename,
			Score:         r.Score,
			PageNumber:    r.PageNumber,
			StartPosition: r.StartPosition,
			EndPosition:   r.EndPosition,
		})
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

func (s *Server) listDriveFiles(c *gin.Context) {
	files, err := s.drive.List(c.Request.Context(), c.Query("q"), 50)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (s *Server) ingestDriveFile(c *gin.Context) {
	var req struct {
		FileID string `json:"fileId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, errors.Join(domain.ErrInvalidInput, err))
		return
	}
	name, text, _, err := s.drive.FetchText(c.Request.Context(), req.FileID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	result, err := s.ingestor.Ingest(c.Request.Context(), text, name)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "document ingested",
		"filename":    result.Filename,
		"chunksCount": result.ChunksCount,
	})
}

// writeError maps core errors onto HTTP statuses with enough detail for a
// specific user-facing message.
func (s *Server) writeError(c *gin.Context, err error) {
	var partial *domain.PartialBatchError
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": "rate limited, please try again shortly",
		})
	case errors.As(err, &partial):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":     "some records were not stored",
			"batch":     partial.Batch,
			"committed": partial.Committed,
		})
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnsupportedType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrProviderUnavailable), errors.Is(err, domain.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		s.log.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func mimeByExtension(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown":
		return "text/markdown"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	default:
		return "text/plain"
	}
}
