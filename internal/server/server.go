package server

import (
	"context"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vkornev/logbay/internal/hub"
	"github.com/vkornev/logbay/internal/model"
	"github.com/vkornev/logbay/internal/output"
	"github.com/vkornev/logbay/internal/pipeline"
	"github.com/vkornev/logbay/internal/store"
)

const defaultPageLimit = 100

// Server wires the HTTP and WebSocket surface over the core components.
type Server struct {
	engine   *gin.Engine
	store    *store.Store
	hub      *hub.Hub
	pipeline *pipeline.Pipeline
	port     string
	maxBytes int64
}

// New creates the API server.
func New(s *store.Store, h *hub.Hub, p *pipeline.Pipeline, port string, maxBytes int64) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	srv := &Server{
		engine:   engine,
		store:    s,
		hub:      h,
		pipeline: p,
		port:     port,
		maxBytes: maxBytes,
	}

	srv.setupRoutes()
	return srv
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.handleHealth)

	api := s.engine.Group("/api")
	{
		api.POST("/files", s.handleUpload)
		api.GET("/files", s.handleListFiles)
		api.GET("/files/:id", s.handleGetFile)
		api.GET("/files/:id/logs", s.handleReadLogs)
		api.GET("/files/:id/stats", s.handleStats)
		api.GET("/files/:id/export", s.handleExport)
		api.DELETE("/files/:id/logs", s.handleClear)
		api.DELETE("/files/:id", s.handleRemove)
		api.GET("/settings/filters", s.handleGetFilters)
		api.PUT("/settings/filters", s.handleSetFilters)
	}

	s.engine.GET("/ws", s.handleWebSocket)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"files":          len(s.store.Files()),
		"records":        s.store.TotalRecords(),
		"subscribers":    s.hub.Subscribers(),
		"dropped_pushes": s.hub.Dropped(),
	})
}

// handleUpload accepts a multipart file, registers it as processing, and
// runs ingestion to completion before answering. A decode or store fault
// leaves the file non-active and is reported as an upload failure.
func (s *Server) handleUpload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	if s.maxBytes > 0 && fh.Size > s.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	src, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot open upload"})
		return
	}
	defer src.Close()

	raw, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read upload"})
		return
	}

	f := s.store.CreateFile(fh.Filename, fh.Size)
	res, err := s.pipeline.Ingest(f.ID, raw)
	if err != nil {
		log.Printf("upload %s (%s) failed: %v", f.FileName, f.ID, err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "ingestion failed", "fileId": f.ID})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"fileId":         f.ID,
		"fileName":       f.FileName,
		"linesProcessed": res.RecordsProcessed,
		"errors":         res.LineErrors,
	})
}

func (s *Server) handleListFiles(c *gin.Context) {
	files := s.store.Files()
	c.JSON(http.StatusOK, gin.H{"files": files, "total": len(files)})
}

func (s *Server) handleGetFile(c *gin.Context) {
	f, ok := s.store.File(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	c.JSON(http.StatusOK, f)
}

func (s *Server) handleReadLogs(c *gin.Context) {
	fileID := c.Param("id")
	limit := intQuery(c, "limit", defaultPageLimit)
	offset := intQuery(c, "offset", 0)

	logs := s.store.Read(fileID, limit, offset)
	if logs == nil {
		logs = []model.LogRecord{}
	}
	c.JSON(http.StatusOK, gin.H{
		"logs":   logs,
		"total":  s.store.Count(fileID),
		"limit":  limit,
		"offset": offset,
	})
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Statistics(c.Param("id")))
}

// handleExport streams the file's records as plain text, filtered through
// the requesting user's settings. Export reads the full sequence.
func (s *Server) handleExport(c *gin.Context) {
	fileID := c.Param("id")
	f, ok := s.store.File(fileID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}

	filter := s.store.FilterSettings(userKey(c))
	records := s.store.Read(fileID, -1, 0)

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+f.FileName+`.export.txt"`)
	c.Status(http.StatusOK)

	r := output.NewExportRenderer(c.Writer, filter)
	for _, rec := range records {
		if err := r.Render(rec); err != nil {
			log.Printf("export %s: write failed: %v", fileID, err)
			return
		}
	}
}

func (s *Server) handleClear(c *gin.Context) {
	fileID := c.Param("id")
	if _, ok := s.store.File(fileID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	s.store.Clear(fileID)
	c.JSON(http.StatusOK, gin.H{"message": "logs cleared"})
}

func (s *Server) handleRemove(c *gin.Context) {
	fileID := c.Param("id")
	if _, ok := s.store.File(fileID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	s.store.Remove(fileID)
	c.JSON(http.StatusOK, gin.H{"message": "file deleted"})
}

func (s *Server) handleGetFilters(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.FilterSettings(userKey(c)))
}

func (s *Server) handleSetFilters(c *gin.Context) {
	var f model.FilterSettings
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.store.SetFilterSettings(userKey(c), f)
	c.JSON(http.StatusOK, f)
}

// Start runs the server until the context is cancelled, then shuts the
// listener down gracefully so in-flight requests and the spool intake can
// finish winding down.
func (s *Server) Start(ctx context.Context) error {
	httpSrv := &http.Server{Addr: ":" + s.port, Handler: s.engine}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// userKey identifies the requesting user for filter settings. There is no
// authentication; the user query parameter namespaces settings.
func userKey(c *gin.Context) string {
	if u := c.Query("user"); u != "" {
		return u
	}
	return "default"
}

func intQuery(c *gin.Context, name string, def int) int {
	v := c.Query(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
