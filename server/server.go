// Package server provides an HTTP browser over the generated artifacts and
// the Merkle DAG index of their examples.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/papercomputeco/recipetune/pkg/dataset"
	"github.com/papercomputeco/recipetune/pkg/llm"
	"github.com/papercomputeco/recipetune/pkg/merkle"
)

// Server serves read-only views of a data directory and its example index.
type Server struct {
	config Config
	storer merkle.Storer
	layout dataset.Layout
	logger *zap.Logger
	app    *fiber.App
}

// New creates a Server, opening the index at config.DBPath when set.
func New(config Config, logger *zap.Logger) (*Server, error) {
	var storer merkle.Storer
	if config.DBPath != "" {
		s, err := merkle.NewSQLiteStorer(config.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open example index: %w", err)
		}
		storer = s
		logger.Info("using SQLite index", zap.String("path", config.DBPath))
	} else {
		storer = merkle.NewMemoryStorer()
		logger.Info("no index configured, DAG endpoints will be empty")
	}

	return newServer(config, storer, logger), nil
}

func newServer(config Config, storer merkle.Storer, logger *zap.Logger) *Server {
	s := &Server{
		config: config,
		storer: storer,
		layout: dataset.Layout{Dir: config.ArtifactsDir},
		logger: logger,
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
		}),
	}

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	// DAG inspection endpoints
	s.app.Get("/dag/stats", s.handleDAGStats)
	s.app.Get("/dag/node/:hash", s.handleGetNode)
	s.app.Get("/dag/history", s.handleListHistories)
	s.app.Get("/dag/history/:hash", s.handleGetHistory)
	s.app.Post("/dag/nodes", s.handlePutNodes)

	// Artifact endpoints
	s.app.Get("/artifacts", s.handleArtifacts)
	s.app.Get("/artifacts/:variant", s.handleStreamArtifact)

	return s
}

// Run starts the server on the configured listening address.
func (s *Server) Run() error {
	s.logger.Info("starting browser server",
		zap.String("listen", s.config.ListenAddr),
		zap.String("artifacts", s.config.ArtifactsDir),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener serves on an existing listener.
func (s *Server) RunWithListener(ln net.Listener) error {
	s.logger.Info("starting browser server", zap.String("listen", ln.Addr().String()))
	return s.app.Listener(ln)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// Close releases the index.
func (s *Server) Close() error {
	return s.storer.Close()
}

func (s *Server) handleDAGStats(c *fiber.Ctx) error {
	stats, err := merkle.Summarize(c.Context(), s.storer)
	if err != nil {
		s.logger.Error("failed to summarize DAG", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to summarize DAG"})
	}
	return c.JSON(stats)
}

func (s *Server) handleGetNode(c *fiber.Ctx) error {
	hash := c.Params("hash")
	if hash == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "hash parameter required"})
	}

	node, err := s.storer.Get(c.Context(), hash)
	if err != nil {
		return s.lookupError(c, err)
	}
	return c.JSON(node)
}

// PushResponse reports the outcome of POST /dag/nodes.
type PushResponse struct {
	New       int `json:"new"`
	Duplicate int `json:"duplicate"`
	Errors    int `json:"errors"`
}

// handlePutNodes stores pushed nodes. Nodes whose hash does not match their
// content are counted as errors and skipped.
func (s *Server) handlePutNodes(c *fiber.Ctx) error {
	var nodes []*merkle.Node
	if err := c.BodyParser(&nodes); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid node list"})
	}

	var resp PushResponse
	for _, node := range nodes {
		if node == nil || !node.Verify() {
			resp.Errors++
			continue
		}
		isNew, err := s.storer.Put(c.Context(), node)
		if err != nil {
			s.logger.Error("failed to store pushed node", zap.String("hash", node.Hash), zap.Error(err))
			resp.Errors++
			continue
		}
		if isNew {
			resp.New++
		} else {
			resp.Duplicate++
		}
	}

	s.logger.Debug("received nodes",
		zap.Int("new", resp.New),
		zap.Int("duplicate", resp.Duplicate),
		zap.Int("errors", resp.Errors),
	)
	return c.JSON(resp)
}

// HistoryResponse is one example reconstructed from the DAG.
type HistoryResponse struct {
	// Messages in chronological order (oldest first, up to and including the requested node)
	Messages []HistoryMessage `json:"messages"`
	HeadHash string           `json:"head_hash"`
	Depth    int              `json:"depth"`
}

// HistoryMessage is a message of a reconstructed example.
type HistoryMessage struct {
	Hash        string  `json:"hash"`
	ParentHash  *string `json:"parent_hash,omitempty"`
	Role        string  `json:"role"`
	Content     string  `json:"content"`
	Variant     string  `json:"variant,omitempty"`
	Template    string  `json:"template,omitempty"`
	EvidenceIDs []int64 `json:"evidence_ids,omitempty"`
}

// handleListHistories returns every example (one per leaf node).
func (s *Server) handleListHistories(c *fiber.Ctx) error {
	ctx := c.Context()

	leaves, err := s.storer.Leaves(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get leaves"})
	}

	histories := make([]HistoryResponse, 0, len(leaves))
	for _, leaf := range leaves {
		history, err := s.buildHistory(ctx, leaf.Hash)
		if err != nil {
			s.logger.Warn("failed to build history for leaf", zap.String("hash", leaf.Hash), zap.Error(err))
			continue
		}
		histories = append(histories, *history)
	}

	return c.JSON(map[string]any{
		"count":     len(histories),
		"histories": histories,
	})
}

func (s *Server) handleGetHistory(c *fiber.Ctx) error {
	hash := c.Params("hash")
	if hash == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "hash parameter required"})
	}

	history, err := s.buildHistory(c.Context(), hash)
	if err != nil {
		return s.lookupError(c, err)
	}
	return c.JSON(history)
}

func (s *Server) buildHistory(ctx context.Context, hash string) (*HistoryResponse, error) {
	path, err := s.storer.Descendants(ctx, hash)
	if err != nil {
		return nil, err
	}

	messages := make([]HistoryMessage, len(path))
	for i, node := range path {
		messages[i] = HistoryMessage{
			Hash:        node.Hash,
			ParentHash:  node.ParentHash,
			Role:        node.Bucket.Role,
			Content:     node.Bucket.Content,
			Variant:     node.Bucket.Variant,
			Template:    node.Bucket.Template,
			EvidenceIDs: node.Bucket.EvidenceIDs,
		}
	}

	return &HistoryResponse{
		Messages: messages,
		HeadHash: hash,
		Depth:    len(messages),
	}, nil
}

func (s *Server) lookupError(c *fiber.Ctx, err error) error {
	if merkle.IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "node not found"})
	}
	s.logger.Error("failed to read DAG", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to read DAG"})
}

// ArtifactFile is an artifact present on disk.
type ArtifactFile struct {
	Variant dataset.Variant `json:"variant"`
	Path    string          `json:"path"`
	Records int             `json:"records"`
}

// ArtifactsResponse lists the data directory.
type ArtifactsResponse struct {
	Provenance dataset.Provenance `json:"provenance"`
	Manifest   *dataset.Manifest  `json:"manifest,omitempty"`
	Files      []ArtifactFile     `json:"files"`
}

func (s *Server) handleArtifacts(c *fiber.Ctx) error {
	resp := ArtifactsResponse{Provenance: dataset.ProvenanceTracked, Files: []ArtifactFile{}}

	m, err := dataset.ReadManifest(s.layout)
	switch {
	case err == nil:
		resp.Manifest = m
		resp.Provenance = dataset.ProvenanceGenerated
	case !errors.Is(err, os.ErrNotExist):
		s.logger.Error("failed to read manifest", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to read manifest"})
	}

	for _, v := range dataset.Variants {
		path := s.layout.Path(v)
		n, err := dataset.CountRecords(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			s.logger.Error("failed to count artifact", zap.String("path", path), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to read artifacts"})
		}
		resp.Files = append(resp.Files, ArtifactFile{Variant: v, Path: path, Records: n})
	}

	return c.JSON(resp)
}

// handleStreamArtifact streams an artifact as NDJSON. ?limit=N stops after N
// records and must be positive; without it the whole artifact is streamed.
func (s *Server) handleStreamArtifact(c *fiber.Ctx) error {
	v, err := dataset.ParseVariant(c.Params("variant"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "limit must be a positive integer"})
		}
	}

	path := s.layout.Path(v)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "artifact not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to open artifact"})
	}

	c.Set("Content-Type", "application/x-ndjson")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer f.Close()

		sent := 0
		errStop := errors.New("limit reached")
		err := dataset.ScanJSONL(f, func(_ int, raw []byte) error {
			if limit > 0 && sent >= limit {
				return errStop
			}
			w.Write(raw)
			w.WriteByte('\n')
			sent++
			return w.Flush()
		})
		if err != nil && !errors.Is(err, errStop) {
			s.logger.Warn("artifact stream ended early", zap.String("path", path), zap.Error(err))
		}
	}))

	return nil
}
