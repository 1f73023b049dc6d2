package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/steven-d-pennington/kanban-context/internal/embedder"
	"github.com/steven-d-pennington/kanban-context/internal/indexer"
	"github.com/steven-d-pennington/kanban-context/internal/memory"
	"github.com/steven-d-pennington/kanban-context/internal/recall"
	"github.com/steven-d-pennington/kanban-context/internal/retriever"
	"github.com/steven-d-pennington/kanban-context/internal/store"
	"github.com/steven-d-pennington/kanban-context/internal/workitems"
)

const (
	// ServerName is the MCP server name
	ServerName = "kanban-context"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDBPath is the default location for the index database
	DefaultDBPath = "~/.kanban-context"

	// EnvDBPath overrides the index database directory.
	EnvDBPath = "KANBAN_CONTEXT_DB_PATH"
	// EnvBoardDBPath points at the kanban application's database. Recall is
	// unavailable without it.
	EnvBoardDBPath = "KANBAN_CONTEXT_BOARD_DB"
)

// Config carries the server's external wiring.
type Config struct {
	DBPath      string
	BoardDBPath string
	Logger      zerolog.Logger
}

// Server wraps the MCP server with application dependencies.
type Server struct {
	mcp       *server.MCPServer
	store     store.Store
	indexer   *indexer.Indexer
	retriever *retriever.Retriever
	memories  *memory.Service
	recaller  *recall.Aggregator
	board     *workitems.Reader
	guard     *indexer.RunGuard
	log       zerolog.Logger
}

// NewServer creates a new MCP server instance. A single embedding client is
// shared by the indexer, retriever, and memory service so their caches are
// one and the same.
func NewServer(cfg Config) (*Server, error) {
	dbPath := cfg.DBPath
	if dbPath == "" || dbPath == DefaultDBPath {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".kanban-context")
	}
	if err := os.MkdirAll(dbPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	dbFile := filepath.Join(dbPath, "index.db")

	st, err := store.New(dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	log := cfg.Logger
	ret := retriever.New(st, emb, log)

	s := &Server{
		mcp:       server.NewMCPServer(ServerName, ServerVersion),
		store:     st,
		indexer:   indexer.New(st, emb, log),
		retriever: ret,
		memories:  memory.New(st, emb, log),
		guard:     indexer.NewRunGuard(),
		log:       log.With().Str("component", "mcp").Logger(),
	}

	if cfg.BoardDBPath != "" {
		board, err := workitems.Open(cfg.BoardDBPath)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to open board database: %w", err)
		}
		s.board = board
		s.recaller = recall.New(ret, emb, board, log)
	}

	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	defer s.Close()
	return server.ServeStdio(s.mcp)
}

// Close releases the server's database handles.
func (s *Server) Close() error {
	if s.board != nil {
		_ = s.board.Close()
	}
	return s.store.Close()
}

// registerTools registers all MCP tools.
func (s *Server) registerTools() {
	s.mcp.AddTool(indexProjectTool(), s.handleIndexProject)
	s.mcp.AddTool(updateIndexTool(), s.handleUpdateIndex)
	s.mcp.AddTool(searchCodeTool(), s.handleSearchCode)
	s.mcp.AddTool(searchMemoriesTool(), s.handleSearchMemories)
	s.mcp.AddTool(saveMemoryTool(), s.handleSaveMemory)
	s.mcp.AddTool(deleteMemoryTool(), s.handleDeleteMemory)
	s.mcp.AddTool(recallContextTool(), s.handleRecallContext)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}

// codeCollection names the code partition of one project's index.
func codeCollection(projectID string) string {
	return "project:" + projectID + ":code"
}

// memoryCollection names the memory partition of one project's index.
func memoryCollection(projectID string) string {
	return "project:" + projectID + ":memories"
}
