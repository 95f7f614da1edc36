// Package mcpserver exposes podcast generation as MCP tools over streamable
// HTTP. Generation runs asynchronously; finished episodes are uploaded and
// tracked through the publish package.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"

	"github.com/apresai/podcraft/internal/config"
	"github.com/apresai/podcraft/internal/pipeline"
	"github.com/apresai/podcraft/internal/publish"
)

// Server is the MCP server for podcast generation.
type Server struct {
	port     int
	mcp      *server.MCPServer
	http     *server.StreamableHTTPServer
	tasks    *TaskManager
	pipeline *pipeline.Pipeline
	log      *slog.Logger
}

// New creates and configures the MCP server. baseCtx is cancelled on
// shutdown and bounds every generation task.
func New(baseCtx context.Context, cfg *config.Config, version string, logger *slog.Logger) (*Server, error) {
	if cfg.Secrets.Prefix != "" {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.Secrets.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Secrets.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(baseCtx, loadOpts...)
		if err != nil {
			logger.Warn("failed to load aws config, using environment credentials only", "error", err)
		} else {
			otelaws.AppendMiddlewares(&awsCfg.APIOptions)
			cfg.LoadSecrets(baseCtx, secretsmanager.NewFromConfig(awsCfg), logger)
		}
	}

	pub, err := publish.New(baseCtx, cfg.Publish, logger)
	if err != nil {
		return nil, fmt.Errorf("publishing is required for the MCP server: %w", err)
	}

	p := pipeline.New(*cfg, pipeline.WithLogger(logger))
	tasks := NewTaskManager(baseCtx, p, pub.Catalog, pub, cfg.MCP.MaxTasks, logger)

	s := &Server{
		port:     cfg.MCP.Port,
		tasks:    tasks,
		pipeline: p,
		log:      logger,
	}
	s.mcp = newMCPServer(NewHandlers(tasks, pub.Catalog, logger), version)
	s.http = server.NewStreamableHTTPServer(s.mcp,
		server.WithStateLess(true),
	)
	return s, nil
}

func newMCPServer(h *Handlers, version string) *server.MCPServer {
	mcpServer := server.NewMCPServer(
		"podcraft",
		version,
		server.WithToolCapabilities(true),
	)

	tools := ToolDefs()
	mcpServer.AddTool(tools[0], h.HandleGeneratePodcast)
	mcpServer.AddTool(tools[1], h.HandleGetPodcast)
	mcpServer.AddTool(tools[2], h.HandleListPodcasts)
	mcpServer.AddTool(tools[3], h.HandleListProviders)
	return mcpServer
}

// Start runs the HTTP MCP server until Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.log.Info("starting MCP server", "addr", addr)
	return s.http.Start(addr)
}

// Shutdown stops accepting requests and waits up to grace for running
// tasks to record their final state.
func (s *Server) Shutdown(ctx context.Context, grace time.Duration) error {
	httpErr := s.http.Shutdown(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()
	if err := s.tasks.Wait(waitCtx); err != nil {
		s.log.Warn("tasks still running at shutdown", "error", err)
	}
	if err := s.pipeline.Close(); err != nil {
		s.log.Warn("close providers", "error", err)
	}
	return httpErr
}
