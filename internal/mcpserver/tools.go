package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/apresai/podcraft/internal/llm"
	"github.com/apresai/podcraft/internal/observability"
	"github.com/apresai/podcraft/internal/script"
	"github.com/apresai/podcraft/internal/tts"
)

// ToolDefs returns the MCP tool definitions.
func ToolDefs() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        "generate_podcast",
			Description: "Generate a two-voice podcast from a URL or text. Starts an async task and returns an episode ID. Use get_podcast to check progress.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"input_url": map[string]any{
						"type":        "string",
						"description": "URL of content to convert into a podcast",
					},
					"input_text": map[string]any{
						"type":        "string",
						"description": "Raw text to convert into a podcast (alternative to input_url)",
					},
					"title": map[string]any{
						"type":        "string",
						"description": "Episode title shown in listings",
					},
					"question": map[string]any{
						"type":        "string",
						"description": "Question or focus the conversation should answer",
					},
					"tone": map[string]any{
						"type":        "string",
						"description": "Conversation tone: fun or formal",
						"default":     "fun",
					},
					"length": map[string]any{
						"type":        "string",
						"description": "Episode length: short (host only), medium, long",
						"default":     "medium",
					},
					"language": map[string]any{
						"type":        "string",
						"description": "Output language, by name or code (e.g. 中文, English, ja)",
						"default":     script.DefaultLanguage.Name,
					},
					"llm": map[string]any{
						"type":        "string",
						"description": "Script model provider: " + strings.Join(llm.Kinds(), ", "),
					},
					"tts": map[string]any{
						"type":        "string",
						"description": "Text-to-speech provider: " + strings.Join(tts.Kinds(), ", "),
					},
				},
			},
		},
		{
			Name:        "get_podcast",
			Description: "Get the status and details of a podcast by ID. Use this to check on a running generation or retrieve a completed podcast's audio URL.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"podcast_id": map[string]any{
						"type":        "string",
						"description": "The episode ID returned from generate_podcast",
					},
				},
				Required: []string{"podcast_id"},
			},
		},
		{
			Name:        "list_podcasts",
			Description: "List generated podcasts, newest first. Returns IDs, titles, status and audio URLs.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum number of results (default 20)",
						"default":     20,
					},
					"cursor": map[string]any{
						"type":        "string",
						"description": "Pagination cursor from a previous list_podcasts call",
					},
				},
			},
		},
		{
			Name:        "list_providers",
			Description: "List the script model providers, speech providers with their voices, and supported output languages.",
			InputSchema: mcp.ToolInputSchema{
				Type:       "object",
				Properties: map[string]any{},
			},
		},
	}
}

// Handlers contains tool handler implementations.
type Handlers struct {
	tasks   *TaskManager
	catalog Catalog
	log     *slog.Logger
}

// NewHandlers creates tool handlers.
func NewHandlers(tasks *TaskManager, catalog Catalog, logger *slog.Logger) *Handlers {
	return &Handlers{tasks: tasks, catalog: catalog, log: logger}
}

// HandleGeneratePodcast starts a podcast generation task.
func (h *Handlers) HandleGeneratePodcast(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := observability.Tracer().Start(ctx, "tool.generate_podcast")
	defer span.End()

	genReq := GenerateRequest{
		InputURL:  mcp.ParseString(req, "input_url", ""),
		InputText: mcp.ParseString(req, "input_text", ""),
		Title:     mcp.ParseString(req, "title", ""),
		Question:  mcp.ParseString(req, "question", ""),
		Tone:      mcp.ParseString(req, "tone", ""),
		Length:    mcp.ParseString(req, "length", ""),
		Language:  mcp.ParseString(req, "language", ""),
		LLM:       mcp.ParseString(req, "llm", ""),
		TTS:       mcp.ParseString(req, "tts", ""),
	}

	span.SetAttributes(
		attribute.String("input_url", genReq.InputURL),
		attribute.String("llm", genReq.LLM),
		attribute.String("tts", genReq.TTS),
		attribute.String("length", genReq.Length),
		attribute.String("language", genReq.Language),
	)

	if genReq.InputURL == "" && genReq.InputText == "" {
		span.SetStatus(codes.Error, "missing input")
		return mcp.NewToolResultError("either input_url or input_text is required"), nil
	}

	id, err := h.tasks.StartTask(ctx, genReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "start task failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to start task: %v", err)), nil
	}

	span.SetAttributes(attribute.String("episode_id", id))
	h.log.InfoContext(ctx, "podcast generation started", "episode_id", id, "llm", genReq.LLM, "tts", genReq.TTS)

	return jsonResult(map[string]any{
		"podcast_id": id,
		"status":     "submitted",
		"message":    "Podcast generation started. Use get_podcast with this podcast_id to check progress.",
	})
}

// HandleGetPodcast returns podcast details.
func (h *Handlers) HandleGetPodcast(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := observability.Tracer().Start(ctx, "tool.get_podcast")
	defer span.End()

	id := mcp.ParseString(req, "podcast_id", "")
	if id == "" {
		span.SetStatus(codes.Error, "missing podcast_id")
		return mcp.NewToolResultError("podcast_id is required"), nil
	}
	span.SetAttributes(attribute.String("episode_id", id))

	ep, err := h.catalog.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get podcast failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to get podcast: %v", err)), nil
	}
	if ep == nil {
		span.SetStatus(codes.Error, "not found")
		return mcp.NewToolResultError(fmt.Sprintf("podcast %s not found", id)), nil
	}
	return jsonResult(ep)
}

// HandleListPodcasts returns a paginated list of podcasts.
func (h *Handlers) HandleListPodcasts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := observability.Tracer().Start(ctx, "tool.list_podcasts")
	defer span.End()

	limit := parseIntParam(req, "limit", 20)
	cursor := mcp.ParseString(req, "cursor", "")
	span.SetAttributes(attribute.Int("limit", limit), attribute.String("cursor", cursor))

	eps, next, err := h.catalog.List(ctx, limit, cursor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list podcasts failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to list podcasts: %v", err)), nil
	}
	span.SetAttributes(attribute.Int("result_count", len(eps)))

	podcasts := make([]map[string]any, 0, len(eps))
	for _, ep := range eps {
		p := map[string]any{
			"podcast_id": ep.ID,
			"status":     ep.Status,
			"created_at": ep.CreatedAt,
		}
		if ep.Title != "" {
			p["title"] = ep.Title
		}
		if ep.AudioURL != "" {
			p["audio_url"] = ep.AudioURL
		}
		if ep.DurationSec > 0 {
			p["duration_sec"] = ep.DurationSec
		}
		podcasts = append(podcasts, p)
	}

	result := map[string]any{
		"podcasts": podcasts,
		"count":    len(podcasts),
	}
	if next != "" {
		result["next_cursor"] = next
	}
	return jsonResult(result)
}

// HandleListProviders describes what generate_podcast accepts.
func (h *Handlers) HandleListProviders(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	voices := make(map[string][]string)
	for _, kind := range tts.Kinds() {
		infos, err := tts.AvailableVoices(kind)
		if err != nil {
			continue
		}
		ids := make([]string, 0, len(infos))
		for _, v := range infos {
			ids = append(ids, v.ID)
		}
		voices[kind] = ids
	}
	return jsonResult(map[string]any{
		"llm":       llm.Kinds(),
		"tts":       tts.Kinds(),
		"voices":    voices,
		"languages": script.LanguageNames(),
		"tones":     []string{"fun", "formal"},
		"lengths":   []string{"short", "medium", "long"},
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func parseIntParam(req mcp.CallToolRequest, key string, defaultVal int) int {
	args := req.GetArguments()
	if args == nil {
		return defaultVal
	}
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return defaultVal
	}
}
