package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/exp/slices"

	"github.com/dmmcquay/othello-dataset/internal/cache"
	"github.com/dmmcquay/othello-dataset/internal/dataset"
	"github.com/dmmcquay/othello-dataset/internal/logging"
	"github.com/dmmcquay/othello-dataset/internal/metrics"
	"github.com/dmmcquay/othello-dataset/internal/othello"
	"github.com/dmmcquay/othello-dataset/internal/transcript"
)

// ToolsHandler manages MCP tools for transcript conversion.
type ToolsHandler struct {
	logger     logging.ContextLogger
	metrics    *metrics.Collector
	defaults   dataset.Options
	middleware *Middleware
	cache      *cache.Transcripts
}

// NewToolsHandler creates a new tools handler. defaults supplies the charset,
// format and metrics textfile used when a call does not override them.
func NewToolsHandler(logger logging.ContextLogger, m *metrics.Collector, defaults dataset.Options) *ToolsHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ToolsHandler{
		logger:   logger,
		metrics:  m,
		defaults: defaults,
	}
}

// SetMiddleware sets the middleware for the tools handler.
func (h *ToolsHandler) SetMiddleware(middleware *Middleware) {
	h.middleware = middleware
}

// SetCache makes parseTranscript and replayGame reuse parsed transcripts.
func (h *ToolsHandler) SetCache(c *cache.Transcripts) {
	h.cache = c
}

func (h *ToolsHandler) parse(text string) []transcript.Game {
	if h.cache != nil {
		return h.cache.Parse(text)
	}
	return transcript.Parse(text)
}

// RegisterTools registers all tools with the MCP server.
func (h *ToolsHandler) RegisterTools(s *server.MCPServer) {
	convertTool := mcp.NewTool("convertTranscript",
		mcp.WithDescription("Convert an Othello transcript file into a training dataset of (board, move) rows"),
		mcp.WithString("input",
			mcp.Description("Path of the transcript file (plain text or .bz2)"),
			mcp.Required(),
		),
		mcp.WithString("output",
			mcp.Description("Path of the dataset file to write; an existing file is replaced"),
			mcp.Required(),
		),
		mcp.WithString("format",
			mcp.Description("Output format: csv or msgpack (default: from config)"),
		),
	)
	convertHandler := h.HandleConvertTranscript
	if h.middleware != nil {
		convertHandler = h.middleware.WrapTool("convertTranscript", convertHandler)
	}
	s.AddTool(convertTool, convertHandler)

	parseTool := mcp.NewTool("parseTranscript",
		mcp.WithDescription("Split transcript text into games and return their headers and move tokens as JSON"),
		mcp.WithString("transcript",
			mcp.Description("Transcript text"),
			mcp.Required(),
		),
	)
	parseHandler := h.HandleParseTranscript
	if h.middleware != nil {
		parseHandler = h.middleware.WrapTool("parseTranscript", parseHandler)
	}
	s.AddTool(parseTool, parseHandler)

	replayTool := mcp.NewTool("replayGame",
		mcp.WithDescription("Replay a game from transcript text and show the board"),
		mcp.WithString("transcript",
			mcp.Description("Transcript text"),
			mcp.Required(),
		),
		mcp.WithNumber("game",
			mcp.Description("1-based game number (default: 1)"),
		),
		mcp.WithNumber("ply",
			mcp.Description("Number of moves to play (default: all)"),
		),
	)
	replayHandler := h.HandleReplayGame
	if h.middleware != nil {
		replayHandler = h.middleware.WrapTool("replayGame", replayHandler)
	}
	s.AddTool(replayTool, replayHandler)

	statusTool := mcp.NewTool("getStatus",
		mcp.WithDescription("Report totals recorded since the server started"),
	)
	statusHandler := h.HandleGetStatus
	if h.middleware != nil {
		statusHandler = h.middleware.WrapTool("getStatus", statusHandler)
	}
	s.AddTool(statusTool, statusHandler)
}

// HandleConvertTranscript handles the convertTranscript tool.
func (h *ToolsHandler) HandleConvertTranscript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = logging.ContextWithRunID(ctx, logging.GenerateRunID())
	logger := h.logger.WithContext(ctx).WithField("tool", "convertTranscript")

	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	input, err := stringArg(args, "input", true)
	if err != nil {
		return nil, err
	}
	output, err := stringArg(args, "output", true)
	if err != nil {
		return nil, err
	}
	format, err := stringArg(args, "format", false)
	if err != nil {
		return nil, err
	}

	opts := h.defaults
	if format != "" {
		opts.Format = strings.ToLower(format)
	}

	logger.Info("Handling convertTranscript request", "input", input, "output", output)
	res, err := dataset.NewConverter(h.logger, h.metrics, opts).Convert(ctx, input, output)
	if err != nil {
		return nil, fmt.Errorf("conversion failed: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(res.Message())
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Games: %d\n", res.Games)
	fmt.Fprintf(&sb, "Rows: %d\n", res.Rows)
	fmt.Fprintf(&sb, "Skipped result tokens: %d\n", res.SkippedResults)
	fmt.Fprintf(&sb, "Skipped malformed tokens: %d\n", res.SkippedMalformed)
	return mcp.NewToolResultText(sb.String()), nil
}

// HandleParseTranscript handles the parseTranscript tool.
func (h *ToolsHandler) HandleParseTranscript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	text, err := stringArg(args, "transcript", true)
	if err != nil {
		return nil, err
	}

	games := h.parse(text)
	if games == nil {
		games = []transcript.Game{}
	}
	h.logger.WithContext(ctx).Debug("Parsed %d games", len(games))

	out, err := json.MarshalIndent(games, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to format result: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

// HandleReplayGame handles the replayGame tool.
func (h *ToolsHandler) HandleReplayGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	text, err := stringArg(args, "transcript", true)
	if err != nil {
		return nil, err
	}
	gameNum, err := intArg(args, "game", 1)
	if err != nil {
		return nil, err
	}
	ply, err := intArg(args, "ply", -1)
	if err != nil {
		return nil, err
	}

	games := h.parse(text)
	if len(games) == 0 {
		return nil, fmt.Errorf("transcript contains no games")
	}
	if gameNum < 1 || gameNum > len(games) {
		return nil, fmt.Errorf("game %d out of range (transcript has %d games)", gameNum, len(games))
	}

	game := games[gameNum-1]
	board, toMove, played := dataset.Replay(game, ply)
	h.logger.WithContext(ctx).Debug("Replayed game", "game", gameNum, "moves", played)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Game %d after %d moves (%s to move)\n", gameNum, played, toMove)
	for _, tag := range game.SortedTags() {
		fmt.Fprintf(&sb, "  %s: %s\n", tag, game.Headers[tag])
	}
	sb.WriteString("\n")
	sb.WriteString(board.String())
	fmt.Fprintf(&sb, "\n%s: %d  %s: %d\n",
		sideLabel(game, "Black"), board.Count(othello.Black),
		sideLabel(game, "White"), board.Count(othello.White))
	return mcp.NewToolResultText(sb.String()), nil
}

// sideLabel names a colour, adding the player from the matching tag if the
// game records one.
func sideLabel(game transcript.Game, side string) string {
	if name, ok := game.Header(side); ok {
		return fmt.Sprintf("%s (%s)", side, name)
	}
	return side
}

// HandleGetStatus handles the getStatus tool.
func (h *ToolsHandler) HandleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.metrics == nil {
		return mcp.NewToolResultText("Metrics are disabled"), nil
	}
	s := h.metrics.Snapshot()

	var sb strings.Builder
	sb.WriteString("Othello Dataset Status\n")
	sb.WriteString("======================\n")
	fmt.Fprintf(&sb, "Conversions: %d (%d failed)\n", s.Conversions, s.FailedRuns)
	fmt.Fprintf(&sb, "Games: %d\n", s.Games)
	fmt.Fprintf(&sb, "Rows: %d\n", s.Rows)
	fmt.Fprintf(&sb, "Skipped result tokens: %d\n", s.SkippedResults)
	fmt.Fprintf(&sb, "Skipped malformed tokens: %d\n", s.SkippedMalformed)

	if h.cache != nil && h.cache.IsEnabled() {
		cs := h.cache.Stats()
		fmt.Fprintf(&sb, "\nTranscript cache: %d entries, %d bytes, hit rate %.0f%%\n", cs.Items, cs.Size, cs.HitRate*100)
	}

	if len(s.ToolCalls) > 0 {
		tools := make([]string, 0, len(s.ToolCalls))
		for name := range s.ToolCalls {
			tools = append(tools, name)
		}
		slices.Sort(tools)
		sb.WriteString("\nTool calls:\n")
		for _, name := range tools {
			fmt.Fprintf(&sb, "  %s: %d\n", name, s.ToolCalls[name])
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return nil, fmt.Errorf("missing arguments")
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid arguments format")
	}
	return args, nil
}

func stringArg(args map[string]interface{}, key string, required bool) (string, error) {
	val, ok := args[key]
	if !ok {
		if required {
			return "", fmt.Errorf("%s is required", key)
		}
		return "", nil
	}
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	if required && s == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return s, nil
}

// intArg accepts JSON numbers as well as numeric strings.
func intArg(args map[string]interface{}, key string, def int) (int, error) {
	val, ok := args[key]
	if !ok {
		return def, nil
	}
	switch v := val.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s must be a number", key)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be a number", key)
	}
}
