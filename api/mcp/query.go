package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/stacks/pkg/store"
)

var (
	queryToolName    = "document_query"
	queryDescription = "Ask a question against a previously ingested document. Returns the most relevant text chunks ranked by semantic similarity, plus a synthesized answer."
)

// QueryInput represents the input arguments for the document query tool.
type QueryInput struct {
	DocumentID int64  `json:"document_id" jsonschema:"the id of the ingested document to query"`
	Question   string `json:"question" jsonschema:"the question to ask against the document"`
}

// QueryChunk represents a single ranked chunk.
type QueryChunk struct {
	Text  string  `json:"text"`
	Order int     `json:"order"`
	Score float64 `json:"score"`
}

// QueryOutput represents the output of the document query tool.
type QueryOutput struct {
	DocumentID int64        `json:"document_id"`
	Question   string       `json:"question"`
	Answer     string       `json:"answer"`
	Chunks     []QueryChunk `json:"chunks"`
	Count      int          `json:"count"`
}

// handleDocumentQuery processes a document query request.
func (s *Server) handleDocumentQuery(ctx context.Context, req *mcp.CallToolRequest, input QueryInput) (*mcp.CallToolResult, QueryOutput, error) {
	logger := s.config.Logger

	logger.Debug("MCP document query request",
		zap.Int64("documentId", input.DocumentID),
		zap.String("question", input.Question),
	)

	results, err := s.config.Ranker.Query(ctx, input.DocumentID, input.Question)
	if err != nil {
		msg := fmt.Sprintf("Failed to query document: %v", err)
		if errors.Is(err, store.ErrDocumentNotFound) {
			msg = fmt.Sprintf("Document %d not found", input.DocumentID)
		}
		logger.Error("document query failed", zap.Error(err))
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: msg},
			},
		}, QueryOutput{}, nil
	}

	reply, err := s.config.Synthesizer.Synthesize(ctx, input.Question, results)
	if err != nil {
		logger.Error("answer synthesis failed", zap.Error(err))
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to synthesize answer: %v", err)},
			},
		}, QueryOutput{}, nil
	}

	chunks := make([]QueryChunk, len(results))
	for i, r := range results {
		chunks[i] = QueryChunk{
			Text:  r.ChunkText,
			Order: r.ChunkOrder,
			Score: r.Score,
		}
	}

	output := QueryOutput{
		DocumentID: input.DocumentID,
		Question:   input.Question,
		Answer:     reply,
		Chunks:     chunks,
		Count:      len(chunks),
	}

	// Serialize the structured output as JSON for the text field
	// Per MCP spec: tools returning structured content should also return
	// serialized JSON in a TextContent block for backwards compatibility
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal query output", zap.Error(err))
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize results: %v", err)},
			},
		}, QueryOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
