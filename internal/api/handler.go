package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	graphql "github.com/graph-gophers/graphql-go"
)

// maxBodyBytes bounds a GraphQL request body.
const maxBodyBytes = 1 << 20

// GraphQLRequest is the JSON body accepted by GraphQLHandler.
type GraphQLRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// ErrorMessage is a single entry of a GraphQL error list.
type ErrorMessage struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every response that failed before or after
// query execution.
type ErrorResponse struct {
	Errors []ErrorMessage `json:"errors"`
}

// GraphQLHandler executes GraphQL requests against a parsed schema.
type GraphQLHandler struct {
	schema *graphql.Schema
	logger *slog.Logger
}

// NewGraphQLHandler creates a new GraphQLHandler.
func NewGraphQLHandler(schema *graphql.Schema, logger *slog.Logger) *GraphQLHandler {
	return &GraphQLHandler{schema: schema, logger: logger}
}

// ServeHTTP handles POST /graphql.
func (h *GraphQLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req GraphQLRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeJSONError(w, http.StatusBadRequest, "query is required")
		return
	}

	resp := h.schema.Exec(r.Context(), req.Query, req.OperationName, req.Variables)
	if len(resp.Errors) > 0 {
		h.logger.DebugContext(r.Context(), "graphql request completed with errors",
			"operation", req.OperationName,
			"errors", len(resp.Errors),
		)
	}

	body, err := json.Marshal(resp)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to encode graphql response", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// writeJSONError writes a GraphQL-shaped error response.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Errors: []ErrorMessage{{Message: message}},
	})
}
