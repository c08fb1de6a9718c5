package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"phoneadvisor/internal/model"
	"phoneadvisor/internal/service"
)

// turnRunner is the part of the chat service the Lambda needs
type turnRunner interface {
	Turn(ctx context.Context, history []model.ChatMessage) service.TurnResult
}

type handler struct {
	chat turnRunner
	log  *zap.Logger
}

func newHandler(chat turnRunner, log *zap.Logger) *handler {
	return &handler{chat: chat, log: log}
}

// Handle answers one API Gateway proxy request carrying a chat request body
func (h *handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if req.HTTPMethod == http.MethodOptions {
		return respond(http.StatusNoContent, nil), nil
	}

	var body model.ChatRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		h.log.Warn("invalid request body", zap.Error(err))
		return respond(http.StatusBadRequest, model.ChatResponse{
			Mode:           model.ModeClarify,
			Message:        service.MessageEmptyInput,
			UsedCatalogIDs: []string{},
			Error:          "Invalid request: " + err.Error(),
		}), nil
	}

	result := h.chat.Turn(ctx, body.History())

	status := http.StatusOK
	if result.Err != nil {
		status = http.StatusInternalServerError
		if result.Err.Code == service.ErrorInvalidInput {
			status = http.StatusBadRequest
		}
	}
	return respond(status, result.Response), nil
}

func respond(status int, v any) events.APIGatewayProxyResponse {
	resp := events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":                 "application/json",
			"Access-Control-Allow-Origin":  "*",
			"Access-Control-Allow-Headers": "Content-Type",
			"Access-Control-Allow-Methods": "POST,OPTIONS",
		},
	}
	if v == nil {
		return resp
	}

	b, err := json.Marshal(v)
	if err != nil {
		resp.StatusCode = http.StatusInternalServerError
		resp.Body = `{"mode":"clarify","message":"` + service.MessageServerError + `","usedCatalogIds":[]}`
		return resp
	}
	resp.Body = string(b)
	return resp
}
