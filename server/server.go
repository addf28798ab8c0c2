// Package server exposes emulated queues over HTTP. Requests are JSON
// bodies posted to "/" with the action named in the X-Amz-Target header, in
// the style of the SQS JSON protocol. It is meant for local development and
// tests, not as a drop-in replacement for the service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tabeth/fakesqs/emulator"
	"github.com/tabeth/fakesqs/models"
	"github.com/tabeth/fakesqs/store"
)

// App holds the dependencies of the HTTP handlers.
type App struct {
	Queues *emulator.Registry
	Log    *slog.Logger
}

// NewRouter builds the chi router serving app, with request logging and
// panic recovery.
func NewRouter(app *App) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	app.RegisterSQSHandlers(r)
	return r
}

// RegisterSQSHandlers registers the action endpoints and the health check.
// Requests to /queues/{queueName} may omit QueueUrl.
func (app *App) RegisterSQSHandlers(r chi.Router) {
	r.Post("/", app.RootSQSHandler)
	r.Post("/queues/{queueName}", app.RootSQSHandler)
	r.Get("/health", app.HealthHandler)
}

// RootSQSHandler dispatches on the X-Amz-Target header, "AmazonSQS.<Action>".
func (app *App) RootSQSHandler(w http.ResponseWriter, r *http.Request) {
	service, action, ok := strings.Cut(r.Header.Get("X-Amz-Target"), ".")
	if !ok || service != "AmazonSQS" || action == "" {
		app.sendErrorResponse(w, "InvalidAction", "Invalid X-Amz-Target header", http.StatusBadRequest)
		return
	}

	switch action {
	case "CreateQueue":
		app.CreateQueueHandler(w, r)
	case "DeleteQueue":
		app.DeleteQueueHandler(w, r)
	case "ListQueues":
		app.ListQueuesHandler(w, r)
	case "GetQueueUrl":
		app.GetQueueUrlHandler(w, r)
	case "PurgeQueue":
		app.PurgeQueueHandler(w, r)
	case "GetQueueAttributes":
		app.GetQueueAttributesHandler(w, r)
	case "SendMessage":
		app.SendMessageHandler(w, r)
	case "SendMessageBatch":
		app.SendMessageBatchHandler(w, r)
	case "ReceiveMessage":
		app.ReceiveMessageHandler(w, r)
	case "DeleteMessage":
		app.DeleteMessageHandler(w, r)
	case "DeleteMessageBatch":
		app.DeleteMessageBatchHandler(w, r)
	default:
		app.sendErrorResponse(w, "UnsupportedOperation", "Unsupported operation: "+action, http.StatusBadRequest)
	}
}

// HealthHandler reports that the server is up and how many queues it holds.
func (app *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"queues": len(app.Queues.ListQueues("")),
	})
}

func (app *App) CreateQueueHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateQueueRequest
	if !app.decode(w, r, &req) {
		return
	}
	_, err := app.Queues.CreateQueue(req.QueueName)
	switch {
	case errors.Is(err, store.ErrQueueAlreadyExists):
		// Creating an existing queue returns its URL, as the service does when attributes match.
		writeJSON(w, http.StatusOK, models.CreateQueueResponse{QueueURL: app.Queues.QueueURL(req.QueueName)})
	case err != nil:
		app.sendError(w, err)
	default:
		writeJSON(w, http.StatusCreated, models.CreateQueueResponse{QueueURL: app.Queues.QueueURL(req.QueueName)})
	}
}

func (app *App) DeleteQueueHandler(w http.ResponseWriter, r *http.Request) {
	var req models.DeleteQueueRequest
	if !app.decode(w, r, &req) {
		return
	}
	queueURL := requestQueueURL(r, req.QueueUrl)
	if !app.requireQueueURL(w, queueURL) {
		return
	}
	if err := app.Queues.DeleteQueue(emulator.QueueNameFromURL(queueURL)); err != nil {
		app.sendError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (app *App) ListQueuesHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ListQueuesRequest
	if !app.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, models.ListQueuesResponse{QueueUrls: app.Queues.ListQueues(req.QueueNamePrefix)})
}

func (app *App) GetQueueUrlHandler(w http.ResponseWriter, r *http.Request) {
	var req models.GetQueueURLRequest
	if !app.decode(w, r, &req) {
		return
	}
	if _, err := app.Queues.GetQueue(req.QueueName); err != nil {
		app.sendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.GetQueueURLResponse{QueueUrl: app.Queues.QueueURL(req.QueueName)})
}

func (app *App) PurgeQueueHandler(w http.ResponseWriter, r *http.Request) {
	var req models.PurgeQueueRequest
	if !app.decode(w, r, &req) {
		return
	}
	q, ok := app.queue(w, r, req.QueueUrl)
	if !ok {
		return
	}
	if _, err := q.PurgeQueue().Wait(r.Context()); err != nil {
		app.sendError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (app *App) GetQueueAttributesHandler(w http.ResponseWriter, r *http.Request) {
	var req models.GetQueueAttributesRequest
	if !app.decode(w, r, &req) {
		return
	}
	q, ok := app.queue(w, r, req.QueueUrl)
	if !ok {
		return
	}
	attrs, err := q.GetQueueAttributes(req.AttributeNames).Wait(r.Context())
	if err != nil {
		app.sendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.GetQueueAttributesResponse{Attributes: attrs})
}

func (app *App) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SendMessageRequest
	if !app.decode(w, r, &req) {
		return
	}
	q, ok := app.queue(w, r, req.QueueUrl)
	if !ok {
		return
	}
	resp, err := q.SendMessage(&req).Wait(r.Context())
	if err != nil {
		app.sendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (app *App) SendMessageBatchHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SendMessageBatchRequest
	if !app.decode(w, r, &req) {
		return
	}
	q, ok := app.queue(w, r, req.QueueUrl)
	if !ok {
		return
	}
	resp, err := q.SendMessageBatch(req.Entries).Wait(r.Context())
	if err != nil {
		app.sendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (app *App) ReceiveMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ReceiveMessageRequest
	if !app.decode(w, r, &req) {
		return
	}
	q, ok := app.queue(w, r, req.QueueUrl)
	if !ok {
		return
	}
	msgs, err := q.ReceiveMessage(&req).Wait(r.Context())
	if err != nil {
		app.sendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ReceiveMessageResponse{Messages: msgs})
}

func (app *App) DeleteMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req models.DeleteMessageRequest
	if !app.decode(w, r, &req) {
		return
	}
	q, ok := app.queue(w, r, req.QueueUrl)
	if !ok {
		return
	}
	if _, err := q.DeleteMessage(req.ReceiptHandle).Wait(r.Context()); err != nil {
		app.sendError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (app *App) DeleteMessageBatchHandler(w http.ResponseWriter, r *http.Request) {
	var req models.DeleteMessageBatchRequest
	if !app.decode(w, r, &req) {
		return
	}
	q, ok := app.queue(w, r, req.QueueUrl)
	if !ok {
		return
	}
	resp, err := q.DeleteMessageBatch(req.Entries).Wait(r.Context())
	if err != nil {
		app.sendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// decode reads the JSON request body into dst, answering the request itself
// when the body is malformed.
func (app *App) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		app.sendErrorResponse(w, "InvalidRequest", "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (app *App) requireQueueURL(w http.ResponseWriter, queueURL string) bool {
	if queueURL == "" {
		app.sendErrorResponse(w, "MissingParameter", "The request must contain a QueueUrl.", http.StatusBadRequest)
		return false
	}
	return true
}

// requestQueueURL returns the QueueUrl from the body, falling back to the
// queue named in the path for requests sent to /queues/{queueName}.
func requestQueueURL(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return chi.URLParam(r, "queueName")
}

func (app *App) queue(w http.ResponseWriter, r *http.Request, queueURL string) (*emulator.Queue, bool) {
	queueURL = requestQueueURL(r, queueURL)
	if !app.requireQueueURL(w, queueURL) {
		return nil, false
	}
	q, err := app.Queues.Lookup(queueURL)
	if err != nil {
		app.sendError(w, err)
		return nil, false
	}
	return q, true
}

// sendError maps an emulator error to an error response.
func (app *App) sendError(w http.ResponseWriter, err error) {
	code := emulator.ErrorCode(err)
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code, status = "RequestTimeout", http.StatusGatewayTimeout
	case code == "InternalFailure":
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		app.logger().Error("request failed", "code", code, "error", err)
	}
	app.sendErrorResponse(w, code, err.Error(), status)
}

// sendErrorResponse writes the JSON error envelope SQS clients expect.
func (app *App) sendErrorResponse(w http.ResponseWriter, errorType string, message string, statusCode int) {
	errResp := models.ErrorResponse{
		Type:    errorType,
		Message: message,
	}
	w.Header().Set("Content-Type", "application/x-amz-json-1.0")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(errResp)
}

func (app *App) logger() *slog.Logger {
	if app.Log == nil {
		return slog.Default()
	}
	return app.Log
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
