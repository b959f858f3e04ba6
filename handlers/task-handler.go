package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskbot-project/microservices/tasks-service/models"
	"taskbot-project/microservices/tasks-service/repositories"
	"taskbot-project/microservices/tasks-service/services"
)

type TaskHandler struct {
	service *services.TaskService
	reports *services.ReportService
}

func NewTaskHandler(service *services.TaskService, reports *services.ReportService) *TaskHandler {
	return &TaskHandler{service: service, reports: reports}
}

// actorID reads the acting user from the X-User-ID header set by the
// gateway.
func actorID(r *http.Request) (int64, error) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return 0, errors.New("X-User-ID header is missing")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New("X-User-ID header is not a valid user id")
	}
	return id, nil
}

func pathObjectID(r *http.Request, name string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(mux.Vars(r)[name])
}

// writeServiceError maps service errors onto HTTP statuses: validation
// problems are 400, wrong-actor problems are 403, already-finished
// conflicts are 409, missing records are 404 and everything else is
// 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidTimeRange),
		errors.Is(err, services.ErrTaskNotStartedYet),
		errors.Is(err, services.ErrPhotoRequired),
		errors.Is(err, services.ErrVideoRequired),
		errors.Is(err, services.ErrFileRequired):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrNotYourTask),
		errors.Is(err, services.ErrExecutorCannotCancel):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, services.ErrAlreadyConfirmedOrCanceled),
		errors.Is(err, services.ErrTaskAlreadyFinished),
		errors.Is(err, services.ErrTaskNotConfirmed),
		errors.Is(err, services.ErrCheckPointAlreadyCompleted):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, repositories.ErrTaskNotFound),
		errors.Is(err, repositories.ErrCheckPointNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type createTaskRequest struct {
	Task        models.Task         `json:"task"`
	CheckPoints []models.CheckPoint `json:"checkPoints,omitempty"`
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.service.CreateTask(r.Context(), &req.Task, req.CheckPoints)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathObjectID(r, "id")
	if err != nil {
		http.Error(w, "invalid task ID", http.StatusBadRequest)
		return
	}

	task, err := h.service.GetTask(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(task)
}

func (h *TaskHandler) ListCheckPoints(w http.ResponseWriter, r *http.Request) {
	id, err := pathObjectID(r, "id")
	if err != nil {
		http.Error(w, "invalid task ID", http.StatusBadRequest)
		return
	}

	checkpoints, err := h.service.ListCheckPoints(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(checkpoints)
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathObjectID(r, "id")
	if err != nil {
		http.Error(w, "invalid task ID", http.StatusBadRequest)
		return
	}

	var update models.TaskUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	task, err := h.service.UpdateTask(r.Context(), id, update)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(task)
}

func (h *TaskHandler) ConfirmTask(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	id, err := pathObjectID(r, "id")
	if err != nil {
		http.Error(w, "invalid task ID", http.StatusBadRequest)
		return
	}

	task, err := h.service.ConfirmTask(r.Context(), id, actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(task)
}

func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	id, err := pathObjectID(r, "id")
	if err != nil {
		http.Error(w, "invalid task ID", http.StatusBadRequest)
		return
	}

	task, err := h.service.CancelTask(r.Context(), id, actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(task)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathObjectID(r, "id")
	if err != nil {
		http.Error(w, "invalid task ID", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteTask(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type completeRequest struct {
	Text        string              `json:"text"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
}

type completeResponse struct {
	Report    *models.Report `json:"report"`
	Task      *models.Task   `json:"task"`
	OnTime    bool           `json:"onTime"`
	OverdueBy string         `json:"overdueBy,omitempty"`
}

func completionBody(result *services.CompletionResult) completeResponse {
	resp := completeResponse{
		Report: result.Report,
		Task:   result.Task,
		OnTime: result.OnTime,
	}
	if result.OverdueBy > 0 {
		resp.OverdueBy = result.OverdueBy.String()
	}
	return resp
}

func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	id, err := pathObjectID(r, "id")
	if err != nil {
		http.Error(w, "invalid task ID", http.StatusBadRequest)
		return
	}

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.reports.CompleteTask(r.Context(), id, actor, req.Text, req.Attachments)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(completionBody(result))
}

func (h *TaskHandler) CompleteCheckPoint(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	id, err := pathObjectID(r, "id")
	if err != nil {
		http.Error(w, "invalid checkpoint ID", http.StatusBadRequest)
		return
	}

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.reports.CompleteCheckPoint(r.Context(), id, actor, req.Text, req.Attachments)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(completionBody(result))
}
