// Package api exposes the assistant configuration operations over an
// authenticated HTTP API and an MCP server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aide-tools/aide/internal/capability"
	"github.com/aide-tools/aide/internal/dictation"
	"github.com/aide-tools/aide/internal/export"
	"github.com/aide-tools/aide/internal/form"
	"github.com/aide-tools/aide/internal/knowledge"
	"github.com/aide-tools/aide/internal/profile"
	"github.com/aide-tools/aide/internal/review"
	"github.com/aide-tools/aide/internal/storage"
	"github.com/aide-tools/aide/internal/store"
)

const maxRequestBodySize = 1 << 20 // 1MB

// ModelLister abstracts model listing for the API layer.
type ModelLister interface {
	ListModels(ctx context.Context, ct profile.ClientType) ([]string, error)
}

type AppDeps struct {
	Profiles  *store.Store
	Registry  *capability.Registry
	History   *storage.Store
	Exporter  *export.Exporter
	Models    ModelLister       // optional; if nil, /models returns 501
	Dictation *dictation.Bridge // optional; if nil, /dictation returns 501
	Runner    *review.Runner
	Token     string
}

func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/assistants", handleListAssistants(deps))
		r.Get("/assistants/{name}", handleGetAssistant(deps))
		r.Put("/assistants/{name}", handleSaveAssistant(deps))
		r.Delete("/assistants/{name}", handleDeleteAssistant(deps))
		r.Post("/assistants/{name}/export", handleExportAssistant(deps))
		r.Get("/capabilities", handleListCapabilities(deps))
		r.Get("/knowledge/inspect", handleInspectKnowledge(deps))
		r.Get("/models", handleListModels(deps))
		r.Route("/dictation", func(r chi.Router) {
			r.Get("/", handleGetDictation(deps))
			r.Post("/toggle", handleToggleDictation(deps))
			r.Post("/events", handleDictationEvent(deps))
			r.Put("/text", handleSetDictationText(deps))
			r.Delete("/", handleResetDictation(deps))
		})
		r.Post("/reviews", handleSubmitReview(deps))
		r.Get("/reviews", handleListReviews(deps))
		r.Get("/reviews/{id}", handleGetReview(deps))
	})

	return r
}

func handleListAssistants(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			names []string
			err   error
		)
		if ctParam := r.URL.Query().Get("client_type"); ctParam != "" {
			ct, parseErr := profile.ParseClientType(ctParam)
			if parseErr != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", parseErr)
				return
			}
			at := profile.AssistantType(r.URL.Query().Get("assistant_type"))
			if at == "" {
				at = profile.TypeAssistant
			}
			names, err = deps.Profiles.NamesByClientType(ct, at)
		} else {
			names, err = deps.Profiles.Names()
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list assistants: %v", err)
			return
		}

		if names == nil {
			names = []string{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(names)
	}
}

func handleGetAssistant(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		p, err := deps.Profiles.Get(name)
		if errors.Is(err, store.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "assistant not found")
			return
		}
		if errors.Is(err, store.ErrInvalidName) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get assistant: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(p)
	}
}

func handleSaveAssistant(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var p profile.AssistantProfile
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		if p.Name == "" {
			p.Name = name
		}
		if p.Name != name {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "assistant name %q does not match URL", p.Name)
			return
		}

		// Load the submitted profile into a form so the capability selection
		// is reconciled against the registry before anything is persisted.
		frm := form.New(form.Defaults{})
		frm.Load(p, deps.Registry)

		err := deps.Profiles.Save(frm.Snapshot())
		if errors.Is(err, store.ErrInvalidName) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		var verr *profile.ValidationError
		if errors.As(err, &verr) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{
					"message": verr.Error(),
					"type":    "validation_error",
					"missing": verr.Missing,
				},
			})
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save assistant: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "saved"})
	}
}

func handleDeleteAssistant(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		err := deps.Profiles.Delete(name)
		if errors.Is(err, store.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "assistant not found")
			return
		}
		if errors.Is(err, store.ErrInvalidName) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete assistant: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
	}
}

type exportRequest struct {
	Destination string `json:"destination"`
}

func handleExportAssistant(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		var req exportRequest
		if r.ContentLength > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
				return
			}
		}

		if _, err := deps.Profiles.Get(name); errors.Is(err, store.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "assistant not found")
			return
		} else if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get assistant: %v", err)
			return
		}

		dest := req.Destination
		if dest == "" {
			dest = export.DefaultRoot(name)
		}

		exportErr := deps.Exporter.Export(name, dest)

		record := storage.ExportRecord{
			ID:            uuid.New().String(),
			CreatedAt:     time.Now().UTC(),
			AssistantName: name,
			Destination:   dest,
			Status:        "completed",
		}
		if exportErr != nil {
			record.Status = "failed"
			record.Error = exportErr.Error()
		}
		if deps.History != nil {
			if err := deps.History.SaveExport(record); err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to record export: %v", err)
				return
			}
		}

		if exportErr != nil {
			httpError(w, http.StatusInternalServerError, "export_error", "%v", exportErr)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":      "exported",
			"destination": dest,
		})
	}
}

func handleListCapabilities(deps AppDeps) http.HandlerFunc {
	type categoryGroup struct {
		Category  string            `json:"category"`
		Functions []capability.Spec `json:"functions"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var groups []categoryGroup
		for _, cat := range deps.Registry.Categories() {
			group := categoryGroup{Category: cat}
			for _, def := range deps.Registry.Definitions(cat) {
				group.Functions = append(group.Functions, def.Spec)
			}
			groups = append(groups, group)
		}
		if groups == nil {
			groups = []categoryGroup{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(groups)
	}
}

func handleInspectKnowledge(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		paths := r.URL.Query()["path"]
		if len(paths) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "at least one path query parameter is required")
			return
		}

		infos, err := knowledge.InspectAll(r.Context(), paths)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if infos == nil {
			infos = []knowledge.Info{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(infos)
	}
}

// dictationState is what a UI mirrors: the current buffer contents and the
// microphone toggle.
type dictationState struct {
	Text      string `json:"text"`
	Listening bool   `json:"listening"`
}

func writeDictationState(w http.ResponseWriter, b *dictation.Bridge) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dictationState{Text: b.Text(), Listening: b.Listening()})
}

func requireDictation(deps AppDeps, w http.ResponseWriter) *dictation.Bridge {
	if deps.Dictation == nil {
		httpError(w, http.StatusNotImplemented, "api_error", "dictation is not configured")
		return nil
	}
	return deps.Dictation
}

func handleGetDictation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if b := requireDictation(deps, w); b != nil {
			writeDictationState(w, b)
		}
	}
}

func handleToggleDictation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := requireDictation(deps, w)
		if b == nil {
			return
		}
		if _, err := b.Toggle(r.Context()); err != nil {
			httpError(w, http.StatusBadGateway, "dictation_error", "toggling recognizer: %v", err)
			return
		}
		writeDictationState(w, b)
	}
}

type dictationEvent struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// handleDictationEvent applies one recognition result pushed by a speech
// front-end: partials revise the pending hypothesis in place, finals commit.
func handleDictationEvent(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := requireDictation(deps, w)
		if b == nil {
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var ev dictationEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if ev.Text == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "text is required")
			return
		}

		if ev.Final {
			b.Final(ev.Text)
		} else {
			b.Partial(ev.Text)
		}
		writeDictationState(w, b)
	}
}

type dictationText struct {
	Text string `json:"text"`
}

func handleSetDictationText(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := requireDictation(deps, w)
		if b == nil {
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var body dictationText
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		b.SetText(body.Text)
		writeDictationState(w, b)
	}
}

func handleResetDictation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := requireDictation(deps, w)
		if b == nil {
			return
		}
		b.ResetBuffer()
		writeDictationState(w, b)
	}
}

func handleListModels(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Models == nil {
			httpError(w, http.StatusNotImplemented, "api_error", "model listing is not configured")
			return
		}

		ct, err := profile.ParseClientType(r.URL.Query().Get("client_type"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		models, err := deps.Models.ListModels(r.Context(), ct)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "failed to list models: %v", err)
			return
		}
		if models == nil {
			models = []string{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models)
	}
}

type reviewRequest struct {
	Instructions string `json:"instructions"`
}

func handleSubmitReview(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req reviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Instructions == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "instructions is required")
			return
		}

		// The review outlives this request, so it must not inherit the
		// request's cancellation.
		id, err := deps.Runner.Submit(context.WithoutCancel(r.Context()), req.Instructions)
		if errors.Is(err, review.ErrInFlight) {
			httpError(w, http.StatusConflict, "review_in_flight", "a review is already in progress")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to submit review: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{
			"id":     id,
			"status": storage.ReviewPending,
		})
	}
}

func handleListReviews(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)

		reviews, err := deps.History.RecentReviews(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list reviews: %v", err)
			return
		}
		if reviews == nil {
			reviews = []storage.ReviewRecord{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(reviews)
	}
}

func handleGetReview(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		rec, err := deps.History.GetReview(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "review not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get review: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rec)
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
