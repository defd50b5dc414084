package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"shopify-hubspot-sync/internal/application"
	"shopify-hubspot-sync/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type createConnectRequest struct {
	Name string `json:"name"`
	From string `json:"from"`
	To   string `json:"to"`
}

type renameConnectRequest struct {
	Name string `json:"name"`
}

type fieldsRequest struct {
	Connect     string `json:"connect"`
	Module      string `json:"module"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

type associateRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrBadRequest, err)
	}
	return nil
}

func createConnectHandler(connects ConnectManager, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createConnectRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		c, err := connects.CreateNewConnect(r.Context(), userIDFrom(r.Context()), req.Name, req.From, req.To)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

func listConnectsHandler(connects ConnectManager, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := connects.List(r.Context(), userIDFrom(r.Context()))
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		if list == nil {
			list = []*domain.Connect{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func getConnectHandler(connects ConnectManager, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := connects.Get(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func renameConnectHandler(connects ConnectManager, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req renameConnectRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		c, err := connects.UpdateName(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "id"), req.Name)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func enableConnectHandler(connects ConnectManager, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := connects.Enable(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func disableConnectHandler(connects ConnectManager, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := connects.Disable(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func deleteConnectHandler(connects ConnectManager, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := connects.SoftDelete(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// migrateHandler runs the migration to completion even if the client goes away
func migrateHandler(migrations Migrator, connects ConnectManager, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := userIDFrom(r.Context())
		connectID := chi.URLParam(r, "id")

		q := r.URL.Query()
		moduleParam := q.Get("module")
		if moduleParam == "" {
			moduleParam = string(domain.ModuleAll)
		}
		module, err := domain.ParseModuleType(moduleParam)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		filter := domain.DateFilter{From: q.Get("from"), To: q.Get("to")}

		ctx := context.WithoutCancel(r.Context())
		if err := migrations.Migrate(ctx, userID, connectID, module, filter); err != nil {
			writeError(w, r, logger, err)
			return
		}
		c, err := connects.Get(ctx, userID, connectID)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func toggleMetafieldSyncHandler(fields FieldManager, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		enabled, err := fields.ToggleMetafieldSync(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"syncMetafield": enabled})
	}
}

func listFieldsHandler(fields FieldManager, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		module, err := domain.ParseModuleType(r.URL.Query().Get("module"))
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		list, err := fields.GetFields(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "appId"), r.URL.Query().Get("connect"), module)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeFields(w, list)
	}
}

func syncFieldsHandler(fields FieldManager, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req fieldsRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		module, err := domain.ParseModuleType(req.Module)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		list, err := fields.SyncFieldsInModule(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "appId"), req.Connect, module)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeFields(w, list)
	}
}

func createFieldHandler(fields FieldManager, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req fieldsRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		module, err := domain.ParseModuleType(req.Module)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		list, err := fields.CreateCustomField(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "appId"), req.Connect, module, req.Name, req.Description)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		if list == nil {
			list = []*domain.Field{}
		}
		writeJSON(w, http.StatusCreated, list)
	}
}

func writeFields(w http.ResponseWriter, list []*domain.Field) {
	if list == nil {
		list = []*domain.Field{}
	}
	writeJSON(w, http.StatusOK, list)
}

func associateFieldsHandler(mappings FieldMapper, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req associateRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		if err := mappings.Associate(r.Context(), userIDFrom(r.Context()), req.From, req.To); err != nil {
			writeError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func releaseFieldHandler(mappings FieldMapper, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := mappings.Release(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// webhookHandler authenticates a Shopify delivery and queues it for processing
func webhookHandler(webhooks WebhookReceiver, verifier WebhookVerifier, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !verifier.Verify(r) {
			logger.Warn().Str("path", r.URL.Path).Msg("Webhook signature verification failed")
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid webhook signature"})
			return
		}

		topic := r.Header.Get("X-Shopify-Topic")
		if topic == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "X-Shopify-Topic header is required"})
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read body"})
			return
		}

		target := application.WebhookTarget{
			ConnectID: chi.URLParam(r, "connectId"),
			FromAppID: chi.URLParam(r, "fromApp"),
			ToAppID:   chi.URLParam(r, "toApp"),
		}
		if err := webhooks.Receive(r.Context(), target, topic, r.Header.Get("X-Shopify-Shop-Domain"), payload); err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
	}
}
