package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"leadadmin/api/internal/idempotency"
	"leadadmin/api/internal/search"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	replay     *idempotency.RedisStore
}

// NewHTTPServer wires the REST surface. replay may be nil; without it
// create-and-publish ignores Idempotency-Key headers.
func NewHTTPServer(service *Service, corsOrigin string, replay *idempotency.RedisStore) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin, replay: replay}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	parts := splitPath(r.URL.Path)

	if len(parts) >= 2 && parts[0] == "api" && parts[1] == "requests" {
		s.handleRequests(w, r, parts[2:])
		return
	}

	if len(parts) >= 2 && parts[0] == "api" && parts[1] == "specialists" {
		s.handleSpecialists(w, r, parts[2:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
}

func (s *HTTPServer) handleRequests(w http.ResponseWriter, r *http.Request, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			items, err := s.service.ListRequests(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Could not list requests")
				return
			}
			writeData(w, http.StatusOK, items)
		case http.MethodPost:
			var body CreateRequestInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
				return
			}
			created, err := s.service.CreateRequest(r.Context(), body)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeData(w, http.StatusCreated, created)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
		}
		return
	}

	if len(rest) == 1 && rest[0] == "create-and-publish" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
			return
		}
		s.handleCreateAndPublish(w, r)
		return
	}

	if len(rest) == 1 && rest[0] == "search" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
			return
		}
		query := search.Query{
			Text:           strings.TrimSpace(r.URL.Query().Get("q")),
			Specialization: strings.TrimSpace(r.URL.Query().Get("specialization")),
		}
		var err error
		if query.Limit, err = queryInt(r, "limit", 20); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer")
			return
		}
		if query.Offset, err = queryInt(r, "offset", 0); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "offset must be an integer")
			return
		}
		writeData(w, http.StatusOK, s.service.SearchRequests(query))
		return
	}

	id, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "request id must be an integer")
		return
	}

	if len(rest) == 2 && rest[1] == "publish-update" {
		if r.Method != http.MethodPut {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
			return
		}
		var body RequestEditsInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
		result, err := s.service.PublishUpdate(r.Context(), id, body)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		if result.Moved {
			writeData(w, http.StatusOK, map[string]any{"moved": true})
			return
		}
		writeData(w, http.StatusOK, map[string]any{"edited": true, "updated": result.Updated})
		return
	}

	if len(rest) != 1 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		request, err := s.service.GetRequest(r.Context(), id)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeData(w, http.StatusOK, request)
	case http.MethodPut:
		var body RequestEditsInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
		updated, err := s.service.UpdateRequest(r.Context(), id, body)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeData(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := s.service.DeleteRequest(r.Context(), id); err != nil {
			writeMappedError(w, err)
			return
		}
		writeData(w, http.StatusOK, map[string]any{"deleted": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	}
}

func (s *HTTPServer) handleCreateAndPublish(w http.ResponseWriter, r *http.Request) {
	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))

	if s.replay != nil && idempotencyKey != "" {
		cached, found, err := s.replay.Lookup(r.Context(), idempotencyKey)
		if err != nil {
			log.Printf("create-and-publish: idempotency lookup: %v", err)
		} else if found {
			w.Header().Set("X-Idempotent-Replay", "true")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write(cached)
			return
		}
	}

	var body CreateRequestInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	result, err := s.service.CreateAndPublish(r.Context(), body)
	if err != nil {
		writeMappedError(w, err)
		return
	}

	payload := map[string]any{"success": true, "data": result}
	encoded, err := json.Marshal(payload)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Encoding failed")
		return
	}
	if s.replay != nil && idempotencyKey != "" {
		if err := s.replay.Save(r.Context(), idempotencyKey, encoded); err != nil {
			log.Printf("create-and-publish: idempotency save: %v", err)
		}
	}
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(encoded)
}

func (s *HTTPServer) handleSpecialists(w http.ResponseWriter, r *http.Request, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			items, err := s.service.ListSpecialists(r.Context())
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeData(w, http.StatusOK, items)
		case http.MethodPost:
			var body SpecialistInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
				return
			}
			created, err := s.service.CreateSpecialist(r.Context(), body)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeData(w, http.StatusOK, created)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
		}
		return
	}

	id, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "specialist id must be an integer")
		return
	}

	if len(rest) == 2 && rest[1] == "approve" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
			return
		}
		if err := s.service.ApproveSpecialist(r.Context(), id); err != nil {
			writeMappedError(w, err)
			return
		}
		writeData(w, http.StatusOK, map[string]any{"approved": true})
		return
	}

	if len(rest) != 1 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		specialist, err := s.service.GetSpecialist(r.Context(), id)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeData(w, http.StatusOK, specialist)
	case http.MethodPut:
		var body SpecialistInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
		updated, err := s.service.UpdateSpecialist(r.Context(), id, body)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeData(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := s.service.DeleteSpecialist(r.Context(), id); err != nil {
			writeMappedError(w, err)
			return
		}
		writeData(w, http.StatusOK, map[string]any{"id": id})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	}
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{
		"success": true,
		"data":    data,
	})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"success":   false,
		"errorCode": code,
		"message":   message,
	})
}

func writeMappedError(w http.ResponseWriter, err error) {
	status, code, message := mapError(err)
	writeError(w, status, code, message)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR", "Server error"
}
