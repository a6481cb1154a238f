package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

const (
	codeBadRequest       = "bad_request"
	codeUnauthorized     = "unauthorized"
	codeForbidden        = "forbidden"
	codeNotFound         = "not_found"
	codeMethodNotAllowed = "method_not_allowed"
	codeConflict         = "conflict"
	codeInternalError    = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  codeFor(status),
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return codeBadRequest
	case http.StatusUnauthorized:
		return codeUnauthorized
	case http.StatusForbidden:
		return codeForbidden
	case http.StatusNotFound:
		return codeNotFound
	case http.StatusMethodNotAllowed:
		return codeMethodNotAllowed
	case http.StatusConflict:
		return codeConflict
	default:
		return codeInternalError
	}
}

// statusFor переводит ошибку сервиса в HTTP статус. Сервисы возвращают
// ошибки валидации и прав листовыми, а инфраструктурные заворачивают
// через %w, поэтому обёрнутая ошибка всегда означает 500.
func statusFor(err error) int {
	if errors.Unwrap(err) != nil {
		return http.StatusInternalServerError
	}

	msg := err.Error()
	switch {
	case strings.HasSuffix(msg, "not found"):
		return http.StatusNotFound
	case strings.Contains(msg, "not allowed") || strings.Contains(msg, "not in the room"):
		return http.StatusForbidden
	case strings.Contains(msg, "deadline passed") || strings.Contains(msg, "read-only"):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// nonNil заменяет nil-срез пустым, чтобы клиент получил [], а не null
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
