package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"message": "hello"}

	writeJSON(w, http.StatusOK, data)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	contentType := w.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", contentType)
	}

	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if result["message"] != "hello" {
		t.Errorf("Expected message 'hello', got '%s'", result["message"])
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid input")

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	var result ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if result.Error.Code != ErrCodeInvalidRequest {
		t.Errorf("Expected code %s, got %s", ErrCodeInvalidRequest, result.Error.Code)
	}
	if result.Error.Message != "Invalid input" {
		t.Errorf("Expected message 'Invalid input', got '%s'", result.Error.Message)
	}
	if result.Error.Details != nil {
		t.Errorf("Expected no details, got %v", result.Error.Details)
	}
}

func TestWriteInternalError_DebugCause(t *testing.T) {
	tests := []struct {
		name      string
		debug     bool
		wantCause bool
	}{
		{"production hides cause", false, false},
		{"debug shows cause", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Server{config: &Config{Debug: tt.debug}}
			w := httptest.NewRecorder()

			s.writeInternalError(w, "stream setup failed", errors.New("flusher missing"))

			if w.Code != http.StatusInternalServerError {
				t.Fatalf("Expected 500, got %d", w.Code)
			}

			var result ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}

			cause, ok := result.Error.Details["cause"]
			if ok != tt.wantCause {
				t.Fatalf("cause present = %v, want %v", ok, tt.wantCause)
			}
			if ok && cause != "flusher missing" {
				t.Errorf("unexpected cause %v", cause)
			}
		})
	}
}
