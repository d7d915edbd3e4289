package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/freeeve/orderdesk/internal/engine"
	"github.com/freeeve/orderdesk/internal/selection"
	"github.com/freeeve/orderdesk/internal/service"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	data := map[string]string{"name": "test", "value": "42"}
	writeJSON(rec, http.StatusOK, data)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	ct := rec.Header().Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("expected Content-Type=application/json, got %s", ct)
	}

	var result map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result["name"] != "test" || result["value"] != "42" {
		t.Errorf("unexpected body: %v", result)
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, http.StatusBadRequest, "missing field")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	var result map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result["error"] != "missing field" {
		t.Errorf("expected error=missing field, got %s", result["error"])
	}
}

func TestDecodeJSON(t *testing.T) {
	body := `{"name":"alice","age":30}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var data struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}
	if err := decodeJSON(req, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Name != "alice" {
		t.Errorf("expected name=alice, got %s", data.Name)
	}
	if data.Age != 30 {
		t.Errorf("expected age=30, got %d", data.Age)
	}
}

func TestDecodeJSONInvalidBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("not json"))
	var data struct{}
	if err := decodeJSON(req, &data); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestDecodeJSONEmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	var data struct{}
	if err := decodeJSON(req, &data); err == nil {
		t.Error("expected error for empty body")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"empty region", selection.ErrNoUnitAtRegion, http.StatusOK},
		{"illegal destination", fmt.Errorf("%w: A PAR - NTH", selection.ErrIllegalDestination), http.StatusUnprocessableEntity},
		{"no selection", selection.ErrNoSelection, http.StatusUnprocessableEntity},
		{"unknown region", fmt.Errorf("%w: XYZ", service.ErrUnknownRegion), http.StatusUnprocessableEntity},
		{"unknown party", fmt.Errorf("%w: ATLANTIS", service.ErrUnknownParty), http.StatusNotFound},
		{"unknown action", errUnknownAction, http.StatusBadRequest},
		{"engine rejection", &engine.RejectionError{Op: "setorders", Party: "FRANCE", Reason: "bad order"}, http.StatusConflict},
		{"transport", errors.New("adjudicator: timeout"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
