package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-miio/internal/accessory"
)

// characteristicValue is the body of a characteristic read or write.
type characteristicValue struct {
	Value any `json:"value"`
}

func (s *Server) findAccessory(id string) (*accessory.Accessory, bool) {
	for _, acc := range s.accessories.Accessories() {
		if acc.UUID == id {
			return acc, true
		}
	}
	return nil, false
}

// handleListAccessories returns a snapshot of every accessory.
func (s *Server) handleListAccessories(w http.ResponseWriter, _ *http.Request) {
	accs := s.accessories.Accessories()
	snaps := make([]accessory.Snapshot, 0, len(accs))
	for _, acc := range accs {
		snaps = append(snaps, acc.Snapshot())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"accessories": snaps,
		"count":       len(snaps),
	})
}

// handleGetAccessory returns one accessory snapshot.
func (s *Server) handleGetAccessory(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.findAccessory(chi.URLParam(r, "id"))
	if !ok {
		writeNotFound(w, "accessory not found")
		return
	}
	writeJSON(w, http.StatusOK, acc.Snapshot())
}

func (s *Server) findCharacteristic(w http.ResponseWriter, r *http.Request) (*accessory.Characteristic, bool) {
	acc, ok := s.findAccessory(chi.URLParam(r, "id"))
	if !ok {
		writeNotFound(w, "accessory not found")
		return nil, false
	}
	st := accessory.ServiceType(chi.URLParam(r, "service"))
	ct := accessory.CharacteristicType(chi.URLParam(r, "type"))
	c, err := acc.Find(st, ct)
	if err != nil {
		writeNotFound(w, "characteristic not found")
		return nil, false
	}
	return c, true
}

// handleGetCharacteristic reads a characteristic through its get handler.
func (s *Server) handleGetCharacteristic(w http.ResponseWriter, r *http.Request) {
	c, ok := s.findCharacteristic(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	v, err := c.Get(ctx)
	if err != nil {
		s.writeCharacteristicError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, characteristicValue{Value: v})
}

// handleSetCharacteristic writes a characteristic and waits for the device.
func (s *Server) handleSetCharacteristic(w http.ResponseWriter, r *http.Request) {
	c, ok := s.findCharacteristic(w, r)
	if !ok {
		return
	}

	var body characteristicValue
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if body.Value == nil {
		writeBadRequest(w, "value is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	if err := c.Set(ctx, body.Value); err != nil {
		s.writeCharacteristicError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, characteristicValue{Value: c.Value()})
}

func (s *Server) writeCharacteristicError(w http.ResponseWriter, err error) {
	status, code := characteristicStatus(err)
	message := err.Error()
	switch code {
	case ErrCodeTimeout:
		message = "device did not answer in time"
	case ErrCodeDevice:
		s.logger.Warn("characteristic request failed", "error", err)
	}
	writeError(w, status, code, message)
}
