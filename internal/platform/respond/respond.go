// Package respond junta los helpers de respuesta HTTP que antes estaban
// duplicados en cada handler (pets/events/grants).
package respond

import (
	"encoding/json"
	"net/http"
)

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error mantiene el formato text/plain de http.Error que ya consumen los clientes.
func Error(w http.ResponseWriter, status int, msg string) {
	http.Error(w, msg, status)
}

func Unauthorized(w http.ResponseWriter) { Error(w, http.StatusUnauthorized, "unauthorized") }
func Forbidden(w http.ResponseWriter)    { Error(w, http.StatusForbidden, "forbidden") }
func Internal(w http.ResponseWriter)     { Error(w, http.StatusInternalServerError, "internal error") }
