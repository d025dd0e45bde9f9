package http

import (
	"encoding/json"
	"net/http"
)

// Envelope é o formato único de resposta da API: exatamente um entre
// data e error é não-nulo, para o app distinguir sucesso de falha sem
// olhar o status HTTP.
type Envelope struct {
	Data  any        `json:"data"`
	Error *ErrorBody `json:"error"`
}

// ErrorBody descreve falhas normalizadas consumidas pelo app.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// WriteJSON escreve a resposta de sucesso envelopada.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, Envelope{Data: data})
}

// WriteError escreve a resposta de erro envelopada.
func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	writeEnvelope(w, status, Envelope{
		Error: &ErrorBody{Code: code, Message: message, Details: details},
	})
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
