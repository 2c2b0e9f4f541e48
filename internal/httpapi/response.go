package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/rankvault/leaderboard-service/internal/apierrors"
)

// envelope is the wire shape of every response: {code, msg, data?}.
type envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Code: 0, Msg: "ok", Data: data})
}

func writeError(w http.ResponseWriter, err error) {
	apiErr, ok := apierrors.As(err)
	if !ok {
		apiErr = apierrors.DbSomethingWentWrong(err)
	}
	writeJSON(w, apiErr.StatusCode(), envelope{Code: apiErr.Code, Msg: apiErr.Message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
