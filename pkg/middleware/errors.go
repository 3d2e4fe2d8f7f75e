package middleware

import (
	"net/http"

	"github.com/MeronDaniel/E-commerce-project/pkg/httputil"
)

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	httputil.WriteJSON(w, status, httputil.ErrorBody{Error: message, Code: code})
}
