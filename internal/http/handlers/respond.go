package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/trungnamdev/authapi/internal/apperr"
)

// ErrorResponse is the single error body shape for every failure:
// a list of violated rules, each optionally tied to a field.
type ErrorResponse struct {
	Errors []apperr.FieldError `json:"errors"`
}

// RespondError maps an error's classification to a transport status.
// The mapping is a pure function of the kind: validation 400, not found
// 404, anything else 403. Untagged errors never leak their text.
func RespondError(ctx *gin.Context, err error) {
	status := http.StatusForbidden

	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	}

	ctx.JSON(status, ErrorResponse{Errors: apperr.FieldsOf(err)})
}

// RespondInternal is for failures the boundary refuses to classify at all
// (panics land here via the recovery handler).
func RespondInternal(ctx *gin.Context) {
	ctx.JSON(http.StatusInternalServerError, ErrorResponse{
		Errors: []apperr.FieldError{{Message: "Something went wrong."}},
	})
}
