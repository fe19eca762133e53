package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "github.com/velora/storefront/pkg/errors"
)

// operation describes the kind of request being classified. Delete and update
// paths disagree on what a 404 means, so the classifier needs to know which
// one produced the response.
type operation int

const (
	opFetch operation = iota
	opCreate
	opUpdate
	opDelete
)

// validationBody is the response body shape the commerce API uses for 422
// rejections.
type validationBody struct {
	Message string `json:"message"`
}

// classify maps a non-2xx commerce API response to the engine error taxonomy:
//
//	401 -> ErrAuthRequired  (session is no longer accepted)
//	404 -> ErrAlreadyDone   on delete paths (idempotent success),
//	       ErrNotFound      on update paths ("item not found")
//	422 -> ErrValidation    carrying the server message when present
//	else -> ErrUnavailable  (generic, state-preserving failure)
//
// resource names the entity for messages; fallback is the message used for a
// 422 without a server-provided one.
func classify(op operation, status int, body []byte, resource, fallback string) error {
	switch status {
	case http.StatusUnauthorized:
		return apperrors.AuthRequired("session is no longer valid")

	case http.StatusNotFound:
		if op == opDelete {
			return apperrors.AlreadyDone(resource)
		}
		return &apperrors.AppError{
			Code:    "NOT_FOUND",
			Message: "item not found",
			Status:  http.StatusNotFound,
			Err:     apperrors.ErrNotFound,
		}

	case http.StatusUnprocessableEntity:
		var vb validationBody
		if err := json.Unmarshal(body, &vb); err == nil && vb.Message != "" {
			return apperrors.Validation(vb.Message)
		}
		return apperrors.Validation(fallback)

	default:
		return apperrors.Unavailable(fmt.Sprintf("commerce api returned status %d", status))
	}
}
