package errors

import "net/http"

var (
	ErrEmptyQuery = New(
		"EMPTY_QUERY",
		ClassUsage,
		"query text must be nonempty after trimming",
		http.StatusBadRequest,
	)

	ErrInvalidLimit = New(
		"INVALID_LIMIT",
		ClassUsage,
		"limit out of range",
		http.StatusBadRequest,
	)

	ErrInvalidCoordinates = New(
		"INVALID_COORDINATES",
		ClassUsage,
		"invalid coordinates provided",
		http.StatusBadRequest,
	)

	ErrInvalidShape = New(
		"INVALID_SHAPE",
		ClassUsage,
		"invalid geo_shape filter",
		http.StatusBadRequest,
	)

	ErrFeatureNotFound = New(
		"FEATURE_NOT_FOUND",
		ClassSource,
		"feature not found",
		http.StatusNotFound,
	)

	ErrBackendUnreachable = New(
		"BACKEND_UNREACHABLE",
		ClassTransient,
		"search backend unreachable",
		http.StatusServiceUnavailable,
	)

	ErrBackendPermanent = New(
		"BACKEND_ERROR",
		ClassPermanent,
		"search backend rejected the request",
		http.StatusInternalServerError,
	)

	ErrInvariantViolation = New(
		"INVARIANT_VIOLATION",
		ClassInvariant,
		"internal consistency invariant violated",
		http.StatusInternalServerError,
	)

	ErrInvalidRequest = New(
		"INVALID_REQUEST",
		ClassUsage,
		"invalid request parameters",
		http.StatusBadRequest,
	)

	ErrInternalServer = New(
		"INTERNAL_SERVER_ERROR",
		ClassPermanent,
		"internal server error",
		http.StatusInternalServerError,
	)
)
