package response

var (
	ErrInvalidRequestFormat = ErrorResponse{
		Status:  StatusError,
		Error:   "invalid_request",
		Details: "Invalid request format",
	}

	ErrAuthenticationFailed = ErrorResponse{
		Status:  StatusError,
		Error:   "authentication_failed",
		Details: "Invalid or expired token",
	}

	ErrAuthenticationRequired = ErrorResponse{
		Status:  StatusError,
		Error:   "authentication_required",
		Details: "Sign in to continue",
	}

	ErrAlbumNotFound = ErrorResponse{
		Status:  StatusError,
		Error:   "album_not_found",
		Details: "Album does not exist",
	}

	ErrForbidden = ErrorResponse{
		Status:  StatusError,
		Error:   "forbidden",
		Details: "Album belongs to another user",
	}

	ErrAlbumCreationFailed = ErrorResponse{
		Status:  StatusError,
		Error:   "album_creation_failed",
		Details: "album creation failed",
	}

	ErrInternal = ErrorResponse{
		Status:  StatusError,
		Error:   "internal_error",
		Details: "Something went wrong",
	}
)
