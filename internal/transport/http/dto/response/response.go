package response

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response оболочка успешного ответа API.
type Response struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse оболочка ошибки: Error машинный код, Details текст для клиента.
type ErrorResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func SuccessResponse(data any) Response {
	return Response{
		Status: StatusSuccess,
		Data:   data,
	}
}

func MessageResponse(message string) Response {
	return Response{
		Status:  StatusSuccess,
		Message: message,
	}
}

func ErrorResponseWithDetails(err, details string) ErrorResponse {
	return ErrorResponse{
		Status:  StatusError,
		Error:   err,
		Details: details,
	}
}

// AlbumCreationFailed ошибка обработки с именем файла, на котором альбом откатан.
func AlbumCreationFailed(filename string) ErrorResponse {
	return ErrorResponseWithDetails(ErrAlbumCreationFailed.Error, ErrAlbumCreationFailed.Details+": "+filename)
}
