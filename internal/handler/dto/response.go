package dto

// APIResponse is the success envelope every endpoint returns.
type APIResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func OK(data any) APIResponse {
	return APIResponse{Success: true, Data: data}
}

// APIErrorResponse is the failure envelope. Details is only populated
// for upstream passthrough errors.
type APIErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}
