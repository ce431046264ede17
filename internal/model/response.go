package model

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	StatusCode int      `json:"statusCode"`
	Errors     []string `json:"errors"`
}

type PingResponse struct {
	Message string `json:"message"`
}

type RootResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
