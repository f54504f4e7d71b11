package bonsai

// Wire types of the proving service REST API.

type uploadResponse struct {
	URL  string `json:"url"`
	UUID string `json:"uuid,omitempty"`
}

type createSessionRequest struct {
	Image string `json:"img"`
	Input string `json:"input"`
}

type createSessionResponse struct {
	UUID string `json:"uuid"`
}

type sessionStatusResponse struct {
	Status     string `json:"status"`
	ReceiptURL string `json:"receipt_url,omitempty"`
	ErrorMsg   string `json:"error_msg,omitempty"`
}

// HTTPError is returned for any response outside the 2xx range.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return e.Method + " " + e.URL + ": " + httpStatus(e.StatusCode)
	}
	return e.Method + " " + e.URL + ": " + httpStatus(e.StatusCode) + ": " + e.Body
}
