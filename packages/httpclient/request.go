package httpclient

// Request describes one HTTP request to execute.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// NewRequest creates a request for the given method and absolute URL.
func NewRequest(method, url string) *Request {
	return &Request{
		Method:  method,
		URL:     url,
		Headers: make(map[string]string),
	}
}

// SetHeader sets a header, returning the request for chaining.
func (r *Request) SetHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

// SetBody sets the request body, returning the request for chaining.
func (r *Request) SetBody(body []byte) *Request {
	r.Body = body
	return r
}
