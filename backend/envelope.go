package backend

import (
	"encoding/json"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/helioapps/purchasekit/errs"
)

// Meta carries request bookkeeping echoed back by the backend.
type Meta struct {
	RequestID string `json:"requestId"`
}

// APIError is the structured error half of the envelope.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope[T any] struct {
	Meta  *Meta     `json:"meta"`
	Data  *T        `json:"data"`
	Error *APIError `json:"error"`
}

func decodeEnvelope[T any](resp *resty.Response) (*T, error) {
	if resp.RawResponse == nil {
		return nil, errs.New(errs.DomainBackend, errs.CodeNoResponse, "no response received")
	}

	status := resp.StatusCode()
	body := resp.Body()

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, errs.Unauthorized()
	}

	var env envelope[T]
	if len(body) > 0 {
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, errs.DecodeFailure(errors.Wrapf(err, "status %d", status))
		}
	}

	if status < 200 || status > 299 {
		message := http.StatusText(status)
		if env.Error != nil {
			message = env.Error.Message
		}
		return nil, errs.Newf(errs.DomainBackend, errs.CodeUnexpectedStatus,
			"unexpected status %d: %s", status, message)
	}

	if env.Error != nil {
		return nil, errs.Newf(errs.DomainBackend, errs.CodeUnexpectedStatus,
			"backend error %s: %s", env.Error.Code, env.Error.Message)
	}

	// A success without data is a malformed envelope, not a success.
	if env.Data == nil {
		return nil, errs.DecodeFailure(errors.New("missing data field in 2xx envelope"))
	}

	return env.Data, nil
}
