package delta

import (
	"bytes"
	"encoding/json"
)

// The venue answers with more than one JSON shape for the same endpoint:
// sometimes a bare list, sometimes an envelope {success, result} or
// {success, error}. Responses are decoded once, here, into a closed variant;
// every adapter operation pattern-matches on the variant instead of
// re-deriving the shape ad hoc.

type shape int

const (
	shapeUnrecognized shape = iota
	shapeBareList
	shapeSuccess
	shapeFailure
)

// venueResponse is the decoded variant of a raw venue response body.
type venueResponse struct {
	kind   shape
	list   []json.RawMessage // populated for shapeBareList
	result json.RawMessage   // populated for shapeSuccess (may itself be a list)
	errMsg string            // populated for shapeFailure
}

// rawEnvelope mirrors the venue's envelope; Success is a pointer so that a
// missing flag is distinguishable from success=false.
type rawEnvelope struct {
	Success *bool           `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   *ErrorDetail    `json:"error"`
}

// decodeVenueResponse classifies a raw response body.
func decodeVenueResponse(body []byte) venueResponse {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return venueResponse{kind: shapeUnrecognized}
	}

	if trimmed[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return venueResponse{kind: shapeUnrecognized}
		}
		return venueResponse{kind: shapeBareList, list: list}
	}

	var env rawEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return venueResponse{kind: shapeUnrecognized}
	}

	switch {
	case env.Success != nil && *env.Success:
		return venueResponse{kind: shapeSuccess, result: env.Result}
	case env.Success != nil:
		msg := "venue reported failure"
		if env.Error != nil && env.Error.Message != "" {
			msg = env.Error.Message
		}
		return venueResponse{kind: shapeFailure, errMsg: msg}
	case env.Result != nil:
		// No success flag but a result key: the venue omits the flag on some
		// endpoints; treat as success.
		return venueResponse{kind: shapeSuccess, result: env.Result}
	default:
		return venueResponse{kind: shapeUnrecognized}
	}
}

// resultList views a success envelope's result as a list.
// ok is false when the result is not list-shaped.
func (v venueResponse) resultList() (list []json.RawMessage, ok bool) {
	if v.kind == shapeBareList {
		return v.list, true
	}
	if v.kind != shapeSuccess || len(v.result) == 0 {
		return nil, false
	}
	if err := json.Unmarshal(v.result, &list); err != nil {
		return nil, false
	}
	return list, true
}

// resultAny returns the success payload as a decoded JSON value for embedding
// in a Result envelope.
func (v venueResponse) resultAny() any {
	switch v.kind {
	case shapeBareList:
		return v.list
	case shapeSuccess:
		if len(v.result) == 0 {
			return nil
		}
		var out any
		if err := json.Unmarshal(v.result, &out); err != nil {
			return nil
		}
		return out
	default:
		return nil
	}
}
