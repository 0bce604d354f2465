package verifydto

// DomainError is the wire form of a rejected request.
type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "verify service error"
}

const (
	CodeBadRequest       = "bad_request"
	CodeMissingField     = "missing_field"
	CodeUnknownGame      = "unknown_game"
	CodeInvalidTeamSize  = "invalid_team_size"
	CodeImageDecode      = "image_decode"
	CodePayloadTooLarge  = "payload_too_large"
	CodeIncomplete       = "submissions_incomplete"
	CodeStoreUnavailable = "store_unavailable"
	CodeNotFound         = "not_found"
	CodeInternal         = "internal"
)
