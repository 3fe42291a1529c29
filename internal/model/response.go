package model

// Envelope is the uniform response wrapper for every endpoint: status is
// true for success, message is human-readable, data carries the payload and
// errors the failure detail. Data and Errors are mutually exclusive.
type Envelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

// TokenPair is the access/refresh pair returned by login, register, and
// token obtain.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// AuthPayload is the data object for register/login/token responses.
type AuthPayload struct {
	User   PublicUser `json:"user"`
	Tokens TokenPair  `json:"tokens"`
}
