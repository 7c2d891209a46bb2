package ngsi

// IsPattern values are strings on the NGSIv1 wire, not booleans.
const (
	PatternFalse = "false"
	PatternTrue  = "true"
)

// UpdateActionAppend is the updateAction used for attribute pushes.
const UpdateActionAppend = "APPEND"

// Attribute is a single attribute as it appears on the wire: name, type and
// an arbitrary JSON value. Metadatas carry wire-only decoration that the
// agent discards when translating towards a device handler.
type Attribute struct {
	Name      string     `json:"name"`
	Type      string     `json:"type,omitempty"`
	Value     any        `json:"value,omitempty"`
	Metadatas []Metadata `json:"metadatas,omitempty"`
}

// Metadata is an NGSIv1 attribute metadata entry.
type Metadata struct {
	Name  string `json:"name"`
	Type  string `json:"type,omitempty"`
	Value any    `json:"value,omitempty"`
}

// ContextElement is an entity with its attribute list, as used in
// updateContext requests and in all response envelopes.
type ContextElement struct {
	Type       string      `json:"type"`
	IsPattern  string      `json:"isPattern"`
	ID         string      `json:"id"`
	Attributes []Attribute `json:"attributes,omitempty"`
}

// EntityRef identifies an entity without attributes, as used in
// queryContext and registerContext requests.
type EntityRef struct {
	Type      string `json:"type"`
	IsPattern string `json:"isPattern"`
	ID        string `json:"id"`
}

// StatusCode is the per-entity (or request-level) NGSIv1 status.
type StatusCode struct {
	Code         string `json:"code"`
	ReasonPhrase string `json:"reasonPhrase"`
	Details      string `json:"details,omitempty"`
}

// ContextResponse pairs a context element with its processing status.
// Every entity in a batch gets its own ContextResponse; a failure on one
// never collapses the whole envelope.
type ContextResponse struct {
	ContextElement ContextElement `json:"contextElement"`
	StatusCode     StatusCode     `json:"statusCode"`
}

// UpdateContextRequest is the body of POST /NGSI10/updateContext.
type UpdateContextRequest struct {
	ContextElements []ContextElement `json:"contextElements"`
	UpdateAction    string           `json:"updateAction"`
}

// UpdateContextResponse echoes each processed entity with its status.
type UpdateContextResponse struct {
	ContextResponses []ContextResponse `json:"contextResponses"`
}

// QueryContextRequest is the body of POST /NGSI10/queryContext.
type QueryContextRequest struct {
	Entities   []EntityRef `json:"entities"`
	Attributes []string    `json:"attributes,omitempty"`
}

// QueryContextResponse carries one ContextResponse per resolved entity.
// ErrorCode is set instead when the whole query failed (e.g. malformed).
type QueryContextResponse struct {
	ContextResponses []ContextResponse `json:"contextResponses,omitempty"`
	ErrorCode        *StatusCode       `json:"errorCode,omitempty"`
}

// NotificationRequest is the body of POST /notification: a subscription
// notification pushed by an external source. It is translated into the same
// update path as updateContext.
type NotificationRequest struct {
	SubscriptionID   string            `json:"subscriptionId"`
	Originator       string            `json:"originator"`
	ContextResponses []ContextResponse `json:"contextResponses"`
}

// RegistrationAttribute is an attribute declaration inside a registerContext
// request. IsDomain is always "false" for device attributes.
type RegistrationAttribute struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsDomain string `json:"isDomain"`
}

// ContextRegistration declares, for a set of entities, the attributes this
// agent can provide and the callback URL the broker should use.
type ContextRegistration struct {
	Entities             []EntityRef             `json:"entities"`
	Attributes           []RegistrationAttribute `json:"attributes,omitempty"`
	ProvidingApplication string                  `json:"providingApplication"`
}

// RegisterContextRequest is the body of POST /NGSI9/registerContext.
// RegistrationID is set on renewals so the broker updates the existing
// registration instead of creating a second one.
type RegisterContextRequest struct {
	ContextRegistrations []ContextRegistration `json:"contextRegistrations"`
	Duration             string                `json:"duration,omitempty"`
	RegistrationID       string                `json:"registrationId,omitempty"`
}

// RegisterContextResponse is the broker's answer to registerContext.
type RegisterContextResponse struct {
	RegistrationID string      `json:"registrationId"`
	Duration       string      `json:"duration,omitempty"`
	ErrorCode      *StatusCode `json:"errorCode,omitempty"`
}

// Common status codes used in response envelopes.

// StatusOK is the per-entity success status.
func StatusOK() StatusCode {
	return StatusCode{Code: "200", ReasonPhrase: "OK"}
}

// StatusNotFound marks an entity whose device is unknown to the registry.
func StatusNotFound() StatusCode {
	return StatusCode{Code: "404", ReasonPhrase: "No context element found"}
}

// StatusBadRequest marks an entity rejected by validation.
func StatusBadRequest(details string) StatusCode {
	return StatusCode{Code: "400", ReasonPhrase: "Bad Request", Details: details}
}

// StatusHandlerNotImplemented marks a request that reached a dispatch path
// with no handler installed. Distinct from device-level errors so operators
// can tell a misbehaving device from an unwired agent.
func StatusHandlerNotImplemented() StatusCode {
	return StatusCode{Code: "501", ReasonPhrase: "Handler not implemented"}
}

// StatusInternalError marks an entity whose handler returned an error.
func StatusInternalError(details string) StatusCode {
	return StatusCode{Code: "500", ReasonPhrase: "Internal Server Error", Details: details}
}
