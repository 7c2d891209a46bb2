package device

import "time"

// Tenant scopes every registry lookup and every outbound broker call.
// It is carried as request-scoped data, never stored globally.
type Tenant struct {
	Service    string `json:"service"`
	Subservice string `json:"subservice"`
}

// Key returns a map key that uniquely identifies the tenant.
func (t Tenant) Key() string {
	return t.Service + "\x00" + t.Subservice
}

// AttributeDefinition declares a named, typed attribute inside a
// TypeDefinition. Immutable.
type AttributeDefinition struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// TypeDefinition is the declared schema of a device type: which attributes
// are commands (pushed to the device), lazy (pulled on demand from the
// device) and active (pushed by the device). Immutable after catalog load.
type TypeDefinition struct {
	Name     string                `json:"name"`
	Commands []AttributeDefinition `json:"commands"`
	Lazy     []AttributeDefinition `json:"lazy"`
	Active   []AttributeDefinition `json:"active"`
}

// ProvidedAttributes returns the union of lazy and command attributes, in
// declaration order. This is the list advertised to the broker in a
// registration declaration.
func (td TypeDefinition) ProvidedAttributes() []AttributeDefinition {
	if len(td.Lazy) == 0 && len(td.Commands) == 0 {
		return nil
	}
	provided := make([]AttributeDefinition, 0, len(td.Lazy)+len(td.Commands))
	provided = append(provided, td.Lazy...)
	provided = append(provided, td.Commands...)
	return provided
}

// IsCommand reports whether the named attribute is declared as a command.
func (td TypeDefinition) IsCommand(name string) bool {
	for _, c := range td.Commands {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Attribute is the unit exchanged with device handlers in both update and
// query payloads: a name, an optional declared type and an arbitrary value.
type Attribute struct {
	Name  string `json:"name"`
	Type  string `json:"type,omitempty"`
	Value any    `json:"value,omitempty"`
}

// Device is a runtime device record. Its effective attribute schema is
// always derivable from Type plus the tenant's catalog; the record itself
// stays small on purpose.
type Device struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Tenant    Tenant    `json:"tenant"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Copy returns an independent copy of the device so callers can modify it
// without affecting registry state.
func (d *Device) Copy() *Device {
	if d == nil {
		return nil
	}
	cpy := *d
	return &cpy
}
