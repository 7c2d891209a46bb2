package ngsi

import "github.com/ngsilink/iotagent-core/internal/device"

// ToDeviceAttributes flattens a wire context element's attribute list into
// the agent's device attribute form, preserving name, type and value and
// discarding wire-only metadata.
//
// Attributes outside the device's declared schema are passed through
// unchanged; the schema is advisory towards handlers, not enforcing.
func ToDeviceAttributes(el ContextElement) []device.Attribute {
	if len(el.Attributes) == 0 {
		return nil
	}
	attrs := make([]device.Attribute, 0, len(el.Attributes))
	for _, a := range el.Attributes {
		attrs = append(attrs, device.Attribute{
			Name:  a.Name,
			Type:  a.Type,
			Value: a.Value,
		})
	}
	return attrs
}

// ToWireEntity reconstructs a broker context element from a device identity
// and its attribute values. isPattern is fixed to "false"; a concrete
// device is never a pattern.
func ToWireEntity(id, deviceType string, values []device.Attribute) ContextElement {
	el := ContextElement{
		Type:      deviceType,
		IsPattern: PatternFalse,
		ID:        id,
	}
	if len(values) == 0 {
		return el
	}
	el.Attributes = make([]Attribute, 0, len(values))
	for _, v := range values {
		el.Attributes = append(el.Attributes, Attribute{
			Name:  v.Name,
			Type:  v.Type,
			Value: v.Value,
		})
	}
	return el
}

// RegistrationAttributes converts a type's provided (lazy + command)
// attribute declarations into NGSI9 registration form.
func RegistrationAttributes(defs []device.AttributeDefinition) []RegistrationAttribute {
	if len(defs) == 0 {
		return nil
	}
	attrs := make([]RegistrationAttribute, 0, len(defs))
	for _, d := range defs {
		attrs = append(attrs, RegistrationAttribute{
			Name:     d.Name,
			Type:     d.Type,
			IsDomain: "false",
		})
	}
	return attrs
}
