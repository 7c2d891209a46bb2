package ngsi

import (
	"reflect"
	"testing"

	"github.com/ngsilink/iotagent-core/internal/device"
)

func TestToDeviceAttributes(t *testing.T) {
	el := ContextElement{
		Type:      "Light",
		IsPattern: "false",
		ID:        "light1",
		Attributes: []Attribute{
			{
				Name:  "dimming",
				Type:  "Percentage",
				Value: float64(12),
				Metadatas: []Metadata{
					{Name: "TimeInstant", Type: "ISO8601", Value: "2026-08-28T10:00:00Z"},
				},
			},
			{Name: "note", Value: "hello"},
		},
	}

	got := ToDeviceAttributes(el)

	want := []device.Attribute{
		{Name: "dimming", Type: "Percentage", Value: float64(12)},
		{Name: "note", Value: "hello"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ToDeviceAttributes() = %+v, want %+v", got, want)
	}
}

func TestToDeviceAttributesEmpty(t *testing.T) {
	if got := ToDeviceAttributes(ContextElement{ID: "light1", Type: "Light"}); got != nil {
		t.Errorf("expected nil for element without attributes, got %+v", got)
	}
}

func TestToWireEntity(t *testing.T) {
	values := []device.Attribute{
		{Name: "dimming", Type: "Percentage", Value: float64(19)},
	}

	got := ToWireEntity("light1", "Light", values)

	if got.ID != "light1" || got.Type != "Light" {
		t.Errorf("unexpected identity: %q/%q", got.ID, got.Type)
	}
	if got.IsPattern != PatternFalse {
		t.Errorf("IsPattern = %q, want %q", got.IsPattern, PatternFalse)
	}
	if len(got.Attributes) != 1 || got.Attributes[0].Name != "dimming" || got.Attributes[0].Value != float64(19) {
		t.Errorf("unexpected attributes: %+v", got.Attributes)
	}
}

// Round-trip: wire -> device -> wire reproduces id, type and attribute set.
func TestTranslationRoundTrip(t *testing.T) {
	original := ContextElement{
		Type:      "Light",
		IsPattern: "false",
		ID:        "light1",
		Attributes: []Attribute{
			{Name: "dimming", Type: "Percentage", Value: float64(12)},
			{Name: "pressure", Type: "Hgmm", Value: float64(720)},
		},
	}

	got := ToWireEntity(original.ID, original.Type, ToDeviceAttributes(original))

	if !reflect.DeepEqual(got, original) {
		t.Errorf("round trip changed entity:\ngot  %+v\nwant %+v", got, original)
	}
}

func TestRegistrationAttributes(t *testing.T) {
	defs := []device.AttributeDefinition{
		{Name: "temperature", Type: "centigrades"},
		{Name: "switch", Type: "command"},
	}

	got := RegistrationAttributes(defs)

	if len(got) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(got))
	}
	for i, attr := range got {
		if attr.Name != defs[i].Name || attr.Type != defs[i].Type {
			t.Errorf("attribute %d = %+v, want %+v", i, attr, defs[i])
		}
		if attr.IsDomain != "false" {
			t.Errorf("attribute %d IsDomain = %q, want \"false\"", i, attr.IsDomain)
		}
	}

	if RegistrationAttributes(nil) != nil {
		t.Error("expected nil for empty declaration list")
	}
}
