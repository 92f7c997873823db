package domain

// PropertyType is the storage type flag of a property definition.
type PropertyType string

const (
	PropertyTypeString  PropertyType = "S"
	PropertyTypeNumber  PropertyType = "N"
	PropertyTypeList    PropertyType = "L"
	PropertyTypeFile    PropertyType = "F"
	PropertyTypeElement PropertyType = "E"
	PropertyTypeSection PropertyType = "G"
)

// IsEnumerated reports whether stored values are enum option ids.
// Every other flag is treated as a plain value.
func (t PropertyType) IsEnumerated() bool {
	return t == PropertyTypeList
}

// PropertyValueRow is one stored value of a property for an element.
// Several rows may share (PropertyID, RecordID) for multi-valued properties.
type PropertyValueRow struct {
	PropertyID int64
	RecordID   int64
	Value      string
}

// PropertyDefinition describes a property: its external code, type flag and
// the container that owns it.
type PropertyDefinition struct {
	ID          int64
	Code        string
	Type        PropertyType
	ContainerID int64
}

// EnumOption is one selectable value of an enumerated property.
type EnumOption struct {
	ID           int64
	PropertyCode string
	Value        string
}

// Props maps a lowercased property code to its value.
type Props map[string]PropertyValue

// PropsByID maps an element id to its resolved properties.
type PropsByID map[int64]Props
