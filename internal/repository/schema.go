package repository

import (
	"fmt"
	"strings"
)

// ElementTable names the element table and its fixed columns.
type ElementTable struct {
	Name        string
	ID          string
	ContainerID string
}

// ContainerTable names the container table.
type ContainerTable struct {
	Name string
	ID   string
}

// PropertyTable names the property definition table.
type PropertyTable struct {
	Name        string
	ID          string
	Code        string
	Type        string
	ContainerID string
}

// PropertyValueTable names the element property value table.
type PropertyValueTable struct {
	Name       string
	ID         string
	PropertyID string
	ElementID  string
	Value      string
}

// PropertyEnumTable names the enum option table.
type PropertyEnumTable struct {
	Name       string
	ID         string
	PropertyID string
	Value      string
	Sort       string
}

// Schema maps the logical element model onto physical tables.
type Schema struct {
	Elements       ElementTable
	Containers     ContainerTable
	Properties     PropertyTable
	PropertyValues PropertyValueTable
	PropertyEnums  PropertyEnumTable
}

// GenericSchema is the default layout.
func GenericSchema() Schema {
	return Schema{
		Elements:   ElementTable{Name: "elements", ID: "id", ContainerID: "container_id"},
		Containers: ContainerTable{Name: "containers", ID: "id"},
		Properties: PropertyTable{
			Name:        "properties",
			ID:          "id",
			Code:        "code",
			Type:        "property_type",
			ContainerID: "container_id",
		},
		PropertyValues: PropertyValueTable{
			Name:       "element_property_values",
			ID:         "id",
			PropertyID: "property_id",
			ElementID:  "element_id",
			Value:      "value",
		},
		PropertyEnums: PropertyEnumTable{
			Name:       "property_enums",
			ID:         "id",
			PropertyID: "property_id",
			Value:      "value",
			Sort:       "sort",
		},
	}
}

// BitrixSchema reads an information block database directly.
func BitrixSchema() Schema {
	return Schema{
		Elements:   ElementTable{Name: "b_iblock_element", ID: "ID", ContainerID: "IBLOCK_ID"},
		Containers: ContainerTable{Name: "b_iblock", ID: "ID"},
		Properties: PropertyTable{
			Name:        "b_iblock_property",
			ID:          "ID",
			Code:        "CODE",
			Type:        "PROPERTY_TYPE",
			ContainerID: "IBLOCK_ID",
		},
		PropertyValues: PropertyValueTable{
			Name:       "b_iblock_element_property",
			ID:         "ID",
			PropertyID: "IBLOCK_PROPERTY_ID",
			ElementID:  "IBLOCK_ELEMENT_ID",
			Value:      "VALUE",
		},
		PropertyEnums: PropertyEnumTable{
			Name:       "b_iblock_property_enum",
			ID:         "ID",
			PropertyID: "PROPERTY_ID",
			Value:      "VALUE",
			Sort:       "SORT",
		},
	}
}

// SchemaByName resolves a configured preset name.
func SchemaByName(name string) (Schema, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "generic":
		return GenericSchema(), nil
	case "bitrix":
		return BitrixSchema(), nil
	default:
		return Schema{}, fmt.Errorf("unknown store schema %q", name)
	}
}

// containerRelations are the dotted prefixes that join the container table.
var containerRelations = map[string]struct{}{
	"container": {},
	"iblock":    {},
}
