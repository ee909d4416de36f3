package node

import (
	"fmt"
	"strings"

	"github.com/roach88/scenecore/internal/field"
)

// Category is the role of an interface on a node.
type Category uint8

const (
	CategoryInvalid Category = iota
	CategoryField
	CategoryExposedField
	CategoryEventIn
	CategoryEventOut
)

var categoryNames = [...]string{
	CategoryInvalid:      "<invalid>",
	CategoryField:        "field",
	CategoryExposedField: "exposedField",
	CategoryEventIn:      "eventIn",
	CategoryEventOut:     "eventOut",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("Category(%d)", uint8(c))
}

// ParseCategory resolves "field", "exposedField", "eventIn" or "eventOut".
// The X3D spellings inputOnly, outputOnly, initializeOnly and inputOutput
// are accepted as well.
func ParseCategory(s string) (Category, error) {
	switch s {
	case "field", "initializeOnly":
		return CategoryField, nil
	case "exposedField", "inputOutput":
		return CategoryExposedField, nil
	case "eventIn", "inputOnly":
		return CategoryEventIn, nil
	case "eventOut", "outputOnly":
		return CategoryEventOut, nil
	}
	return CategoryInvalid, fmt.Errorf("unknown interface category %q", s)
}

// Interface is an immutable declaration of one node attribute or event.
type Interface struct {
	Category Category
	Type     field.Type
	Name     string
}

// Convenience constructors.
func FieldOf(name string, t field.Type) Interface {
	return Interface{Category: CategoryField, Type: t, Name: name}
}

func ExposedFieldOf(name string, t field.Type) Interface {
	return Interface{Category: CategoryExposedField, Type: t, Name: name}
}

func EventInOf(name string, t field.Type) Interface {
	return Interface{Category: CategoryEventIn, Type: t, Name: name}
}

func EventOutOf(name string, t field.Type) Interface {
	return Interface{Category: CategoryEventOut, Type: t, Name: name}
}

// String renders the interface in declaration order: "eventIn SFBool set_x".
func (i Interface) String() string {
	return i.Category.String() + " " + i.Type.String() + " " + i.Name
}

// ParseInterface parses the form produced by String.
func ParseInterface(s string) (Interface, error) {
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return Interface{}, fmt.Errorf("interface %q: want \"<category> <type> <name>\"", s)
	}
	cat, err := ParseCategory(parts[0])
	if err != nil {
		return Interface{}, err
	}
	t, err := field.ParseType(parts[1])
	if err != nil {
		return Interface{}, err
	}
	return Interface{Category: cat, Type: t, Name: parts[2]}, nil
}

// IsInput reports whether events can be sent to the interface.
func (i Interface) IsInput() bool {
	return i.Category == CategoryEventIn || i.Category == CategoryExposedField
}

// IsOutput reports whether the interface can emit events.
func (i Interface) IsOutput() bool {
	return i.Category == CategoryEventOut || i.Category == CategoryExposedField
}

// HasStorage reports whether the interface is backed by a field value.
func (i Interface) HasStorage() bool {
	return i.Category == CategoryField || i.Category == CategoryExposedField
}

func (i Interface) validate() error {
	if i.Name == "" {
		return fmt.Errorf("interface has empty name")
	}
	if i.Category == CategoryInvalid || i.Category > CategoryEventOut {
		return fmt.Errorf("interface %q has invalid category", i.Name)
	}
	if !i.Type.Valid() {
		return fmt.Errorf("interface %q has invalid type", i.Name)
	}
	return nil
}

type role uint8

const (
	roleField role = iota
	roleIn
	roleOut
)

type binding struct {
	role role
	name string
}

// bindings are the externally visible names an interface occupies. An
// exposedField x occupies x in every role, set_x as an input and x_changed
// as an output.
func (i Interface) bindings() []binding {
	switch i.Category {
	case CategoryField:
		return []binding{{roleField, i.Name}}
	case CategoryEventIn:
		return []binding{{roleIn, i.Name}}
	case CategoryEventOut:
		return []binding{{roleOut, i.Name}}
	case CategoryExposedField:
		return []binding{
			{roleField, i.Name},
			{roleIn, i.Name},
			{roleIn, "set_" + i.Name},
			{roleOut, i.Name},
			{roleOut, i.Name + "_changed"},
		}
	}
	return nil
}

// nameMatches reports whether the requested interface refers to the
// supported one by name, honoring the implicit names of exposedFields.
func nameMatches(req, sup Interface) bool {
	switch req.Category {
	case CategoryField:
		return (sup.Category == CategoryField || sup.Category == CategoryExposedField) && sup.Name == req.Name
	case CategoryExposedField:
		return sup.Category == CategoryExposedField && sup.Name == req.Name
	case CategoryEventIn:
		switch sup.Category {
		case CategoryEventIn:
			return sup.Name == req.Name
		case CategoryExposedField:
			return req.Name == "set_"+sup.Name || req.Name == sup.Name
		}
	case CategoryEventOut:
		switch sup.Category {
		case CategoryEventOut:
			return sup.Name == req.Name
		case CategoryExposedField:
			return req.Name == sup.Name+"_changed" || req.Name == sup.Name
		}
	}
	return false
}
