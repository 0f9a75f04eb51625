package models

import (
	"fmt"
	"strings"
)

// FieldKind identifies one selector field of a StoreProfile.
type FieldKind int

const (
	FieldContainer FieldKind = iota
	FieldTitle
	FieldPrice
	FieldImage
	FieldLink
	FieldDescription
)

// FieldKinds lists every kind in form order.
var FieldKinds = []FieldKind{
	FieldContainer,
	FieldTitle,
	FieldPrice,
	FieldImage,
	FieldLink,
	FieldDescription,
}

func (k FieldKind) String() string {
	switch k {
	case FieldContainer:
		return "container"
	case FieldTitle:
		return "title"
	case FieldPrice:
		return "price"
	case FieldImage:
		return "image"
	case FieldLink:
		return "link"
	case FieldDescription:
		return "description"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

// ParseFieldKind maps a field name to its kind. "name" is accepted for title.
func ParseFieldKind(name string) (FieldKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "container":
		return FieldContainer, nil
	case "title", "name":
		return FieldTitle, nil
	case "price":
		return FieldPrice, nil
	case "image":
		return FieldImage, nil
	case "link":
		return FieldLink, nil
	case "description":
		return FieldDescription, nil
	default:
		return 0, fmt.Errorf("unknown field kind %q", name)
	}
}
