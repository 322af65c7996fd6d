package bwcdkutil

import (
	"fmt"

	"github.com/aws/constructs-go/constructs/v10"
	"github.com/iancoleman/strcase"
)

// Casing specifies how to format the identifier string.
type Casing int

const (
	// CasingCamel formats as CamelCase (e.g., "ShopTokyoAlbSg").
	CasingCamel Casing = iota
	// CasingLowerCamel formats as lowerCamelCase (e.g., "shopTokyoAlbSg").
	CasingLowerCamel
	// CasingSnake formats as snake_case (e.g., "shop_tokyo_alb_sg").
	CasingSnake
	// CasingScreamingSnake formats as SCREAMING_SNAKE_CASE (e.g., "SHOP_TOKYO_ALB_SG").
	CasingScreamingSnake
	// CasingKebab formats as kebab-case (e.g., "shop-tokyo-alb-sg").
	CasingKebab
	// CasingScreamingKebab formats as SCREAMING-KEBAB-CASE (e.g., "SHOP-TOKYO-ALB-SG").
	CasingScreamingKebab
)

// ResourceName generates a resource identifier prefixed with the service name and
// the area of the stack's region. The label is a free-form string that the caller provides.
//
// The format is: "{service}-{area}-{label}" converted to the specified casing.
//
// For global stacks, which span both regions, the format is: "{service}-{label}".
//
// Examples with service "shop", area "tokyo", label "AlbSg":
//   - CasingCamel:          "ShopTokyoAlbSg"
//   - CasingKebab:          "shop-tokyo-alb-sg"
//   - CasingScreamingSnake: "SHOP_TOKYO_ALB_SG"
func ResourceName(scope constructs.Construct, label string, casing Casing) string {
	service := ServiceName(scope)
	if KindOf(scope) == StackKindGlobal {
		return GlobalResourceName(service, label, casing)
	}

	return regionalResourceName(service, Area(scope), label, casing)
}

func regionalResourceName(service, area, label string, casing Casing) string {
	return applyCasing(fmt.Sprintf("%s-%s-%s", service, area, label), casing)
}

// GlobalResourceName is the name ResourceName produces in a global stack. Tools that
// run outside a CDK app use it to find global resources by name.
func GlobalResourceName(service, label string, casing Casing) string {
	return applyCasing(fmt.Sprintf("%s-%s", service, label), casing)
}

func applyCasing(s string, casing Casing) string {
	switch casing {
	case CasingCamel:
		return strcase.ToCamel(s)
	case CasingLowerCamel:
		return strcase.ToLowerCamel(s)
	case CasingSnake:
		return strcase.ToSnake(s)
	case CasingScreamingSnake:
		return strcase.ToScreamingSnake(s)
	case CasingKebab:
		return strcase.ToKebab(s)
	case CasingScreamingKebab:
		return strcase.ToScreamingKebab(s)
	default:
		return strcase.ToCamel(s)
	}
}
