package bwcdkutil

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// StackKind tells the three kinds of stacks apart. It is the suffix of the stack name.
type StackKind string

const (
	// StackKindRegional holds the network, database and service of one region.
	StackKindRegional StackKind = "Regional"
	// StackKindPeering holds one side of the inter-region VPC peering.
	StackKindPeering StackKind = "Peering"
	// StackKindGlobal holds the resources that front both regions.
	StackKindGlobal StackKind = "Global"
)

const stackKindContextKey = "__bwcdkutil_stack_kind"

// StoreStackKind records the kind of a stack in its context. NewStackFromConfig
// calls this; tests that build stacks by hand may call it directly.
func StoreStackKind(stack awscdk.Stack, kind StackKind) {
	stack.Node().SetContext(jsii.String(stackKindContextKey), string(kind))
}

// KindOf returns the kind of the stack enclosing scope. Stacks created without
// a recorded kind count as regional.
func KindOf(scope constructs.Construct) StackKind {
	val := awscdk.Stack_Of(scope).Node().TryGetContext(jsii.String(stackKindContextKey))
	s, ok := val.(string)
	if !ok || s == "" {
		return StackKindRegional
	}
	return StackKind(s)
}

// Area returns the area name of the region of the enclosing stack.
func Area(scope constructs.Construct) string {
	return RegionSettings(scope).Area
}
