package bwcdkutil

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
)

// RegionalConstructor creates the network, database and service of one region in a given stack.
// It returns the regional construct that will be passed to the peering constructor of the same region.
type RegionalConstructor[R any] func(stack awscdk.Stack) R

// PeeringConstructor creates one side of the inter-region VPC peering.
// It receives the regional construct from the same region.
type PeeringConstructor[R any] func(stack awscdk.Stack, regional R)

// GlobalConstructor creates the resources that front both regions. It is only
// called when global routing uses an accelerator.
type GlobalConstructor func(stack awscdk.Stack)

// AppConfig configures the CDK app setup.
type AppConfig struct {
	// Prefix for context keys (e.g., "drs-" for "drs-qualifier", "drs-primary-region", etc.)
	Prefix string
	// Description is prepended to every stack description.
	Description string
}

// Stacks holds the stacks created by SetupApp.
type Stacks struct {
	PrimaryRegional   awscdk.Stack
	SecondaryRegional awscdk.Stack
	PrimaryPeering    awscdk.Stack
	SecondaryPeering  awscdk.Stack
	// Global is nil when global routing uses DNS failover.
	Global awscdk.Stack
}

// SetupApp configures a CDK app with the stacks of a two-region active/standby deployment.
//
// It creates:
//  1. The primary regional stack, which creates the global database
//  2. The secondary regional stack (dependent on primary), which joins it
//  3. The primary peering stack, the requester (dependent on both regional stacks)
//  4. The secondary peering stack, the accepter (dependent on primary peering)
//  5. The global stack in the primary region (dependent on both regional stacks),
//     only when global routing uses an accelerator
//
// The type parameter R represents the regional construct type returned by RegionalConstructor.
// SetupApp validates all context values upfront and panics with a clear error message
// if any required values are missing or invalid.
func SetupApp[R any](
	app awscdk.App,
	cfg AppConfig,
	newRegional RegionalConstructor[R],
	newPeering PeeringConstructor[R],
	newGlobal GlobalConstructor,
) *Stacks {
	// Validate all context values upfront and store in construct tree
	config, err := NewConfig(app, cfg)
	if err != nil {
		panic(err)
	}
	StoreConfig(app, config)

	stacks := &Stacks{}

	stacks.PrimaryRegional = NewStackFromConfig(app, config, config.PrimaryRegion, StackKindRegional)
	primary := newRegional(stacks.PrimaryRegional)

	stacks.SecondaryRegional = NewStackFromConfig(app, config, config.SecondaryRegion, StackKindRegional)
	secondary := newRegional(stacks.SecondaryRegional)
	stacks.SecondaryRegional.AddDependency(stacks.PrimaryRegional,
		jsii.String("Global database primary cluster must exist before the secondary joins"))

	stacks.PrimaryPeering = NewStackFromConfig(app, config, config.PrimaryRegion, StackKindPeering)
	newPeering(stacks.PrimaryPeering, primary)
	stacks.PrimaryPeering.AddDependency(stacks.PrimaryRegional,
		jsii.String("Requester VPC must exist"))
	stacks.PrimaryPeering.AddDependency(stacks.SecondaryRegional,
		jsii.String("Accepter VPC must exist"))

	stacks.SecondaryPeering = NewStackFromConfig(app, config, config.SecondaryRegion, StackKindPeering)
	newPeering(stacks.SecondaryPeering, secondary)
	stacks.SecondaryPeering.AddDependency(stacks.PrimaryPeering,
		jsii.String("Peering connection must be requested first"))

	if config.UsesAccelerator() {
		stacks.Global = NewStackFromConfig(app, config, config.PrimaryRegion, StackKindGlobal)
		newGlobal(stacks.Global)
		stacks.Global.AddDependency(stacks.PrimaryRegional,
			jsii.String("Primary load balancer must exist"))
		stacks.Global.AddDependency(stacks.SecondaryRegional,
			jsii.String("Secondary load balancer must exist"))
	}

	return stacks
}
