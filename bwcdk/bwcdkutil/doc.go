// Package bwcdkutil provides utilities for two-region disaster-recovery CDK applications in Go.
//
// # Quick Start
//
// Use [SetupApp] to configure the primary and secondary regions of a deployment:
//
//	func main() {
//	    defer jsii.Close()
//	    app := awscdk.NewApp(nil)
//
//	    bwcdkutil.SetupApp(app, bwcdkutil.AppConfig{Prefix: "drs-"},
//	        func(stack awscdk.Stack) *Regional { return NewRegional(stack) },
//	        func(stack awscdk.Stack, regional *Regional) { NewPeering(stack, regional) },
//	        func(stack awscdk.Stack) { NewGlobal(stack) },
//	    )
//
//	    app.Synth(nil)
//	}
//
// # CDK Context Configuration
//
// The package reads configuration from CDK context (cdk.json). With prefix "drs-":
//
//	{
//	  "drs-qualifier": "drs",
//	  "drs-service-name": "shop",
//	  "drs-hosted-zone-name": "example.com",
//	  "drs-primary-region": "ap-northeast-1",
//	  "drs-secondary-region": "ap-northeast-3",
//	  "drs-cidr-ap-northeast-1": "10.0.0.0/16",
//	  "drs-cidr-ap-northeast-3": "10.1.0.0/16",
//	  "drs-azs-ap-northeast-1": ["ap-northeast-1a", "ap-northeast-1c"],
//	  "drs-azs-ap-northeast-3": ["ap-northeast-3a", "ap-northeast-3c"],
//	  "drs-global-routing": "accelerator"
//	}
//
// Optional keys: "hosted-zone-id", "account", "area-{region}",
// "global-database-identifier", "user-data-dir" and "session-table".
//
// # Stack Creation Order
//
// [SetupApp] creates stacks with the following dependency order:
//  1. Primary regional stack
//  2. Secondary regional stack (depends on primary regional)
//  3. Primary peering stack (depends on both regional stacks)
//  4. Secondary peering stack (depends on primary peering)
//  5. Global stack (depends on both regional stacks, accelerator routing only)
//
// # Features
//
//   - [SetupApp]: two-region app orchestration
//   - [NewStackFromConfig]: stack creation with qualifier and region naming
//   - [ResourceName]: service and area scoped physical names
//   - [GlobalResourceName]: names of global resources, for tools outside the app
package bwcdkutil
