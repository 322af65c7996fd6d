//nolint:paralleltest // jsii runtime doesn't support parallel tests
package bwcdkutil_test

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkutil"
)

type testRegional struct {
	Region string
}

func validContext() map[string]any {
	return map[string]any{
		"drs-qualifier":           "drs",
		"drs-service-name":        "shop",
		"drs-hosted-zone-name":    "example.com",
		"drs-hosted-zone-id":      "Z0123456789ABC",
		"drs-account":             "123456789012",
		"drs-primary-region":      "ap-northeast-1",
		"drs-secondary-region":    "ap-northeast-3",
		"drs-cidr-ap-northeast-1": "10.0.0.0/16",
		"drs-cidr-ap-northeast-3": "10.1.0.0/16",
		"drs-azs-ap-northeast-1":  []any{"ap-northeast-1a", "ap-northeast-1c"},
		"drs-azs-ap-northeast-3":  []any{"ap-northeast-3a", "ap-northeast-3c"},
	}
}

func TestSetupApp_Accelerator(t *testing.T) {
	defer jsii.Close()

	ctx := validContext()
	app := awscdk.NewApp(&awscdk.AppProps{
		Context: &ctx,
	})

	var regionalCalls []string
	var peeringCalls []string
	globalCalls := 0

	stacks := bwcdkutil.SetupApp(app, bwcdkutil.AppConfig{
		Prefix: "drs-",
	},
		func(stack awscdk.Stack) *testRegional {
			regionalCalls = append(regionalCalls, *stack.Region())
			return &testRegional{Region: *stack.Region()}
		},
		func(stack awscdk.Stack, regional *testRegional) {
			if regional.Region != *stack.Region() {
				t.Errorf("peering stack in %s got regional of %s", *stack.Region(), regional.Region)
			}
			peeringCalls = append(peeringCalls, *stack.Region())
		},
		func(awscdk.Stack) {
			globalCalls++
		},
	)

	wantRegions := []string{"ap-northeast-1", "ap-northeast-3"}
	for i, want := range wantRegions {
		if regionalCalls[i] != want {
			t.Errorf("regional call %d region = %q, want %q", i, regionalCalls[i], want)
		}
		if peeringCalls[i] != want {
			t.Errorf("peering call %d region = %q, want %q", i, peeringCalls[i], want)
		}
	}
	if globalCalls != 1 {
		t.Fatalf("expected 1 global call, got %d", globalCalls)
	}

	names := map[string]awscdk.Stack{
		"drsApn1Regional": stacks.PrimaryRegional,
		"drsApn3Regional": stacks.SecondaryRegional,
		"drsApn1Peering":  stacks.PrimaryPeering,
		"drsApn3Peering":  stacks.SecondaryPeering,
		"drsApn1Global":   stacks.Global,
	}
	for want, stack := range names {
		if got := *stack.StackName(); got != want {
			t.Errorf("stack name = %q, want %q", got, want)
		}
	}
}

func TestSetupApp_Dependencies(t *testing.T) {
	defer jsii.Close()

	ctx := validContext()
	app := awscdk.NewApp(&awscdk.AppProps{
		Context: &ctx,
	})

	stacks := bwcdkutil.SetupApp(app, bwcdkutil.AppConfig{Prefix: "drs-"},
		func(awscdk.Stack) struct{} { return struct{}{} },
		func(awscdk.Stack, struct{}) {},
		func(awscdk.Stack) {},
	)

	tests := []struct {
		name  string
		stack awscdk.Stack
		want  []string
	}{
		{"secondary regional", stacks.SecondaryRegional, []string{"drsApn1Regional"}},
		{"primary peering", stacks.PrimaryPeering, []string{"drsApn1Regional", "drsApn3Regional"}},
		{"secondary peering", stacks.SecondaryPeering, []string{"drsApn1Peering"}},
		{"global", stacks.Global, []string{"drsApn1Regional", "drsApn3Regional"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := map[string]bool{}
			for _, dep := range *tt.stack.Dependencies() {
				deps[*dep.StackName()] = true
			}
			for _, want := range tt.want {
				if !deps[want] {
					t.Errorf("%s should depend on %s, got %v", *tt.stack.StackName(), want, deps)
				}
			}
		})
	}

	if deps := *stacks.PrimaryRegional.Dependencies(); len(deps) != 0 {
		t.Errorf("primary regional stack should have no dependencies, got %d", len(deps))
	}
}

func TestSetupApp_DNSFailoverSkipsGlobalStack(t *testing.T) {
	defer jsii.Close()

	ctx := validContext()
	ctx["drs-global-routing"] = "dns-failover"
	app := awscdk.NewApp(&awscdk.AppProps{
		Context: &ctx,
	})

	globalCalls := 0
	stacks := bwcdkutil.SetupApp(app, bwcdkutil.AppConfig{Prefix: "drs-"},
		func(awscdk.Stack) struct{} { return struct{}{} },
		func(awscdk.Stack, struct{}) {},
		func(awscdk.Stack) { globalCalls++ },
	)

	if globalCalls != 0 {
		t.Errorf("global constructor should not be called, got %d calls", globalCalls)
	}
	if stacks.Global != nil {
		t.Error("Global stack should be nil with dns-failover routing")
	}
}

func TestSetupApp_PanicsOnInvalidContext(t *testing.T) {
	defer jsii.Close()

	ctx := validContext()
	delete(ctx, "drs-secondary-region")
	app := awscdk.NewApp(&awscdk.AppProps{
		Context: &ctx,
	})

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for missing secondary region")
		}
	}()

	bwcdkutil.SetupApp(app, bwcdkutil.AppConfig{Prefix: "drs-"},
		func(awscdk.Stack) struct{} { return struct{}{} },
		func(awscdk.Stack, struct{}) {},
		func(awscdk.Stack) {},
	)
}
