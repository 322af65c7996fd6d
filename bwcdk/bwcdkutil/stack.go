package bwcdkutil

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/iancoleman/strcase"
)

// StackName returns the CloudFormation stack name for a stack of the given kind.
// This is the canonical function for generating stack names, e.g. "drsApn1Regional".
func StackName(qualifier, regionIdent string, kind StackKind) string {
	base := strcase.ToLowerCamel(fmt.Sprintf("%s-%s", qualifier, regionIdent))
	return base + string(kind)
}

// NewStackFromConfig creates a new CDK Stack using a validated Config.
func NewStackFromConfig(
	scope constructs.Construct, cfg *Config, region string, kind StackKind,
) awscdk.Stack {
	regionIdent := cfg.RegionIdent(region)
	baseIdent := strcase.ToLowerCamel(fmt.Sprintf("%s-%s", cfg.Qualifier, regionIdent))

	role := "secondary"
	if cfg.IsPrimaryRegion(region) {
		role = "primary"
	}
	description := fmt.Sprintf("%s %s (region: %s, role: %s)", baseIdent, kind, region, role)
	if cfg.Description != "" {
		description = cfg.Description + " - " + description
	}

	env := &awscdk.Environment{Region: jsii.String(region)}
	if cfg.Account != "" {
		env.Account = jsii.String(cfg.Account)
	}

	stack := awscdk.NewStack(scope, jsii.String(StackName(cfg.Qualifier, regionIdent, kind)), &awscdk.StackProps{
		Env:         env,
		Description: jsii.String(description),
		Synthesizer: awscdk.NewDefaultStackSynthesizer(&awscdk.DefaultStackSynthesizerProps{
			Qualifier: jsii.String(cfg.Qualifier),
		}),
	})

	StoreStackKind(stack, kind)
	awscdk.Tags_Of(stack).Add(jsii.String("service"), jsii.String(cfg.ServiceName), nil)
	awscdk.Tags_Of(stack).Add(jsii.String("dr-role"), jsii.String(role), nil)

	return stack
}
