package cdk

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkaccelerator"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkdns"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkservice"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkutil"
)

// NewGlobal fronts the load balancers of both regions with Global Accelerator and
// points the global domain name at it.
func NewGlobal(stack awscdk.Stack) {
	cfg := bwcdkutil.ConfigFromScope(stack)

	bwcdkaccelerator.New(stack, bwcdkaccelerator.Props{
		PrimaryLoadBalancer:   bwcdkservice.LookupLoadBalancer(stack, "PrimaryLoadBalancer", cfg.PrimaryRegion),
		SecondaryLoadBalancer: bwcdkservice.LookupLoadBalancer(stack, "SecondaryLoadBalancer", cfg.SecondaryRegion),
		HostedZone:            bwcdkdns.New(stack, bwcdkdns.Props{}).HostedZone(),
	})
}
