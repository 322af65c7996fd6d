package cdk

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkpeering"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkutil"
)

// NewPeering creates the requester side of the VPC peering in the primary region and
// the accepter side in the secondary region.
func NewPeering(stack awscdk.Stack, regional *Regional) {
	if bwcdkutil.IsPrimaryRegionStack(stack, stack) {
		bwcdkpeering.NewRequester(stack, bwcdkpeering.RequesterProps{
			Vpc: regional.Network.Vpc(),
		})
		return
	}

	bwcdkpeering.NewAccepter(stack, bwcdkpeering.AccepterProps{
		Vpc: regional.Network.Vpc(),
	})
}
