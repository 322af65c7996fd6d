// Package cdk assembles the constructs of the disaster-recovery deployment into the
// regional, peering and global stacks.
package cdk

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkdatabase"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkdns"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkdynamo"
	"github.com/basewarphq/bwdr/bwcdk/bwcdknetwork"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkservice"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkutil"
)

// SessionTableOutputKey is the output holding the name of the session table.
const SessionTableOutputKey = "SessionTableName"

// Regional holds the constructs of one region.
type Regional struct {
	Network  bwcdknetwork.Network
	Database bwcdkdatabase.Database
	Service  bwcdkservice.Service
	// Sessions is nil unless the session table is enabled.
	Sessions bwcdkdynamo.Dynamo
	// Failover is nil when global routing uses an accelerator.
	Failover bwcdkdns.FailoverRecord
}

// NewRegional creates the network, database and web tier of the stack's region.
func NewRegional(stack awscdk.Stack) *Regional {
	cfg := bwcdkutil.ConfigFromScope(stack)
	region := *stack.Region()
	isPrimary := cfg.IsPrimaryRegion(region)

	regional := &Regional{}
	regional.Network = bwcdknetwork.New(stack, bwcdknetwork.Props{})
	regional.Database = bwcdkdatabase.New(stack, bwcdkdatabase.Props{
		Vpc:       regional.Network.Vpc(),
		Subnets:   regional.Network.IsolatedSubnets(),
		IsPrimary: isPrimary,
	})

	zone := bwcdkdns.New(stack, bwcdkdns.Props{}).HostedZone()
	regional.Service = bwcdkservice.New(stack, bwcdkservice.Props{
		Network:    regional.Network,
		Database:   regional.Database,
		HostedZone: zone,
	})

	if cfg.SessionTable {
		regional.Sessions = bwcdkdynamo.New(stack, bwcdkdynamo.Props{})
		regional.Sessions.GrantReadWriteData(regional.Service.InstanceRole())
		awscdk.NewCfnOutput(stack, jsii.String(SessionTableOutputKey), &awscdk.CfnOutputProps{
			Value: regional.Sessions.Table().TableName(),
		})
	}

	if !cfg.UsesAccelerator() {
		role := bwcdkdns.FailoverSecondary
		if isPrimary {
			role = bwcdkdns.FailoverPrimary
		}
		regional.Failover = bwcdkdns.NewFailoverRecord(stack, bwcdkdns.FailoverRecordProps{
			HostedZone:   zone,
			LoadBalancer: regional.Service.LoadBalancer(),
			Role:         role,
		})
	}

	return regional
}
