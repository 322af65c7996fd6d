// Package bwcdkpeering connects the VPCs of the two regions with a VPC peering connection.
//
// The requester side lives in the primary region: it creates the connection and routes
// the secondary VPC's CIDR through it. The accepter side lives in the secondary region
// and only adds the return routes, looking up the connection id from the primary.
package bwcdkpeering

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwdr/bwcdk/bwcdknetwork"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkparams"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkutil"
	"github.com/iancoleman/strcase"
)

const paramsNamespace = "peering"

const connectionIDParam = "connection-id"

// Requester provides access to the peering connection created in the primary region.
type Requester interface {
	// Connection returns the peering connection.
	Connection() awsec2.CfnVPCPeeringConnection
	// Routes returns the routes towards the peer VPC, one per route table.
	Routes() []awsec2.CfnRoute
}

// RequesterProps configures the Requester construct.
type RequesterProps struct {
	// Vpc is the local (requester) VPC.
	// Required.
	Vpc awsec2.IVpc
	// PeerRegion defaults to the other region of the deployment.
	PeerRegion *string
	// PeerVpcID defaults to the VPC id stored by the network of the peer region.
	PeerVpcID *string
	// PeerCIDR defaults to the configured CIDR of the peer region.
	PeerCIDR *string
}

type requester struct {
	connection awsec2.CfnVPCPeeringConnection
	routes     []awsec2.CfnRoute
}

// NewRequester requests a peering connection from the local VPC to the peer VPC and
// routes the peer CIDR through it from every subnet. The connection id is stored in
// SSM Parameter Store for the accepter.
func NewRequester(scope constructs.Construct, props RequesterProps) Requester {
	if props.Vpc == nil {
		panic("bwcdkpeering: Vpc is required")
	}

	scope = constructs.NewConstruct(scope, jsii.String("PeeringRequester"))
	con := &requester{}
	cfg := bwcdkutil.ConfigFromScope(scope)
	region := *awscdk.Stack_Of(scope).Region()

	peerRegion := props.PeerRegion
	if peerRegion == nil {
		peerRegion = jsii.String(cfg.PeerRegion(region))
	}
	peerVpcID := props.PeerVpcID
	if peerVpcID == nil {
		peerVpcID = bwcdknetwork.LookupVpcID(scope, "LookupPeerVpcID", *peerRegion)
	}
	peerCIDR := props.PeerCIDR
	if peerCIDR == nil {
		peerCIDR = jsii.String(cfg.MustRegion(*peerRegion).CIDR)
	}

	con.connection = awsec2.NewCfnVPCPeeringConnection(scope, jsii.String("PeeringConnection"),
		&awsec2.CfnVPCPeeringConnectionProps{
			VpcId:      props.Vpc.VpcId(),
			PeerVpcId:  peerVpcID,
			PeerRegion: peerRegion,
		})
	awscdk.Tags_Of(con.connection).Add(jsii.String("Name"),
		jsii.String(cfg.ServiceName+"-peering-connection"), nil)

	connectionID := awscdk.Token_AsString(con.connection.AttrId(), nil)
	con.routes = addRoutes(scope, props.Vpc, *peerCIDR, connectionID)

	bwcdkparams.Store(scope, "ConnectionIDParam", paramsNamespace, connectionIDParam, connectionID)

	return con
}

func (r *requester) Connection() awsec2.CfnVPCPeeringConnection {
	return r.connection
}

func (r *requester) Routes() []awsec2.CfnRoute {
	return r.routes
}

// Accepter provides access to the return routes in the secondary region.
type Accepter interface {
	// Routes returns the routes towards the requester VPC, one per route table.
	Routes() []awsec2.CfnRoute
}

// AccepterProps configures the Accepter construct.
type AccepterProps struct {
	// Vpc is the local (accepter) VPC.
	// Required.
	Vpc awsec2.IVpc
	// PeerCIDR defaults to the configured CIDR of the primary region.
	PeerCIDR *string
	// ConnectionID defaults to the id stored by the requester in the primary region.
	ConnectionID *string
}

type accepter struct {
	routes []awsec2.CfnRoute
}

// NewAccepter routes the requester VPC's CIDR through the peering connection from
// every subnet of the local VPC.
func NewAccepter(scope constructs.Construct, props AccepterProps) Accepter {
	if props.Vpc == nil {
		panic("bwcdkpeering: Vpc is required")
	}

	scope = constructs.NewConstruct(scope, jsii.String("PeeringAccepter"))
	con := &accepter{}
	cfg := bwcdkutil.ConfigFromScope(scope)

	peerCIDR := props.PeerCIDR
	if peerCIDR == nil {
		peerCIDR = jsii.String(cfg.MustRegion(cfg.PrimaryRegion).CIDR)
	}
	connectionID := props.ConnectionID
	if connectionID == nil {
		connectionID = bwcdkparams.Lookup(scope, "LookupConnectionID",
			paramsNamespace, connectionIDParam, "peering-connection-id-lookup")
	}

	con.routes = addRoutes(scope, props.Vpc, *peerCIDR, connectionID)

	return con
}

func (a *accepter) Routes() []awsec2.CfnRoute {
	return a.routes
}

// addRoutes adds a route to destination through the connection on the route table
// of every public, private and isolated subnet.
func addRoutes(
	scope constructs.Construct, vpc awsec2.IVpc, destination string, connectionID *string,
) []awsec2.CfnRoute {
	area := strcase.ToCamel(bwcdkutil.Area(scope))
	tiers := []struct {
		name    string
		subnets *[]awsec2.ISubnet
	}{
		{bwcdknetwork.PublicSubnetGroup, vpc.PublicSubnets()},
		{bwcdknetwork.PrivateSubnetGroup, vpc.PrivateSubnets()},
		{bwcdknetwork.IsolatedSubnetGroup, vpc.IsolatedSubnets()},
	}

	var routes []awsec2.CfnRoute
	for _, tier := range tiers {
		for i, subnet := range *tier.subnets {
			id := fmt.Sprintf("VpcRoute%s%s%d", area, tier.name, i)
			routes = append(routes, awsec2.NewCfnRoute(scope, jsii.String(id), &awsec2.CfnRouteProps{
				RouteTableId:           subnet.RouteTable().RouteTableId(),
				DestinationCidrBlock:   jsii.String(destination),
				VpcPeeringConnectionId: connectionID,
			}))
		}
	}
	return routes
}
