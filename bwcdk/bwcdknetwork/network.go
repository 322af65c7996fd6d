// Package bwcdknetwork provides the per-region VPC construct of a disaster-recovery deployment.
//
// Each region gets a VPC with three subnet tiers spread over two availability zones:
// public subnets for load balancers and the NAT gateway, private subnets with egress
// for instances, and isolated subnets for the database. Rejected traffic is recorded
// with VPC flow logs.
package bwcdknetwork

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkloggroup"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkparams"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkutil"
)

const paramsNamespace = "network"

// Subnet group names.
const (
	PublicSubnetGroup   = "Public"
	PrivateSubnetGroup  = "Private"
	IsolatedSubnetGroup = "Isolated"
)

// Network provides access to the VPC of one region.
type Network interface {
	// Vpc returns the VPC.
	Vpc() awsec2.IVpc
	// CIDR returns the IPv4 block of the VPC.
	CIDR() string
	// PublicSubnets selects the subnets with a route to the internet gateway.
	PublicSubnets() *awsec2.SubnetSelection
	// PrivateSubnets selects the subnets that reach the internet through NAT.
	PrivateSubnets() *awsec2.SubnetSelection
	// IsolatedSubnets selects the subnets without any internet route.
	IsolatedSubnets() *awsec2.SubnetSelection
}

// Props configures the Network construct.
type Props struct {
	// CIDR is the IPv4 block of the VPC. Defaults to the configured CIDR of the stack's region.
	CIDR *string
	// AvailabilityZones to spread subnets over. Defaults to the configured zones of the stack's region.
	AvailabilityZones *[]*string
	// NatGateways defaults to one, shared by both zones.
	NatGateways *float64
}

type network struct {
	vpc  awsec2.IVpc
	cidr string
}

// New creates the VPC of the stack's region and stores its id in SSM Parameter Store
// so that the peering stack of the other region can find it.
func New(scope constructs.Construct, props Props) Network {
	scope = constructs.NewConstruct(scope, jsii.String("Network"))
	settings := bwcdkutil.RegionSettings(scope)

	cidr := props.CIDR
	if cidr == nil {
		cidr = jsii.String(settings.CIDR)
	}
	azs := props.AvailabilityZones
	if azs == nil {
		azs = jsii.Strings(settings.AvailabilityZones...)
	}
	if len(*azs) != 2 {
		panic("bwcdknetwork: exactly two availability zones are required")
	}
	natGateways := props.NatGateways
	if natGateways == nil {
		natGateways = jsii.Number(1)
	}

	con := &network{cidr: *cidr}

	vpc := awsec2.NewVpc(scope, jsii.String("Vpc"), &awsec2.VpcProps{
		VpcName:           jsii.String(bwcdkutil.ResourceName(scope, "vpc", bwcdkutil.CasingKebab)),
		IpAddresses:       awsec2.IpAddresses_Cidr(cidr),
		AvailabilityZones: azs,
		NatGateways:       natGateways,
		SubnetConfiguration: &[]*awsec2.SubnetConfiguration{
			{
				Name:       jsii.String(PublicSubnetGroup),
				SubnetType: awsec2.SubnetType_PUBLIC,
				CidrMask:   jsii.Number(24),
			},
			{
				Name:       jsii.String(PrivateSubnetGroup),
				SubnetType: awsec2.SubnetType_PRIVATE_WITH_EGRESS,
				CidrMask:   jsii.Number(24),
			},
			{
				Name:       jsii.String(IsolatedSubnetGroup),
				SubnetType: awsec2.SubnetType_PRIVATE_ISOLATED,
				CidrMask:   jsii.Number(24),
			},
		},
	})
	con.vpc = vpc

	flowLogs := bwcdkloggroup.New(scope, "FlowLogs", bwcdkloggroup.Props{
		Purpose: jsii.String("VPC flow logs of rejected traffic"),
	})
	vpc.AddFlowLog(jsii.String("FlowLog"), &awsec2.FlowLogOptions{
		Destination: awsec2.FlowLogDestination_ToCloudWatchLogs(flowLogs.LogGroup(), nil),
		TrafficType: awsec2.FlowLogTrafficType_REJECT,
	})

	bwcdkparams.Store(scope, "VpcIDParam", paramsNamespace, VpcIDParamName(settings.Area), vpc.VpcId())

	return con
}

// VpcIDParamName is the parameter name under which the VPC id of an area is stored.
func VpcIDParamName(area string) string {
	return area + "/vpc-id"
}

// LookupVpcID returns the id of the VPC in the given region, read from that region's
// parameter store.
func LookupVpcID(scope constructs.Construct, id string, region string) *string {
	cfg := bwcdkutil.ConfigFromScope(scope)
	area := cfg.MustRegion(region).Area
	return bwcdkparams.LookupInRegion(scope, id, region, paramsNamespace, VpcIDParamName(area), area+"-vpc-id-lookup")
}

func (n *network) Vpc() awsec2.IVpc {
	return n.vpc
}

func (n *network) CIDR() string {
	return n.cidr
}

func (n *network) PublicSubnets() *awsec2.SubnetSelection {
	return &awsec2.SubnetSelection{SubnetType: awsec2.SubnetType_PUBLIC}
}

func (n *network) PrivateSubnets() *awsec2.SubnetSelection {
	return &awsec2.SubnetSelection{SubnetType: awsec2.SubnetType_PRIVATE_WITH_EGRESS}
}

func (n *network) IsolatedSubnets() *awsec2.SubnetSelection {
	return &awsec2.SubnetSelection{SubnetType: awsec2.SubnetType_PRIVATE_ISOLATED}
}
