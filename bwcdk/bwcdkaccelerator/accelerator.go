// Package bwcdkaccelerator fronts the load balancers of both regions with AWS Global Accelerator.
//
// The primary endpoint group receives all traffic. The secondary endpoint group is
// registered with a traffic dial of zero so that failover is a matter of turning the
// dials, without touching DNS.
package bwcdkaccelerator

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awselasticloadbalancingv2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsglobalaccelerator"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsglobalacceleratorendpoints"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53targets"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkutil"
)

// CloudFormation output keys of the accelerator.
const (
	AcceleratorArnOutputKey = "AcceleratorArn"
	AcceleratorDNSOutputKey = "AcceleratorDnsName"
)

// Listener ports. Each port gets its own listener with one endpoint group per region.
var listenerPorts = []int{443, 80}

const nameLabel = "accelerator"

// ListenerPorts returns the ports the accelerator listens on.
func ListenerPorts() []int {
	return append([]int(nil), listenerPorts...)
}

// Name returns the accelerator name of a service.
func Name(serviceName string) string {
	return bwcdkutil.GlobalResourceName(serviceName, nameLabel, bwcdkutil.CasingKebab)
}

// EndpointGroupOutputKey returns the output key of the endpoint group for one region
// role ("Primary" or "Secondary") on one listener port.
func EndpointGroupOutputKey(role string, port int) string {
	return fmt.Sprintf("%sEndpointGroup%dArn", role, port)
}

// Traffic dials of the two endpoint groups.
const (
	PrimaryTrafficDial   = 100
	SecondaryTrafficDial = 0
)

// Accelerator provides access to the global entry point.
type Accelerator interface {
	// Accelerator returns the Global Accelerator.
	Accelerator() awsglobalaccelerator.IAccelerator
	// EndpointGroups returns the endpoint groups per listener port, primary first.
	EndpointGroups() map[int][]awsglobalaccelerator.EndpointGroup
}

// Props configures the Accelerator construct.
type Props struct {
	// PrimaryLoadBalancer is the load balancer in the primary region.
	// Required.
	PrimaryLoadBalancer awselasticloadbalancingv2.IApplicationLoadBalancer
	// SecondaryLoadBalancer is the load balancer in the secondary region.
	// Required.
	SecondaryLoadBalancer awselasticloadbalancingv2.IApplicationLoadBalancer
	// HostedZone receives an alias record for the global domain name. Optional.
	HostedZone awsroute53.IHostedZone
	// RecordName defaults to the global domain name of the deployment.
	RecordName *string
}

type accelerator struct {
	accelerator awsglobalaccelerator.Accelerator
	groups      map[int][]awsglobalaccelerator.EndpointGroup
}

// New creates the accelerator, one listener per port and one endpoint group per region.
func New(scope constructs.Construct, props Props) Accelerator {
	if props.PrimaryLoadBalancer == nil || props.SecondaryLoadBalancer == nil {
		panic("bwcdkaccelerator: PrimaryLoadBalancer and SecondaryLoadBalancer are required")
	}

	scope = constructs.NewConstruct(scope, jsii.String("Accelerator"))
	cfg := bwcdkutil.ConfigFromScope(scope)
	con := &accelerator{groups: map[int][]awsglobalaccelerator.EndpointGroup{}}

	acc := awsglobalaccelerator.NewAccelerator(scope, jsii.String("Accelerator"), &awsglobalaccelerator.AcceleratorProps{
		AcceleratorName: jsii.String(bwcdkutil.ResourceName(scope, nameLabel, bwcdkutil.CasingKebab)),
		IpAddressType:   awsglobalaccelerator.IpAddressType_IPV4,
		Enabled:         jsii.Bool(true),
	})
	acc.ApplyRemovalPolicy(awscdk.RemovalPolicy_DESTROY)
	con.accelerator = acc

	for _, port := range listenerPorts {
		listener := acc.AddListener(jsii.String(fmt.Sprintf("Listener%d", port)),
			&awsglobalaccelerator.ListenerOptions{
				Protocol:       awsglobalaccelerator.ConnectionProtocol_TCP,
				ClientAffinity: awsglobalaccelerator.ClientAffinity_SOURCE_IP,
				PortRanges: &[]*awsglobalaccelerator.PortRange{
					{FromPort: jsii.Number(float64(port))},
				},
			})
		listener.ApplyRemovalPolicy(awscdk.RemovalPolicy_DESTROY)

		primary := addEndpointGroup(listener, "EndpointGroup1", cfg.PrimaryRegion,
			props.PrimaryLoadBalancer, PrimaryTrafficDial)
		secondary := addEndpointGroup(listener, "EndpointGroup2", cfg.SecondaryRegion,
			props.SecondaryLoadBalancer, SecondaryTrafficDial)
		con.groups[port] = []awsglobalaccelerator.EndpointGroup{primary, secondary}
	}

	if props.HostedZone != nil {
		recordName := props.RecordName
		if recordName == nil {
			recordName = jsii.String(cfg.GlobalDomainName())
		}
		record := awsroute53.NewARecord(scope, jsii.String("AliasRecord"), &awsroute53.ARecordProps{
			Zone:       props.HostedZone,
			RecordName: recordName,
			Target: awsroute53.RecordTarget_FromAlias(
				awsroute53targets.NewGlobalAcceleratorTarget(acc)),
		})
		record.Node().AddDependency(acc)
	}

	stack := awscdk.Stack_Of(scope)
	awscdk.NewCfnOutput(stack, jsii.String(AcceleratorArnOutputKey), &awscdk.CfnOutputProps{
		Value: acc.AcceleratorArn(),
	})
	awscdk.NewCfnOutput(stack, jsii.String(AcceleratorDNSOutputKey), &awscdk.CfnOutputProps{
		Value: acc.DnsName(),
	})
	for _, port := range listenerPorts {
		groups := con.groups[port]
		awscdk.NewCfnOutput(stack, jsii.String(EndpointGroupOutputKey("Primary", port)), &awscdk.CfnOutputProps{
			Value:       groups[0].EndpointGroupArn(),
			Description: jsii.String(fmt.Sprintf("Endpoint group of %s on port %d", cfg.PrimaryRegion, port)),
		})
		awscdk.NewCfnOutput(stack, jsii.String(EndpointGroupOutputKey("Secondary", port)), &awscdk.CfnOutputProps{
			Value:       groups[1].EndpointGroupArn(),
			Description: jsii.String(fmt.Sprintf("Endpoint group of %s on port %d", cfg.SecondaryRegion, port)),
		})
	}

	return con
}

func addEndpointGroup(
	listener awsglobalaccelerator.Listener,
	id string,
	region string,
	alb awselasticloadbalancingv2.IApplicationLoadBalancer,
	dial float64,
) awsglobalaccelerator.EndpointGroup {
	group := listener.AddEndpointGroup(jsii.String(id), &awsglobalaccelerator.EndpointGroupOptions{
		Region:                jsii.String(region),
		TrafficDialPercentage: jsii.Number(dial),
		Endpoints: &[]awsglobalaccelerator.IEndpoint{
			awsglobalacceleratorendpoints.NewApplicationLoadBalancerEndpoint(alb,
				&awsglobalacceleratorendpoints.ApplicationLoadBalancerEndpointOptions{
					Weight:           jsii.Number(128),
					PreserveClientIp: jsii.Bool(true),
				}),
		},
	})
	group.ApplyRemovalPolicy(awscdk.RemovalPolicy_DESTROY)
	return group
}

func (a *accelerator) Accelerator() awsglobalaccelerator.IAccelerator {
	return a.accelerator
}

func (a *accelerator) EndpointGroups() map[int][]awsglobalaccelerator.EndpointGroup {
	return a.groups
}
