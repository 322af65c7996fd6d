//nolint:paralleltest // jsii runtime doesn't support parallel tests
package bwcdkpeering_test

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwdr/bwcdk/bwcdknetwork"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkpeering"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkutil"
)

const testAccount = "123456789012"

func testConfig() *bwcdkutil.Config {
	return &bwcdkutil.Config{
		Qualifier:       "testqual",
		ServiceName:     "shop",
		HostedZoneName:  "example.com",
		PrimaryRegion:   "ap-northeast-1",
		SecondaryRegion: "ap-northeast-3",
		Regions: []bwcdkutil.RegionConfig{
			{
				Region: "ap-northeast-1", Area: "tokyo", CIDR: "10.0.0.0/16",
				AvailabilityZones: []string{"ap-northeast-1a", "ap-northeast-1c"},
			},
			{
				Region: "ap-northeast-3", Area: "osaka", CIDR: "10.1.0.0/16",
				AvailabilityZones: []string{"ap-northeast-3a", "ap-northeast-3c"},
			},
		},
	}
}

func newStack(region string) (awscdk.Stack, bwcdknetwork.Network) {
	ctx := map[string]any{
		"availability-zones:account=" + testAccount + ":region=" + region: []any{
			region + "a", region + "b", region + "c",
		},
	}
	app := awscdk.NewApp(&awscdk.AppProps{Context: &ctx})
	bwcdkutil.StoreConfig(app, testConfig())
	stack := awscdk.NewStack(app, jsii.String("TestStack"), &awscdk.StackProps{
		Env: &awscdk.Environment{
			Account: jsii.String(testAccount),
			Region:  jsii.String(region),
		},
	})
	return stack, bwcdknetwork.New(stack, bwcdknetwork.Props{})
}

func TestNewRequester(t *testing.T) {
	defer jsii.Close()

	stack, net := newStack("ap-northeast-1")
	req := bwcdkpeering.NewRequester(stack, bwcdkpeering.RequesterProps{Vpc: net.Vpc()})

	if req.Connection() == nil {
		t.Fatal("Connection() should not be nil")
	}
	if got := len(req.Routes()); got != 6 {
		t.Errorf("Routes() = %d, want 6 (three tiers in two zones)", got)
	}

	template := assertions.Template_FromStack(stack, nil)
	template.HasResourceProperties(jsii.String("AWS::EC2::VPCPeeringConnection"), map[string]any{
		"PeerRegion": "ap-northeast-3",
		"Tags": assertions.Match_ArrayWith(&[]any{
			map[string]any{"Key": "Name", "Value": "shop-peering-connection"},
		}),
	})
	template.ResourceCountIs(jsii.String("AWS::EC2::Route"), jsii.Number(6+4))
	template.HasResourceProperties(jsii.String("AWS::EC2::Route"), map[string]any{
		"DestinationCidrBlock":   "10.1.0.0/16",
		"VpcPeeringConnectionId": assertions.Match_AnyValue(),
	})
	template.HasResourceProperties(jsii.String("AWS::SSM::Parameter"), map[string]any{
		"Name": "/testqual/peering/connection-id",
	})
	template.HasResourceProperties(jsii.String("Custom::AWS"), map[string]any{
		"Create": assertions.Match_SerializedJson(assertions.Match_ObjectLike(&map[string]any{
			"region":     "ap-northeast-3",
			"parameters": map[string]any{"Name": "/testqual/network/osaka/vpc-id"},
		})),
	})
}

func TestNewRequester_ExplicitPeer(t *testing.T) {
	defer jsii.Close()

	stack, net := newStack("ap-northeast-1")
	bwcdkpeering.NewRequester(stack, bwcdkpeering.RequesterProps{
		Vpc:       net.Vpc(),
		PeerVpcID: jsii.String("vpc-peer"),
		PeerCIDR:  jsii.String("172.16.0.0/16"),
	})

	template := assertions.Template_FromStack(stack, nil)
	template.HasResourceProperties(jsii.String("AWS::EC2::VPCPeeringConnection"), map[string]any{
		"PeerVpcId": "vpc-peer",
	})
	template.HasResourceProperties(jsii.String("AWS::EC2::Route"), map[string]any{
		"DestinationCidrBlock": "172.16.0.0/16",
	})
	template.ResourceCountIs(jsii.String("Custom::AWS"), jsii.Number(0))
}

func TestNewAccepter(t *testing.T) {
	defer jsii.Close()

	stack, net := newStack("ap-northeast-3")
	acc := bwcdkpeering.NewAccepter(stack, bwcdkpeering.AccepterProps{Vpc: net.Vpc()})

	if got := len(acc.Routes()); got != 6 {
		t.Errorf("Routes() = %d, want 6", got)
	}

	template := assertions.Template_FromStack(stack, nil)
	template.ResourceCountIs(jsii.String("AWS::EC2::VPCPeeringConnection"), jsii.Number(0))
	template.HasResourceProperties(jsii.String("AWS::EC2::Route"), map[string]any{
		"DestinationCidrBlock": "10.0.0.0/16",
	})
	template.HasResourceProperties(jsii.String("Custom::AWS"), map[string]any{
		"Create": assertions.Match_SerializedJson(assertions.Match_ObjectLike(&map[string]any{
			"region":     "ap-northeast-1",
			"parameters": map[string]any{"Name": "/testqual/peering/connection-id"},
		})),
	})
}

func TestNewAccepter_RouteIDs(t *testing.T) {
	defer jsii.Close()

	stack, net := newStack("ap-northeast-3")
	acc := bwcdkpeering.NewAccepter(stack, bwcdkpeering.AccepterProps{
		Vpc:          net.Vpc(),
		ConnectionID: jsii.String("pcx-123"),
	})

	want := []string{
		"VpcRouteOsakaPublic0", "VpcRouteOsakaPublic1",
		"VpcRouteOsakaPrivate0", "VpcRouteOsakaPrivate1",
		"VpcRouteOsakaIsolated0", "VpcRouteOsakaIsolated1",
	}
	for i, route := range acc.Routes() {
		if got := *route.Node().Id(); got != want[i] {
			t.Errorf("route %d id = %q, want %q", i, got, want[i])
		}
	}
}
