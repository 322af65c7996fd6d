// Package bwcdkdns provides access to the Route53 hosted zone of a deployment and
// the failover records that steer clients between regions without an accelerator.
//
// The hosted zone is never created here: it already exists and is shared by both
// regions. When its id is configured it is referenced directly, otherwise it is
// resolved with a context lookup at synth time.
package bwcdkdns

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awselasticloadbalancingv2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkutil"
)

// DNS provides access to a Route53 hosted zone that works across regions.
type DNS interface {
	// HostedZone returns the Route53 hosted zone.
	HostedZone() awsroute53.IHostedZone
}

// Props configures the DNS construct.
type Props struct {
	// ZoneDomainName is the domain name for the hosted zone (e.g., "example.com").
	// If nil, uses the hosted zone name from config.
	ZoneDomainName *string
	// HostedZoneID skips the lookup when set. If nil, uses the hosted zone id from config.
	HostedZoneID *string
}

type dns struct {
	hostedZone awsroute53.IHostedZone
}

// New creates a DNS construct that references an existing Route53 hosted zone.
func New(scope constructs.Construct, props Props) DNS {
	scope = constructs.NewConstruct(scope, jsii.String("DNS"))
	con := &dns{}
	cfg := bwcdkutil.ConfigFromScope(scope)

	zoneName := props.ZoneDomainName
	if zoneName == nil {
		zoneName = jsii.String(cfg.HostedZoneName)
	}
	zoneID := props.HostedZoneID
	if zoneID == nil && cfg.HostedZoneID != "" {
		zoneID = jsii.String(cfg.HostedZoneID)
	}

	if zoneID != nil {
		con.hostedZone = awsroute53.HostedZone_FromHostedZoneAttributes(scope, jsii.String("HostedZone"),
			&awsroute53.HostedZoneAttributes{
				HostedZoneId: zoneID,
				ZoneName:     zoneName,
			})
	} else {
		con.hostedZone = awsroute53.HostedZone_FromLookup(scope, jsii.String("HostedZone"),
			&awsroute53.HostedZoneProviderProps{
				DomainName: zoneName,
			})
	}

	return con
}

func (d *dns) HostedZone() awsroute53.IHostedZone {
	return d.hostedZone
}

// FailoverRole is the Route53 failover value of a record.
type FailoverRole string

const (
	// FailoverPrimary answers queries while its health check passes.
	FailoverPrimary FailoverRole = "PRIMARY"
	// FailoverSecondary answers queries when the primary is unhealthy.
	FailoverSecondary FailoverRole = "SECONDARY"
)

// FailoverRecordProps configures a failover alias record.
type FailoverRecordProps struct {
	// HostedZone holds the record.
	// Required.
	HostedZone awsroute53.IHostedZone
	// LoadBalancer is the alias target and the endpoint of the health check.
	// It must be internet-facing for Route53 health checkers to reach it.
	// Required.
	LoadBalancer awselasticloadbalancingv2.ILoadBalancerV2
	// Role selects PRIMARY or SECONDARY. Defaults by whether the stack is in the primary region.
	Role FailoverRole
	// RecordName defaults to the global domain name of the deployment.
	RecordName *string
}

// FailoverRecord is a health-checked alias record taking part in DNS failover.
type FailoverRecord interface {
	// RecordSet returns the underlying record set.
	RecordSet() awsroute53.CfnRecordSet
	// HealthCheck returns the health check that gates the record.
	HealthCheck() awsroute53.CfnHealthCheck
}

type failoverRecord struct {
	recordSet   awsroute53.CfnRecordSet
	healthCheck awsroute53.CfnHealthCheck
}

// NewFailoverRecord creates an HTTP health check against the load balancer and an
// A alias record for it with the given failover role.
func NewFailoverRecord(scope constructs.Construct, props FailoverRecordProps) FailoverRecord {
	if props.HostedZone == nil || props.LoadBalancer == nil {
		panic("bwcdkdns: HostedZone and LoadBalancer are required")
	}

	scope = constructs.NewConstruct(scope, jsii.String("FailoverRecord"))
	con := &failoverRecord{}

	role := props.Role
	if role == "" {
		role = FailoverSecondary
		if bwcdkutil.IsPrimaryRegion(scope, *awscdk.Stack_Of(scope).Region()) {
			role = FailoverPrimary
		}
	}
	recordName := props.RecordName
	if recordName == nil {
		recordName = jsii.String(bwcdkutil.GlobalDomainName(scope))
	}

	con.healthCheck = awsroute53.NewCfnHealthCheck(scope, jsii.String("HealthCheck"), &awsroute53.CfnHealthCheckProps{
		HealthCheckConfig: &awsroute53.CfnHealthCheck_HealthCheckConfigProperty{
			Type:                     jsii.String("HTTP"),
			FullyQualifiedDomainName: props.LoadBalancer.LoadBalancerDnsName(),
			Port:                     jsii.Number(80),
			ResourcePath:             jsii.String("/"),
			RequestInterval:          jsii.Number(10),
			FailureThreshold:         jsii.Number(3),
			MeasureLatency:           jsii.Bool(false),
		},
		HealthCheckTags: &[]*awsroute53.CfnHealthCheck_HealthCheckTagProperty{
			{
				Key:   jsii.String("Name"),
				Value: jsii.String(bwcdkutil.ResourceName(scope, "healthcheck", bwcdkutil.CasingKebab)),
			},
		},
	})
	con.healthCheck.Node().AddDependency(props.LoadBalancer)

	con.recordSet = awsroute53.NewCfnRecordSet(scope, jsii.String("RecordSet"), &awsroute53.CfnRecordSetProps{
		Name:         recordName,
		Type:         jsii.String(string(awsroute53.RecordType_A)),
		HostedZoneId: props.HostedZone.HostedZoneId(),
		AliasTarget: &awsroute53.CfnRecordSet_AliasTargetProperty{
			DnsName:              props.LoadBalancer.LoadBalancerDnsName(),
			HostedZoneId:         props.LoadBalancer.LoadBalancerCanonicalHostedZoneId(),
			EvaluateTargetHealth: jsii.Bool(true),
		},
		Failover:      jsii.String(string(role)),
		HealthCheckId: con.healthCheck.AttrHealthCheckId(),
		SetIdentifier: jsii.String(bwcdkutil.ResourceName(scope, "id", bwcdkutil.CasingKebab)),
	})
	con.recordSet.Node().AddDependency(con.healthCheck)

	return con
}

func (f *failoverRecord) RecordSet() awsroute53.CfnRecordSet {
	return f.recordSet
}

func (f *failoverRecord) HealthCheck() awsroute53.CfnHealthCheck {
	return f.healthCheck
}
