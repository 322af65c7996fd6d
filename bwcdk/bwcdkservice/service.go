// Package bwcdkservice provides the web tier of one region: an Auto Scaling group of
// EC2 instances behind an Application Load Balancer.
//
// With accelerator routing the load balancer is internal and only reachable through
// Global Accelerator. With DNS failover routing it is internet-facing so that Route53
// health checks and clients can reach it directly. Instances live in the private
// subnets and are reachable for administration through an EC2 Instance Connect endpoint.
package bwcdkservice

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsautoscaling"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscertificatemanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awselasticloadbalancingv2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkcerts"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkdatabase"
	"github.com/basewarphq/bwdr/bwcdk/bwcdknetwork"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkparams"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkutil"
)

const paramsNamespace = "service"

// LoadBalancerDNSOutputKey is the CloudFormation output key holding the load balancer DNS name.
const LoadBalancerDNSOutputKey = "LoadBalancerDnsName"

// Service provides access to the web tier of one region.
type Service interface {
	// LoadBalancer returns the Application Load Balancer.
	LoadBalancer() awselasticloadbalancingv2.IApplicationLoadBalancer
	// AutoScalingGroup returns the group of web instances.
	AutoScalingGroup() awsautoscaling.AutoScalingGroup
	// InstanceRole returns the IAM role of the web instances.
	InstanceRole() awsiam.IRole
	// Certificate returns the certificate served by the HTTPS listener.
	Certificate() awscertificatemanager.ICertificate
}

// Props configures the Service construct.
type Props struct {
	// Network of the region.
	// Required.
	Network bwcdknetwork.Network
	// Database the instances connect to.
	// Required.
	Database bwcdkdatabase.Database
	// HostedZone validates the certificate.
	// Required.
	HostedZone awsroute53.IHostedZone
	// InternetFacing defaults to true with DNS failover routing and false with an accelerator.
	InternetFacing *bool
	// UserDataTemplate defaults to the configured template of the region, then to DefaultUserDataTemplate.
	UserDataTemplate *string
	// Capacity is the fixed number of instances. Defaults to 2.
	Capacity *float64
}

type service struct {
	alb         awselasticloadbalancingv2.ApplicationLoadBalancer
	asg         awsautoscaling.AutoScalingGroup
	role        awsiam.IRole
	certificate awscertificatemanager.ICertificate
}

// New creates the web tier of the stack's region.
func New(scope constructs.Construct, props Props) Service {
	if props.Network == nil || props.Database == nil || props.HostedZone == nil {
		panic("bwcdkservice: Network, Database and HostedZone are required")
	}

	scope = constructs.NewConstruct(scope, jsii.String("Service"))
	con := &service{}
	cfg := bwcdkutil.ConfigFromScope(scope)
	settings := bwcdkutil.RegionSettings(scope)
	vpc := props.Network.Vpc()

	name := func(label string) *string {
		return jsii.String(bwcdkutil.ResourceName(scope, label, bwcdkutil.CasingKebab))
	}

	internetFacing := !cfg.UsesAccelerator()
	if props.InternetFacing != nil {
		internetFacing = *props.InternetFacing
	}
	capacity := props.Capacity
	if capacity == nil {
		capacity = jsii.Number(2)
	}

	con.certificate = bwcdkcerts.New(scope, bwcdkcerts.Props{
		HostedZone: props.HostedZone,
	}).Certificate()

	role := awsiam.NewRole(scope, jsii.String("InstanceRole"), &awsiam.RoleProps{
		RoleName:  name("instance-role"),
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("ec2.amazonaws.com"), nil),
		ManagedPolicies: &[]awsiam.IManagedPolicy{
			awsiam.ManagedPolicy_FromAwsManagedPolicyName(jsii.String("AmazonSSMManagedInstanceCore")),
		},
	})
	con.role = role
	awsiam.NewCfnInstanceProfile(scope, jsii.String("InstanceProfile"), &awsiam.CfnInstanceProfileProps{
		InstanceProfileName: name("instance-profile"),
		Roles:               &[]*string{role.RoleName()},
	})

	instanceSG := newSecurityGroup(scope, "InstanceSecurityGroup", vpc, *name("ec2-security-group"), true)

	userDataText := DefaultUserDataTemplate
	switch {
	case props.UserDataTemplate != nil:
		userDataText = *props.UserDataTemplate
	case settings.UserDataTemplate != "":
		userDataText = settings.UserDataTemplate
	}
	rendered, err := RenderUserData(userDataText, UserDataValues{
		ServiceName:      cfg.ServiceName,
		Area:             settings.Area,
		Region:           settings.Region,
		GlobalDomainName: cfg.GlobalDomainName(),
		DatabaseHost:     *props.Database.Cluster().ClusterEndpoint().Hostname(),
		DatabasePort:     int(props.Database.ListenerPort()),
		IsPrimary:        props.Database.IsPrimary(),
	})
	if err != nil {
		panic(fmt.Sprintf("bwcdkservice: user data for %s: %v", settings.Region, err))
	}
	userData := awsec2.UserData_ForLinux(&awsec2.LinuxUserDataOptions{Shebang: jsii.String("#!/bin/bash")})
	userData.AddCommands(jsii.String(rendered))

	launchTemplate := awsec2.NewLaunchTemplate(scope, jsii.String("LaunchTemplate"), &awsec2.LaunchTemplateProps{
		LaunchTemplateName: name("template"),
		InstanceType:       awsec2.InstanceType_Of(awsec2.InstanceClass_T3, awsec2.InstanceSize_MICRO),
		CpuCredits:         awsec2.CpuCredits_STANDARD,
		MachineImage: awsec2.MachineImage_LatestAmazonLinux2(&awsec2.AmazonLinux2ImageSsmParameterProps{
			CpuType: awsec2.AmazonLinuxCpuType_X86_64,
		}),
		BlockDevices: &[]*awsec2.BlockDevice{
			{
				DeviceName: jsii.String("/dev/xvda"),
				Volume: awsec2.BlockDeviceVolume_Ebs(jsii.Number(8), &awsec2.EbsDeviceOptions{
					VolumeType: awsec2.EbsDeviceVolumeType_GP3,
				}),
			},
		},
		SecurityGroup: instanceSG,
		Role:          role,
		RequireImdsv2: jsii.Bool(true),
		UserData:      userData,
	})

	asg := awsautoscaling.NewAutoScalingGroup(scope, jsii.String("AutoScalingGroup"), &awsautoscaling.AutoScalingGroupProps{
		AutoScalingGroupName: name("instance"),
		LaunchTemplate:       launchTemplate,
		MinCapacity:          capacity,
		MaxCapacity:          capacity,
		Vpc:                  vpc,
		VpcSubnets:           props.Network.PrivateSubnets(),
		HealthCheck: awsautoscaling.HealthCheck_Elb(&awsautoscaling.ElbHealthCheckOptions{
			Grace: awscdk.Duration_Minutes(jsii.Number(10)),
		}),
	})
	con.asg = asg
	props.Database.Cluster().Connections().AllowDefaultPortFrom(asg, jsii.String(fmt.Sprintf(
		"Allow access to database from EC2 instances on port %d", int(props.Database.ListenerPort()))))

	albSG := newSecurityGroup(scope, "ALBSecurityGroup", vpc, *name("alb-security-group"), false)
	albSubnets := props.Network.PrivateSubnets()
	if internetFacing {
		albSubnets = props.Network.PublicSubnets()
	}
	alb := awselasticloadbalancingv2.NewApplicationLoadBalancer(scope, jsii.String("ALB"),
		&awselasticloadbalancingv2.ApplicationLoadBalancerProps{
			LoadBalancerName: name("alb"),
			Vpc:              vpc,
			VpcSubnets:       albSubnets,
			InternetFacing:   jsii.Bool(internetFacing),
			SecurityGroup:    albSG,
		})
	con.alb = alb
	alb.Node().AddDependency(asg)

	for _, port := range []float64{443, 80} {
		albSG.AddIngressRule(awsec2.Peer_Ipv4(jsii.String("0.0.0.0/0")), awsec2.Port_Tcp(jsii.Number(port)),
			jsii.String(fmt.Sprintf("Allow access to ALB from anyone on port %d", int(port))), jsii.Bool(false))
	}
	asg.Connections().AllowFrom(alb, awsec2.Port_Tcp(jsii.Number(80)),
		jsii.String("Allow access to EC2 instance from ALB on port 80"))

	targetGroup := awselasticloadbalancingv2.NewApplicationTargetGroup(scope, jsii.String("TargetGroup"),
		&awselasticloadbalancingv2.ApplicationTargetGroupProps{
			TargetGroupName: name("alb-tg"),
			TargetType:      awselasticloadbalancingv2.TargetType_INSTANCE,
			Targets:         &[]awselasticloadbalancingv2.IApplicationLoadBalancerTarget{asg},
			Protocol:        awselasticloadbalancingv2.ApplicationProtocol_HTTP,
			Port:            jsii.Number(80),
			HealthCheck: &awselasticloadbalancingv2.HealthCheck{
				Protocol: awselasticloadbalancingv2.Protocol_HTTP,
				Port:     jsii.String("traffic-port"),
			},
			Vpc: vpc,
		})

	alb.AddListener(jsii.String("ListenerHTTPS"), &awselasticloadbalancingv2.BaseApplicationListenerProps{
		Protocol:  awselasticloadbalancingv2.ApplicationProtocol_HTTPS,
		SslPolicy: awselasticloadbalancingv2.SslPolicy_TLS13_13,
		Certificates: &[]awselasticloadbalancingv2.IListenerCertificate{
			awselasticloadbalancingv2.ListenerCertificate_FromCertificateManager(con.certificate),
		},
		DefaultTargetGroups: &[]awselasticloadbalancingv2.IApplicationTargetGroup{targetGroup},
		Open:                jsii.Bool(false),
	})

	alb.AddListener(jsii.String("ListenerHTTP"), &awselasticloadbalancingv2.BaseApplicationListenerProps{
		Protocol: awselasticloadbalancingv2.ApplicationProtocol_HTTP,
		DefaultAction: awselasticloadbalancingv2.ListenerAction_Redirect(&awselasticloadbalancingv2.RedirectOptions{
			Protocol:  jsii.String("HTTPS"),
			Port:      jsii.String("443"),
			Host:      jsii.String("#{host}"),
			Path:      jsii.String("/#{path}"),
			Query:     jsii.String("#{query}"),
			Permanent: jsii.Bool(true),
		}),
		Open: jsii.Bool(false),
	})

	eicSG := newSecurityGroup(scope, "InstanceConnectSecurityGroup", vpc, *name("eic-security-group"), false)
	eicSG.Connections().AllowTo(asg, awsec2.Port_Tcp(jsii.Number(22)),
		jsii.String("Allow access to EC2 instance from EC2 Instance Connect on port 22"))
	awsec2.NewCfnInstanceConnectEndpoint(scope, jsii.String("InstanceConnectEndpoint"),
		&awsec2.CfnInstanceConnectEndpointProps{
			SubnetId:         (*vpc.PublicSubnets())[0].SubnetId(),
			SecurityGroupIds: &[]*string{eicSG.SecurityGroupId()},
			PreserveClientIp: jsii.Bool(true),
		})
	instanceSG.AddIngressRule(awsec2.Peer_SecurityGroupId(eicSG.SecurityGroupId(), nil), awsec2.Port_Tcp(jsii.Number(22)),
		jsii.String("Allow access to EC2 instance from EC2 Instance Connect on port 22"), jsii.Bool(false))

	bwcdkparams.Store(scope, "LoadBalancerArnParam", paramsNamespace,
		LoadBalancerArnParamName(settings.Area), alb.LoadBalancerArn())
	bwcdkparams.Store(scope, "LoadBalancerSecurityGroupParam", paramsNamespace,
		LoadBalancerSecurityGroupParamName(settings.Area), albSG.SecurityGroupId())

	awscdk.NewCfnOutput(awscdk.Stack_Of(scope), jsii.String(LoadBalancerDNSOutputKey), &awscdk.CfnOutputProps{
		Value:       alb.LoadBalancerDnsName(),
		Description: jsii.String("DNS name of the " + settings.Area + " load balancer"),
	})

	return con
}

// LoadBalancerArnParamName is the parameter name under which the load balancer ARN of an area is stored.
func LoadBalancerArnParamName(area string) string {
	return area + "/alb-arn"
}

// LoadBalancerSecurityGroupParamName is the parameter name under which the load balancer
// security group of an area is stored.
func LoadBalancerSecurityGroupParamName(area string) string {
	return area + "/alb-security-group-id"
}

// LookupLoadBalancer references the load balancer of a region from any stack, reading
// its attributes from that region's parameter store.
func LookupLoadBalancer(
	scope constructs.Construct, id string, region string,
) awselasticloadbalancingv2.IApplicationLoadBalancer {
	cfg := bwcdkutil.ConfigFromScope(scope)
	area := cfg.MustRegion(region).Area

	var arn, sgID *string
	if *awscdk.Stack_Of(scope).Region() == region {
		arn = bwcdkparams.LookupLocal(scope, paramsNamespace, LoadBalancerArnParamName(area))
		sgID = bwcdkparams.LookupLocal(scope, paramsNamespace, LoadBalancerSecurityGroupParamName(area))
	} else {
		arn = bwcdkparams.LookupInRegion(scope, id+"ArnLookup", region, paramsNamespace,
			LoadBalancerArnParamName(area), area+"-alb-arn-lookup")
		sgID = bwcdkparams.LookupInRegion(scope, id+"SecurityGroupLookup", region, paramsNamespace,
			LoadBalancerSecurityGroupParamName(area), area+"-alb-sg-lookup")
	}

	return awselasticloadbalancingv2.ApplicationLoadBalancer_FromApplicationLoadBalancerAttributes(
		scope, jsii.String(id), &awselasticloadbalancingv2.ApplicationLoadBalancerAttributes{
			LoadBalancerArn: arn,
			SecurityGroupId: sgID,
		})
}

func newSecurityGroup(
	scope constructs.Construct, id string, vpc awsec2.IVpc, name string, allowAllOutbound bool,
) awsec2.SecurityGroup {
	sg := awsec2.NewSecurityGroup(scope, jsii.String(id), &awsec2.SecurityGroupProps{
		SecurityGroupName: jsii.String(name),
		Description:       jsii.String(name),
		Vpc:               vpc,
		AllowAllOutbound:  jsii.Bool(allowAllOutbound),
	})
	awscdk.Tags_Of(sg).Add(jsii.String("Name"), jsii.String(name), nil)
	return sg
}

func (s *service) LoadBalancer() awselasticloadbalancingv2.IApplicationLoadBalancer {
	return s.alb
}

func (s *service) AutoScalingGroup() awsautoscaling.AutoScalingGroup {
	return s.asg
}

func (s *service) InstanceRole() awsiam.IRole {
	return s.role
}

func (s *service) Certificate() awscertificatemanager.ICertificate {
	return s.certificate
}
