// Package bwcdkdatabase provides the Aurora MySQL cluster of one region, as a member
// of an Aurora global database.
//
// The cluster in the primary region creates the global database from its own
// storage. The cluster in the secondary region joins that global database as a
// read-only replica: it carries no database name or master credentials of its own
// because both are replicated from the primary.
package bwcdkdatabase

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsrds"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkutil"
)

// ListenerPort is the MySQL port the cluster listens on.
const ListenerPort = 3306

// ClusterArnOutputKey is the CloudFormation output key holding the cluster ARN.
// Operator tooling reads it to fail over or switch over the global database.
const ClusterArnOutputKey = "DatabaseClusterArn"

// Characters that break connection strings or shell quoting in generated passwords.
const secretExcludeCharacters = " % +~`#$&*()|[]{}:;<>?!'/@\"\\"

// Database provides access to the regional member cluster of the global database.
type Database interface {
	// Cluster returns the Aurora cluster.
	Cluster() awsrds.DatabaseCluster
	// ListenerPort returns the port the cluster accepts connections on.
	ListenerPort() float64
	// Secret returns the credentials secret of the cluster. It is nil in the
	// secondary region, which uses the replicated credentials of the primary.
	Secret() awssecretsmanager.ISecret
	// IsPrimary reports whether this cluster is the writer of the global database.
	IsPrimary() bool
}

// Props configures the Database construct.
type Props struct {
	// Vpc to place the cluster in.
	// Required.
	Vpc awsec2.IVpc
	// Subnets for the cluster, normally the isolated tier.
	// Required.
	Subnets *awsec2.SubnetSelection
	// IsPrimary selects whether this cluster creates the global database or joins it.
	IsPrimary bool
	// GlobalDatabaseIdentifier defaults to the configured identifier.
	GlobalDatabaseIdentifier *string
	// MinCapacity and MaxCapacity bound the serverless v2 capacity in ACUs.
	// Defaults are 0.5 and 2.
	MinCapacity *float64
	MaxCapacity *float64
}

type database struct {
	cluster   awsrds.DatabaseCluster
	secret    awssecretsmanager.ISecret
	isPrimary bool
}

// New creates the Aurora MySQL serverless v2 cluster of the stack's region.
func New(scope constructs.Construct, props Props) Database {
	if props.Vpc == nil || props.Subnets == nil {
		panic("bwcdkdatabase: Vpc and Subnets are required")
	}

	scope = constructs.NewConstruct(scope, jsii.String("Database"))
	con := &database{isPrimary: props.IsPrimary}
	cfg := bwcdkutil.ConfigFromScope(scope)

	name := func(label string) *string {
		return jsii.String(bwcdkutil.ResourceName(scope, label, bwcdkutil.CasingKebab))
	}
	prefix := fmt.Sprintf("%s-%s", cfg.ServiceName, bwcdkutil.Area(scope))

	globalIdent := props.GlobalDatabaseIdentifier
	if globalIdent == nil {
		globalIdent = jsii.String(cfg.GlobalDatabaseIdentifier)
	}
	minCapacity := props.MinCapacity
	if minCapacity == nil {
		minCapacity = jsii.Number(0.5)
	}
	maxCapacity := props.MaxCapacity
	if maxCapacity == nil {
		maxCapacity = jsii.Number(2)
	}

	engine := awsrds.DatabaseClusterEngine_AuroraMysql(&awsrds.AuroraMysqlClusterEngineProps{
		Version: awsrds.AuroraMysqlEngineVersion_VER_3_04_1(),
	})

	clusterParams := awsrds.NewParameterGroup(scope, jsii.String("ClusterParameterGroup"), &awsrds.ParameterGroupProps{
		Engine:      engine,
		Description: jsii.String("Cluster parameter group for " + prefix),
		Parameters: &map[string]*string{
			"slow_query_log": jsii.String("1"),
		},
	})
	clusterParams.BindToCluster(&awsrds.ParameterGroupClusterBindOptions{})
	clusterParams.Node().DefaultChild().(awsrds.CfnDBClusterParameterGroup).
		SetDbClusterParameterGroupName(jsii.String(*name("db-cluster-pg-aurora-mysql") + "8"))

	instanceParams := awsrds.NewParameterGroup(scope, jsii.String("InstanceParameterGroup"), &awsrds.ParameterGroupProps{
		Engine:      engine,
		Description: jsii.String("Instance parameter group for " + prefix),
	})
	instanceParams.BindToInstance(&awsrds.ParameterGroupInstanceBindOptions{})
	instanceParams.Node().DefaultChild().(awsrds.CfnDBParameterGroup).
		SetDbParameterGroupName(jsii.String(*name("db-instance-pg-aurora-mysql") + "8"))

	subnetGroup := awsrds.NewSubnetGroup(scope, jsii.String("SubnetGroup"), &awsrds.SubnetGroupProps{
		SubnetGroupName: name("db-subnet-group"),
		Description:     name("db-subnet-group"),
		RemovalPolicy:   awscdk.RemovalPolicy_DESTROY,
		Vpc:             props.Vpc,
		VpcSubnets:      props.Subnets,
	})

	securityGroup := awsec2.NewSecurityGroup(scope, jsii.String("SecurityGroup"), &awsec2.SecurityGroupProps{
		SecurityGroupName: name("db-security-group"),
		Description:       name("db-security-group"),
		Vpc:               props.Vpc,
		AllowAllOutbound:  jsii.Bool(false),
	})
	awscdk.Tags_Of(securityGroup).Add(jsii.String("Name"), name("db-security-group"), nil)

	// The secondary joins with the primary's credentials, so only the primary owns a secret.
	var credentials awsrds.Credentials
	if props.IsPrimary {
		secret := awssecretsmanager.NewSecret(scope, jsii.String("Secret"), &awssecretsmanager.SecretProps{
			SecretName:  name("db-secret"),
			Description: jsii.String("Credentials for " + prefix + " database"),
			GenerateSecretString: &awssecretsmanager.SecretStringGenerator{
				GenerateStringKey:    jsii.String("password"),
				ExcludeCharacters:    jsii.String(secretExcludeCharacters),
				PasswordLength:       jsii.Number(30),
				SecretStringTemplate: jsii.String(`{"username":"admin"}`),
			},
		})
		con.secret = secret
		credentials = awsrds.Credentials_FromSecret(secret, nil)
	}

	monitoringRole := awsiam.NewRole(scope, jsii.String("MonitoringRole"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("monitoring.rds.amazonaws.com"), nil),
		ManagedPolicies: &[]awsiam.IManagedPolicy{
			awsiam.ManagedPolicy_FromAwsManagedPolicyName(jsii.String("service-role/AmazonRDSEnhancedMonitoringRole")),
		},
	})

	instanceProps := func(label string, scaleWithWriter bool) *awsrds.ServerlessV2ClusterInstanceProps {
		return &awsrds.ServerlessV2ClusterInstanceProps{
			InstanceIdentifier:          name("db-instance-" + label),
			ParameterGroup:              instanceParams,
			EnablePerformanceInsights:   jsii.Bool(true),
			PerformanceInsightRetention: awsrds.PerformanceInsightRetention_DEFAULT,
			AllowMajorVersionUpgrade:    jsii.Bool(false),
			AutoMinorVersionUpgrade:     jsii.Bool(true),
			PubliclyAccessible:          jsii.Bool(false),
			ScaleWithWriter:             jsii.Bool(scaleWithWriter),
		}
	}

	cluster := awsrds.NewDatabaseCluster(scope, jsii.String("Cluster"), &awsrds.DatabaseClusterProps{
		Engine:              engine,
		ClusterIdentifier:   name("db-cluster"),
		DefaultDatabaseName: jsii.String(cfg.ServiceName),
		Writer:              awsrds.ClusterInstance_ServerlessV2(jsii.String("WriterInstance"), instanceProps("writer", false)),
		Readers: &[]awsrds.IClusterInstance{
			awsrds.ClusterInstance_ServerlessV2(jsii.String("ReaderInstance"), instanceProps("reader", true)),
		},
		ServerlessV2MinCapacity: minCapacity,
		ServerlessV2MaxCapacity: maxCapacity,
		SubnetGroup:             subnetGroup,
		ParameterGroup:          clusterParams,
		Vpc:                     props.Vpc,
		VpcSubnets:              props.Subnets,
		SecurityGroups:          &[]awsec2.ISecurityGroup{securityGroup},
		Credentials:             credentials,
		RemovalPolicy:           awscdk.RemovalPolicy_DESTROY,
		DeletionProtection:      jsii.Bool(false),
		IamAuthentication:       jsii.Bool(false),
		MonitoringRole:          monitoringRole,
		MonitoringInterval:      awscdk.Duration_Minutes(jsii.Number(1)),
		Backup: &awsrds.BackupProps{
			Retention:       awscdk.Duration_Days(jsii.Number(7)),
			PreferredWindow: jsii.String("17:00-17:30"),
		},
		PreferredMaintenanceWindow: jsii.String("Sat:18:00-Sat:18:30"),
		StorageEncrypted:           jsii.Bool(true),
		StorageEncryptionKey:       awskms.Alias_FromAliasName(scope, jsii.String("EncryptionKey"), jsii.String("alias/aws/rds")),
		CopyTagsToSnapshot:         jsii.Bool(true),
		CloudwatchLogsExports:      jsii.Strings("error", "general", "slowquery", "audit"),
		CloudwatchLogsRetention:    awslogs.RetentionDays_ONE_DAY,
	})
	con.cluster = cluster

	port := awsec2.Port_Tcp(jsii.Number(ListenerPort))
	cluster.Connections().AllowInternally(port,
		jsii.String(fmt.Sprintf("Allow access to database from internal resources on port %d", ListenerPort)))
	cluster.Connections().AllowFrom(awsec2.Peer_Ipv4(props.Vpc.VpcCidrBlock()), port,
		jsii.String(fmt.Sprintf("Allow access to database from VPC resources on port %d", ListenerPort)))

	if props.IsPrimary {
		awsrds.NewCfnGlobalCluster(scope, jsii.String("GlobalDatabase"), &awsrds.CfnGlobalClusterProps{
			GlobalClusterIdentifier:   globalIdent,
			SourceDbClusterIdentifier: cluster.ClusterIdentifier(),
			DeletionProtection:        jsii.Bool(false),
		})
	} else {
		// Name and credentials are replicated from the primary cluster. Without explicit
		// credentials the cluster generated its own secret as child "Secret"; drop it.
		cfnCluster := cluster.Node().DefaultChild().(awsrds.CfnDBCluster)
		cfnCluster.SetGlobalClusterIdentifier(globalIdent)
		cfnCluster.SetDatabaseName(nil)
		cfnCluster.AddPropertyDeletionOverride(jsii.String("MasterUsername"))
		cfnCluster.AddPropertyDeletionOverride(jsii.String("MasterUserPassword"))
		cluster.Node().TryRemoveChild(jsii.String("Secret"))
	}

	awscdk.NewCfnOutput(awscdk.Stack_Of(scope), jsii.String(ClusterArnOutputKey), &awscdk.CfnOutputProps{
		Value:       cluster.ClusterArn(),
		Description: jsii.String("ARN of the " + bwcdkutil.Area(scope) + " member of the global database"),
	})

	return con
}

func (d *database) Cluster() awsrds.DatabaseCluster {
	return d.cluster
}

func (d *database) ListenerPort() float64 {
	return ListenerPort
}

func (d *database) Secret() awssecretsmanager.ISecret {
	return d.secret
}

func (d *database) IsPrimary() bool {
	return d.isPrimary
}
