// Package bwcdkdynamo provides a DynamoDB global table shared by both regions of a
// disaster-recovery deployment.
//
// The table is created by the primary regional stack with a replica in the secondary
// region. Both regions address it by the same name, so sessions written before a
// failover remain readable after it. Items carry a partition key (pk), a sort key (sk)
// and an optional expiry attribute (expires_at).
package bwcdkdynamo

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsdynamodb"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkparams"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkutil"
)

const paramsNamespace = "dynamo"

// TimeToLiveAttribute is the item attribute holding the expiry as epoch seconds.
const TimeToLiveAttribute = "expires_at"

// Dynamo provides access to a DynamoDB global table that works across regions.
type Dynamo interface {
	// Table returns the DynamoDB table.
	// In the primary region, this is the actual table.
	// In the secondary region, this is a reference to the replica.
	Table() awsdynamodb.ITableV2

	// GrantReadWriteData grants read/write permissions on the table. The table has
	// no secondary indexes.
	GrantReadWriteData(grantee awsiam.IGrantable)
}

// Props configures the Dynamo construct.
type Props struct {
	// Identifier distinguishes this table from others in the same deployment.
	// Used in the table name and SSM parameter path.
	// Example: "sessions" produces table name "{service}-sessions-table".
	Identifier *string
}

type dynamo struct {
	table      awsdynamodb.ITableV2
	identifier string
}

// New creates a Dynamo construct that manages a DynamoDB global table.
//
// In the primary region: creates the table with a replica in the secondary
// region and stores the table name in SSM Parameter Store.
//
// In the secondary region: looks up the table name from the primary region
// and creates a reference to the replica.
func New(scope constructs.Construct, props Props) Dynamo {
	identifier := identifierOrDefault(props.Identifier)

	constructID := "Dynamo" + bwcdkutil.ResourceName(scope, identifier, bwcdkutil.CasingCamel)
	scope = constructs.NewConstruct(scope, jsii.String(constructID))
	con := &dynamo{identifier: identifier}

	cfg := bwcdkutil.ConfigFromScope(scope)
	region := *awscdk.Stack_Of(scope).Region()
	tableName := TableName(cfg.ServiceName, identifier)
	paramName := identifier + "/table-name"

	if cfg.IsPrimaryRegion(region) {
		table := awsdynamodb.NewTableV2(scope, jsii.String("Table"), &awsdynamodb.TablePropsV2{
			TableName:           jsii.String(tableName),
			PartitionKey:        &awsdynamodb.Attribute{Name: jsii.String("pk"), Type: awsdynamodb.AttributeType_STRING},
			SortKey:             &awsdynamodb.Attribute{Name: jsii.String("sk"), Type: awsdynamodb.AttributeType_STRING},
			TimeToLiveAttribute: jsii.String(TimeToLiveAttribute),
			Billing:             awsdynamodb.Billing_OnDemand(nil),
			RemovalPolicy:       awscdk.RemovalPolicy_DESTROY,
			Replicas: &[]*awsdynamodb.ReplicaTableProps{
				{
					Region: jsii.String(cfg.SecondaryRegion),
					PointInTimeRecoverySpecification: &awsdynamodb.PointInTimeRecoverySpecification{
						PointInTimeRecoveryEnabled: jsii.Bool(true),
					},
				},
			},
			PointInTimeRecoverySpecification: &awsdynamodb.PointInTimeRecoverySpecification{
				PointInTimeRecoveryEnabled: jsii.Bool(true),
			},
		})
		con.table = table

		bwcdkparams.Store(scope, "TableNameParam", paramsNamespace, paramName, jsii.String(tableName))
	} else {
		tableNameLookup := bwcdkparams.Lookup(scope, "LookupTableName",
			paramsNamespace, paramName, identifier+"-table-name-lookup")

		con.table = awsdynamodb.TableV2_FromTableName(scope, jsii.String("Table"), tableNameLookup)
	}

	return con
}

// TableName returns the physical name of a table. It carries no area so that both
// regions agree on it.
func TableName(serviceName, identifier string) string {
	return fmt.Sprintf("%s-%s-table", serviceName, identifier)
}

func identifierOrDefault(identifier *string) string {
	if identifier != nil && *identifier != "" {
		return *identifier
	}
	return "sessions"
}

func (d *dynamo) Table() awsdynamodb.ITableV2 {
	return d.table
}

func (d *dynamo) GrantReadWriteData(grantee awsiam.IGrantable) {
	d.table.GrantReadWriteData(grantee)
}
