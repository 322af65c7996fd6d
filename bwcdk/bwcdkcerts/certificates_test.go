//nolint:paralleltest // jsii runtime doesn't support parallel tests
package bwcdkcerts_test

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkcerts"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkutil"
)

func testConfig() *bwcdkutil.Config {
	return &bwcdkutil.Config{
		Qualifier:       "testqual",
		ServiceName:     "shop",
		HostedZoneName:  "example.com",
		PrimaryRegion:   "ap-northeast-1",
		SecondaryRegion: "ap-northeast-3",
		Regions: []bwcdkutil.RegionConfig{
			{Region: "ap-northeast-1", Area: "tokyo", CIDR: "10.0.0.0/16"},
			{Region: "ap-northeast-3", Area: "osaka", CIDR: "10.1.0.0/16"},
		},
	}
}

func newStack(region string) (awscdk.Stack, awsroute53.IHostedZone) {
	app := awscdk.NewApp(nil)
	bwcdkutil.StoreConfig(app, testConfig())
	stack := awscdk.NewStack(app, jsii.String("TestStack"), &awscdk.StackProps{
		Env: &awscdk.Environment{
			Account: jsii.String("123456789012"),
			Region:  jsii.String(region),
		},
	})
	zone := awsroute53.HostedZone_FromHostedZoneAttributes(stack, jsii.String("Zone"),
		&awsroute53.HostedZoneAttributes{
			HostedZoneId: jsii.String("Z0123456789ABC"),
			ZoneName:     jsii.String("example.com"),
		})
	return stack, zone
}

func TestNew_GlobalDomainCertificate(t *testing.T) {
	defer jsii.Close()

	stack, zone := newStack("ap-northeast-1")
	certs := bwcdkcerts.New(stack, bwcdkcerts.Props{HostedZone: zone})

	if certs.Certificate() == nil {
		t.Fatal("Certificate() should not be nil")
	}

	template := assertions.Template_FromStack(stack, nil)
	template.HasResourceProperties(jsii.String("AWS::CertificateManager::Certificate"), map[string]any{
		"DomainName":              "shop.example.com",
		"SubjectAlternativeNames": assertions.Match_ArrayWith(&[]any{"*.shop.example.com"}),
		"ValidationMethod":        "DNS",
	})
	template.HasResourceProperties(jsii.String("AWS::SSM::Parameter"), map[string]any{
		"Name": "/testqual/certs/tokyo/certificate-arn",
	})
}

func TestNew_CustomDomain(t *testing.T) {
	defer jsii.Close()

	stack, zone := newStack("ap-northeast-3")
	bwcdkcerts.New(stack, bwcdkcerts.Props{
		HostedZone: zone,
		DomainName: jsii.String("api.example.com"),
	})

	template := assertions.Template_FromStack(stack, nil)
	template.HasResourceProperties(jsii.String("AWS::CertificateManager::Certificate"), map[string]any{
		"DomainName": "api.example.com",
	})
	template.HasResourceProperties(jsii.String("AWS::SSM::Parameter"), map[string]any{
		"Name": "/testqual/certs/osaka/certificate-arn",
	})
}
