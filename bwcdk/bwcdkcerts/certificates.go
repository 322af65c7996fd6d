// Package bwcdkcerts provides the regional ACM certificate for the client-facing
// domain of a disaster-recovery deployment.
//
// Both regions serve the same global domain name, so each region requests its own
// certificate for it (ACM certificates are regional). Validation happens through
// DNS records in the shared hosted zone.
package bwcdkcerts

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awscertificatemanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkparams"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkutil"
)

const paramsNamespace = "certs"

// Certificates provides access to the certificate of the global domain.
type Certificates interface {
	// Certificate returns the ACM certificate covering the domain and its subdomains.
	Certificate() awscertificatemanager.ICertificate
}

// Props configures the Certificates construct.
type Props struct {
	// HostedZone is the Route53 hosted zone used for DNS validation.
	// Required.
	HostedZone awsroute53.IHostedZone
	// DomainName defaults to the global domain name of the deployment.
	DomainName *string
}

type certificates struct {
	certificate awscertificatemanager.ICertificate
}

// New creates a Certificates construct with an ACM certificate for the domain
// and a wildcard for its subdomains.
//
// The certificate ARN is stored in SSM Parameter Store of the same region.
func New(scope constructs.Construct, props Props) Certificates {
	if props.HostedZone == nil {
		panic("bwcdkcerts: HostedZone is required")
	}

	scope = constructs.NewConstruct(scope, jsii.String("Certificates"))
	con := &certificates{}

	domainName := props.DomainName
	if domainName == nil {
		domainName = jsii.String(bwcdkutil.GlobalDomainName(scope))
	}

	con.certificate = awscertificatemanager.NewCertificate(scope, jsii.String("Certificate"),
		&awscertificatemanager.CertificateProps{
			CertificateName:         jsii.String(bwcdkutil.ResourceName(scope, "certificate", bwcdkutil.CasingKebab)),
			DomainName:              domainName,
			SubjectAlternativeNames: jsii.Strings(*domainName, "*."+*domainName),
			Validation:              awscertificatemanager.CertificateValidation_FromDns(props.HostedZone),
		})

	bwcdkparams.Store(scope, "CertificateArnParam", paramsNamespace, certParamName(scope),
		con.certificate.CertificateArn())

	return con
}

func certParamName(scope constructs.Construct) string {
	return bwcdkutil.Area(scope) + "/certificate-arn"
}

func (c *certificates) Certificate() awscertificatemanager.ICertificate {
	return c.certificate
}
