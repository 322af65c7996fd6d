package main

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkutil"
	"github.com/basewarphq/bwdr/infra/cdk"
)

const projectPrefix = "bwdr"

func main() {
	defer jsii.Close()
	app := awscdk.NewApp(nil)

	bwcdkutil.SetupApp(app, bwcdkutil.AppConfig{
		Prefix:      projectPrefix + "-",
		Description: "Multi-region disaster recovery",
	},
		cdk.NewRegional,
		cdk.NewPeering,
		cdk.NewGlobal,
	)

	app.Synth(nil)
}
