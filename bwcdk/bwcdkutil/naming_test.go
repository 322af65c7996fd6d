//nolint:paralleltest // jsii runtime doesn't support parallel tests
package bwcdkutil_test

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
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

func TestResourceName_RegionalStack(t *testing.T) {
	defer jsii.Close()

	tests := []struct {
		name   string
		region string
		label  string
		casing bwcdkutil.Casing
		want   string
	}{
		{
			name:   "camel case",
			region: "ap-northeast-1",
			label:  "AlbSg",
			casing: bwcdkutil.CasingCamel,
			want:   "ShopTokyoAlbSg",
		},
		{
			name:   "lower camel case",
			region: "ap-northeast-1",
			label:  "AlbSg",
			casing: bwcdkutil.CasingLowerCamel,
			want:   "shopTokyoAlbSg",
		},
		{
			name:   "snake case",
			region: "ap-northeast-3",
			label:  "AlbSg",
			casing: bwcdkutil.CasingSnake,
			want:   "shop_osaka_alb_sg",
		},
		{
			name:   "screaming snake case",
			region: "ap-northeast-3",
			label:  "AlbSg",
			casing: bwcdkutil.CasingScreamingSnake,
			want:   "SHOP_OSAKA_ALB_SG",
		},
		{
			name:   "kebab case",
			region: "ap-northeast-1",
			label:  "AlbSg",
			casing: bwcdkutil.CasingKebab,
			want:   "shop-tokyo-alb-sg",
		},
		{
			name:   "screaming kebab case",
			region: "ap-northeast-1",
			label:  "AlbSg",
			casing: bwcdkutil.CasingScreamingKebab,
			want:   "SHOP-TOKYO-ALB-SG",
		},
		{
			name:   "kebab label converted to camel",
			region: "ap-northeast-1",
			label:  "cluster-parameter-group",
			casing: bwcdkutil.CasingCamel,
			want:   "ShopTokyoClusterParameterGroup",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := awscdk.NewApp(nil)
			bwcdkutil.StoreConfig(app, testConfig())

			stack := awscdk.NewStack(app, jsii.String("TestStack"), &awscdk.StackProps{
				Env: &awscdk.Environment{
					Region: jsii.String(tt.region),
				},
			})

			got := bwcdkutil.ResourceName(stack, tt.label, tt.casing)
			if got != tt.want {
				t.Errorf("ResourceName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResourceName_GlobalStack(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	bwcdkutil.StoreConfig(app, testConfig())

	stack := awscdk.NewStack(app, jsii.String("TestStack"), &awscdk.StackProps{
		Env: &awscdk.Environment{
			Region: jsii.String("ap-northeast-1"),
		},
	})
	bwcdkutil.StoreStackKind(stack, bwcdkutil.StackKindGlobal)

	if got := bwcdkutil.ResourceName(stack, "accelerator", bwcdkutil.CasingKebab); got != "shop-accelerator" {
		t.Errorf("ResourceName() = %q, want %q", got, "shop-accelerator")
	}
	if got := bwcdkutil.GlobalResourceName("shop", "accelerator", bwcdkutil.CasingKebab); got != "shop-accelerator" {
		t.Errorf("GlobalResourceName() = %q, want %q", got, "shop-accelerator")
	}
}

func TestResourceName_UnknownRegionPanics(t *testing.T) {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	bwcdkutil.StoreConfig(app, testConfig())

	stack := awscdk.NewStack(app, jsii.String("TestStack"), &awscdk.StackProps{
		Env: &awscdk.Environment{
			Region: jsii.String("eu-west-1"),
		},
	})

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for a region outside the pair")
		}
	}()

	bwcdkutil.ResourceName(stack, "Vpc", bwcdkutil.CasingKebab)
}

func TestStackName(t *testing.T) {
	tests := []struct {
		qualifier string
		ident     string
		kind      bwcdkutil.StackKind
		want      string
	}{
		{"drs", "Apn1", bwcdkutil.StackKindRegional, "drsApn1Regional"},
		{"drs", "Apn3", bwcdkutil.StackKindPeering, "drsApn3Peering"},
		{"myapp", "Use1", bwcdkutil.StackKindGlobal, "myappUse1Global"},
	}
	for _, tt := range tests {
		if got := bwcdkutil.StackName(tt.qualifier, tt.ident, tt.kind); got != tt.want {
			t.Errorf("StackName(%q, %q, %q) = %q, want %q", tt.qualifier, tt.ident, tt.kind, got, tt.want)
		}
	}
}
