package cdkctx_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/basewarphq/bwdr/bwcdk/bwcdkutil"
	"github.com/basewarphq/bwdr/cmd/internal/cdkctx"
	"github.com/basewarphq/bwdr/cmd/internal/testutil"
)

const validCdkJSON = `{
  "app": "go run .",
  "context": {
    "@aws-cdk/core:bootstrapQualifier": "bwdr",
    "bwdr-qualifier": "bwdr",
    "bwdr-service-name": "shop",
    "bwdr-hosted-zone-name": "example.com",
    "bwdr-primary-region": "ap-northeast-1",
    "bwdr-secondary-region": "ap-northeast-3",
    "bwdr-cidr-ap-northeast-1": "10.0.0.0/16",
    "bwdr-cidr-ap-northeast-3": "10.1.0.0/16",
    "bwdr-azs-ap-northeast-1": ["ap-northeast-1a", "ap-northeast-1c"],
    "bwdr-azs-ap-northeast-3": ["ap-northeast-3a", "ap-northeast-3c"],
    "bwdr-session-table": "true",
    "@aws-cdk/aws-iam:minimizePolicies": true
  }
}`

func TestLoad(t *testing.T) {
	t.Parallel()
	dir := testutil.Setup(t, map[string]string{
		"cdk.json": validCdkJSON,
		"cdk.context.json": `{
  "bwdr-area-ap-northeast-3": "kansai",
  "availability-zones:account=123456789012:region=ap-northeast-1": ["ap-northeast-1a"]
}`,
	})

	cctx, err := cdkctx.Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cctx.Prefix != "bwdr-" || cctx.Qualifier != "bwdr" {
		t.Errorf("Prefix/Qualifier = %q/%q", cctx.Prefix, cctx.Qualifier)
	}
	if !cctx.UsesAccelerator() {
		t.Error("global routing should default to accelerator")
	}
	if cctx.GlobalDatabaseIdentifier != "shop-global-database" {
		t.Errorf("GlobalDatabaseIdentifier = %q", cctx.GlobalDatabaseIdentifier)
	}
	if !cctx.SessionTable {
		t.Error("SessionTable should be true")
	}
	if cctx.Areas["ap-northeast-1"] != "tokyo" || cctx.Areas["ap-northeast-3"] != "kansai" {
		t.Errorf("Areas = %v", cctx.Areas)
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		replace [2]string
	}{
		{name: "bad routing", replace: [2]string{`"bwdr-session-table": "true"`, `"bwdr-global-routing": "anycast"`}},
		{name: "unknown key", replace: [2]string{`"bwdr-session-table": "true"`, `"bwdr-sesion-table": true`}},
		{name: "three azs", replace: [2]string{
			`["ap-northeast-1a", "ap-northeast-1c"]`, `["ap-northeast-1a", "ap-northeast-1c", "ap-northeast-1d"]`,
		}},
		{name: "missing service", replace: [2]string{`"bwdr-service-name": "shop",`, ``}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := testutil.Setup(t, map[string]string{
				"cdk.json": strings.Replace(validCdkJSON, tt.replace[0], tt.replace[1], 1),
			})

			_, err := cdkctx.Load(dir)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), "invalid CDK context") {
				t.Errorf("error = %q, want schema violation", err.Error())
			}
		})
	}
}

func TestLoad_UnknownRegionListsKnownRegions(t *testing.T) {
	t.Parallel()
	dir := testutil.Setup(t, map[string]string{
		"cdk.json": strings.Replace(validCdkJSON,
			`"bwdr-secondary-region": "ap-northeast-3"`, `"bwdr-secondary-region": "xx-fake-9"`, 1),
	})

	_, err := cdkctx.Load(dir)
	if err == nil {
		t.Fatal("expected error for unknown region")
	}
	for _, want := range []string{`unknown region "xx-fake-9"`, "known: ", "ap-northeast-3"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error = %q, want it to contain %q", err.Error(), want)
		}
	}
}

func TestLoad_MissingBootstrapQualifier(t *testing.T) {
	t.Parallel()
	dir := testutil.Setup(t, map[string]string{"cdk.json": `{"context": {}}`})

	_, err := cdkctx.Load(dir)
	if err == nil || !strings.Contains(err.Error(), "bootstrapQualifier") {
		t.Fatalf("expected bootstrapQualifier error, got %v", err)
	}
}

func TestStageStacks(t *testing.T) {
	t.Parallel()
	cctx := &cdkctx.CDKContext{
		Qualifier:       "bwdr",
		PrimaryRegion:   "ap-northeast-1",
		SecondaryRegion: "ap-northeast-3",
		GlobalRouting:   bwcdkutil.GlobalRoutingAccelerator,
	}

	all, err := cctx.StageStacks(cdkctx.StageAll)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		"bwdrApn1Regional", "bwdrApn3Regional",
		"bwdrApn1Peering", "bwdrApn3Peering",
		"bwdrApn1Global",
	}
	if !slices.Equal(all, want) {
		t.Errorf("StageStacks(all) = %v, want %v", all, want)
	}

	cctx.GlobalRouting = bwcdkutil.GlobalRoutingDNSFailover
	if _, err := cctx.StageStacks(cdkctx.StageGlobal); err == nil {
		t.Error("global stage should fail with DNS failover routing")
	}
	if _, err := cctx.StageStacks("bogus"); err == nil {
		t.Error("unknown stage should fail")
	}
}

func TestResolveStackRegion(t *testing.T) {
	t.Parallel()
	cctx := &cdkctx.CDKContext{
		Qualifier: "bwdr",
		Areas:     map[string]string{"ap-northeast-1": "tokyo", "ap-northeast-3": "osaka"},
	}

	tests := []struct {
		stack  string
		region string
		ok     bool
	}{
		{"bwdrApn1Regional", "ap-northeast-1", true},
		{"bwdrApn3Peering", "ap-northeast-3", true},
		{"otherApn1Regional", "", false},
		{"bwdrUse1Regional", "", false},
	}
	for _, tt := range tests {
		region, ok := cctx.ResolveStackRegion(tt.stack)
		if region != tt.region || ok != tt.ok {
			t.Errorf("ResolveStackRegion(%q) = %q, %v; want %q, %v", tt.stack, region, ok, tt.region, tt.ok)
		}
	}
}
