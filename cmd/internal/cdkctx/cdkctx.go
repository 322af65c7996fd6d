// Package cdkctx reads the deployment settings the CLI needs from the CDK app's context.
package cdkctx

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/basewarphq/bwdr/bwcdk/bwcdkutil"
	"github.com/cockroachdb/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "schema.json"

type CDKContext struct {
	Qualifier                string
	Prefix                   string
	ServiceName              string
	PrimaryRegion            string
	SecondaryRegion          string
	GlobalRouting            bwcdkutil.GlobalRouting
	GlobalDatabaseIdentifier string
	SessionTable             bool
	// Areas maps each region of the pair to its area name.
	Areas map[string]string
}

// Stage selects the stacks a cdk command operates on.
type Stage string

const (
	StageRegional Stage = "regional"
	StagePeering  Stage = "peering"
	StageGlobal   Stage = "global"
	StageAll      Stage = "all"
)

// Stages lists the stages in deployment order.
var Stages = []Stage{StageRegional, StagePeering, StageGlobal, StageAll}

func Load(cdkDir string) (*CDKContext, error) {
	prefix, err := readPrefix(cdkDir)
	if err != nil {
		return nil, err
	}

	raw, err := readContext(cdkDir)
	if err != nil {
		return nil, err
	}

	doc := make(map[string]any)
	for key, val := range raw {
		if name, ok := strings.CutPrefix(key, prefix); ok {
			doc[name] = val
		}
	}

	if err := Validate(doc); err != nil {
		return nil, errors.Wrapf(err, "context with prefix %q in %s", prefix, cdkDir)
	}

	cctx := &CDKContext{
		Prefix:                   prefix,
		Qualifier:                stringValue(doc, "qualifier"),
		ServiceName:              stringValue(doc, "service-name"),
		PrimaryRegion:            stringValue(doc, "primary-region"),
		SecondaryRegion:          stringValue(doc, "secondary-region"),
		GlobalRouting:            bwcdkutil.GlobalRouting(stringValue(doc, "global-routing")),
		GlobalDatabaseIdentifier: stringValue(doc, "global-database-identifier"),
		Areas:                    map[string]string{},
	}
	if cctx.GlobalRouting == "" {
		cctx.GlobalRouting = bwcdkutil.GlobalRoutingAccelerator
	}
	if cctx.GlobalDatabaseIdentifier == "" {
		cctx.GlobalDatabaseIdentifier = cctx.ServiceName + "-global-database"
	}
	switch v := doc["session-table"].(type) {
	case bool:
		cctx.SessionTable = v
	case string:
		cctx.SessionTable = v == "true"
	}

	for _, region := range cctx.Regions() {
		if !bwcdkutil.IsKnownRegion(region) {
			return nil, errors.Newf("unknown region %q (known: %s)",
				region, strings.Join(bwcdkutil.AllKnownRegions(), ", "))
		}
		area := stringValue(doc, "area-"+region)
		if area == "" {
			area = bwcdkutil.DefaultArea(region)
		}
		cctx.Areas[region] = area
	}

	return cctx, nil
}

// Validate checks prefix-stripped context values against the embedded JSON schema.
func Validate(doc map[string]any) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return errors.Wrap(err, "loading context schema")
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return errors.Wrap(err, "compiling context schema")
	}

	// The validator only understands values as produced by encoding/json.
	data, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "encoding context")
	}
	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return errors.Wrap(err, "decoding context")
	}

	if err := schema.Validate(normalized); err != nil {
		return errors.Wrap(err, "invalid CDK context")
	}
	return nil
}

// Regions returns the primary region followed by the secondary region.
func (c *CDKContext) Regions() []string {
	return []string{c.PrimaryRegion, c.SecondaryRegion}
}

// UsesAccelerator reports whether a Global Accelerator fronts the regional load balancers.
func (c *CDKContext) UsesAccelerator() bool {
	return c.GlobalRouting == bwcdkutil.GlobalRoutingAccelerator
}

// StackName returns the name of a stack of the given kind in a region.
func (c *CDKContext) StackName(region string, kind bwcdkutil.StackKind) string {
	return bwcdkutil.StackName(c.Qualifier, bwcdkutil.RegionIdentFor(region), kind)
}

// StageStacks returns the stack names of a stage in deployment order.
func (c *CDKContext) StageStacks(stage Stage) ([]string, error) {
	regional := []string{
		c.StackName(c.PrimaryRegion, bwcdkutil.StackKindRegional),
		c.StackName(c.SecondaryRegion, bwcdkutil.StackKindRegional),
	}
	peering := []string{
		c.StackName(c.PrimaryRegion, bwcdkutil.StackKindPeering),
		c.StackName(c.SecondaryRegion, bwcdkutil.StackKindPeering),
	}
	var global []string
	if c.UsesAccelerator() {
		global = []string{c.StackName(c.PrimaryRegion, bwcdkutil.StackKindGlobal)}
	}

	switch stage {
	case StageRegional:
		return regional, nil
	case StagePeering:
		return peering, nil
	case StageGlobal:
		if len(global) == 0 {
			return nil, errors.Newf("stage %q requires accelerator routing, got %q", stage, c.GlobalRouting)
		}
		return global, nil
	case StageAll, "":
		return append(append(regional, peering...), global...), nil
	default:
		return nil, errors.Newf("unknown stage %q (valid: regional, peering, global, all)", stage)
	}
}

// ResolveStackRegion returns the region of a stack from its name. Only the two
// regions of the deployment resolve.
func (c *CDKContext) ResolveStackRegion(stackName string) (string, bool) {
	rest, ok := strings.CutPrefix(stackName, c.Qualifier)
	if !ok {
		return "", false
	}
	region, ok := bwcdkutil.RegionForIdent(bwcdkutil.ExtractRegionIdent(rest))
	if !ok {
		return "", false
	}
	if _, ours := c.Areas[region]; !ours {
		return "", false
	}
	return region, true
}

func readPrefix(cdkDir string) (string, error) {
	cdkJSON := filepath.Join(cdkDir, "cdk.json")
	data, err := os.ReadFile(cdkJSON)
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", cdkJSON)
	}

	var cfg struct {
		Context map[string]json.RawMessage `json:"context"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return "", errors.Wrapf(err, "parsing %s", cdkJSON)
	}

	raw, ok := cfg.Context["@aws-cdk/core:bootstrapQualifier"]
	if !ok {
		return "", errors.Newf("missing @aws-cdk/core:bootstrapQualifier in %s", cdkJSON)
	}

	var qualifier string
	if err := json.Unmarshal(raw, &qualifier); err != nil {
		return "", errors.Newf("@aws-cdk/core:bootstrapQualifier must be a string in %s", cdkJSON)
	}
	return qualifier + "-", nil
}

// readContext merges the context of cdk.json with cdk.context.json, which wins.
func readContext(cdkDir string) (map[string]any, error) {
	merged := make(map[string]any)

	cdkJSON := filepath.Join(cdkDir, "cdk.json")
	data, err := os.ReadFile(cdkJSON)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", cdkJSON)
	}
	var cfg struct {
		Context map[string]any `json:"context"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", cdkJSON)
	}
	for k, v := range cfg.Context {
		merged[k] = v
	}

	ctxFile := filepath.Join(cdkDir, "cdk.context.json")
	data, err = os.ReadFile(ctxFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return merged, nil
	case err != nil:
		return nil, errors.Wrapf(err, "reading %s", ctxFile)
	}
	var extra map[string]any
	if err := json.Unmarshal(data, &extra); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", ctxFile)
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged, nil
}

func stringValue(doc map[string]any, key string) string {
	s, _ := doc[key].(string)
	return s
}
