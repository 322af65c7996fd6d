package bwcdkutil

import (
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// Scope-based convenience functions that retrieve Config from the construct tree.
// These provide ergonomic access deep in construct trees without passing *Config explicitly.

// IsPrimaryRegion checks if the given region is the primary region.
// Retrieves Config from the construct tree.
func IsPrimaryRegion(scope constructs.Construct, region string) bool {
	return ConfigFromScope(scope).IsPrimaryRegion(region)
}

// IsPrimaryRegionStack checks if the given stack is in the primary region.
// Retrieves Config from the construct tree.
func IsPrimaryRegionStack(scope constructs.Construct, stack awscdk.Stack) bool {
	return ConfigFromScope(scope).IsPrimaryRegionStack(stack)
}

// Qualifier returns the CDK qualifier.
// Retrieves Config from the construct tree.
func Qualifier(scope constructs.Construct) string {
	return ConfigFromScope(scope).Qualifier
}

// ServiceName returns the service name used as the first segment of resource names.
func ServiceName(scope constructs.Construct) string {
	return ConfigFromScope(scope).ServiceName
}

// PrimaryRegion returns the primary region.
// Retrieves Config from the construct tree.
func PrimaryRegion(scope constructs.Construct) string {
	return ConfigFromScope(scope).PrimaryRegion
}

// SecondaryRegion returns the secondary (standby) region.
func SecondaryRegion(scope constructs.Construct) string {
	return ConfigFromScope(scope).SecondaryRegion
}

// GlobalDomainName returns the client-facing domain name, "{service}.{zone}".
func GlobalDomainName(scope constructs.Construct) string {
	return ConfigFromScope(scope).GlobalDomainName()
}

// RegionSettings returns the per-region settings for the region of the enclosing stack.
func RegionSettings(scope constructs.Construct) RegionConfig {
	return ConfigFromScope(scope).MustRegion(*awscdk.Stack_Of(scope).Region())
}

// GlobalRouting selects how client traffic reaches the regional load balancers.
type GlobalRouting string

const (
	// GlobalRoutingAccelerator fronts both regions with a Global Accelerator.
	GlobalRoutingAccelerator GlobalRouting = "accelerator"
	// GlobalRoutingDNSFailover uses Route 53 PRIMARY/SECONDARY failover records.
	GlobalRoutingDNSFailover GlobalRouting = "dns-failover"
)

// RegionConfig holds the settings that differ between the two regions.
type RegionConfig struct {
	Region            string   `validate:"required"`
	Area              string   `validate:"required,lowercase,alphanum"`
	CIDR              string   `validate:"required,cidrv4"`
	AvailabilityZones []string `validate:"len=2,dive,required"`

	// UserDataTemplate is the raw instance bootstrap template, empty for the built-in default.
	UserDataTemplate string
}

// Config holds all CDK context values validated upfront.
// It centralizes context reading and validation to provide clear error messages.
type Config struct {
	Prefix         string `validate:"required"`
	Qualifier      string `validate:"required,max=10"`
	ServiceName    string `validate:"required,max=24,lowercase"`
	HostedZoneName string `validate:"required,fqdn"`
	HostedZoneID   string // looked up by name when empty
	Account        string // CDK_DEFAULT_ACCOUNT when not set in context

	PrimaryRegion   string `validate:"required"`
	SecondaryRegion string `validate:"required,nefield=PrimaryRegion"`

	// Regions holds the primary region settings first, then the secondary.
	Regions []RegionConfig `validate:"len=2,dive"`

	GlobalDatabaseIdentifier string        `validate:"required"`
	GlobalRouting            GlobalRouting `validate:"oneof=accelerator dns-failover"`
	SessionTable             bool

	// From AppConfig (not context)
	Description string
}

// NewConfig reads and validates all CDK context values.
// Returns an error if any required value is missing or invalid.
func NewConfig(scope constructs.Construct, acfg AppConfig) (*Config, error) {
	var readErrs []string
	prefix := acfg.Prefix

	cfg := &Config{
		Prefix:      prefix,
		Description: acfg.Description,
	}

	cfg.Qualifier, readErrs = readContextString(scope, prefix+"qualifier", readErrs)
	cfg.ServiceName, readErrs = readContextString(scope, prefix+"service-name", readErrs)
	cfg.HostedZoneName, readErrs = readContextString(scope, prefix+"hosted-zone-name", readErrs)
	cfg.HostedZoneID = readOptionalContextString(scope, prefix+"hosted-zone-id")
	cfg.Account = readOptionalContextString(scope, prefix+"account")
	if cfg.Account == "" {
		cfg.Account = os.Getenv("CDK_DEFAULT_ACCOUNT")
	}

	cfg.PrimaryRegion, readErrs = readContextString(scope, prefix+"primary-region", readErrs)
	cfg.SecondaryRegion, readErrs = readContextString(scope, prefix+"secondary-region", readErrs)

	// Validate that all regions are known
	if cfg.PrimaryRegion != "" && !IsKnownRegion(cfg.PrimaryRegion) {
		readErrs = append(readErrs, fmt.Sprintf(
			"unknown primary region %q - add it to bwcdkutil.RegionIdents", cfg.PrimaryRegion))
	}
	if cfg.SecondaryRegion != "" && !IsKnownRegion(cfg.SecondaryRegion) {
		readErrs = append(readErrs, fmt.Sprintf(
			"unknown secondary region %q - add it to bwcdkutil.RegionIdents", cfg.SecondaryRegion))
	}

	userDataDir := readOptionalContextString(scope, prefix+"user-data-dir")
	for _, region := range []string{cfg.PrimaryRegion, cfg.SecondaryRegion} {
		if region == "" || !IsKnownRegion(region) {
			continue
		}
		var rcfg RegionConfig
		rcfg, readErrs = readRegionConfig(scope, prefix, region, userDataDir, readErrs)
		cfg.Regions = append(cfg.Regions, rcfg)
	}

	cfg.GlobalDatabaseIdentifier = readOptionalContextString(scope, prefix+"global-database-identifier")
	if cfg.GlobalDatabaseIdentifier == "" && cfg.ServiceName != "" {
		cfg.GlobalDatabaseIdentifier = cfg.ServiceName + "-global-database"
	}
	cfg.GlobalRouting = GlobalRouting(readOptionalContextString(scope, prefix+"global-routing"))
	if cfg.GlobalRouting == "" {
		cfg.GlobalRouting = GlobalRoutingAccelerator
	}
	cfg.SessionTable = readOptionalContextBool(scope, prefix+"session-table")

	if len(readErrs) > 0 {
		return nil, errors.Errorf("CDK context read errors:\n  - %s", strings.Join(readErrs, "\n  - "))
	}

	// Validate using struct tags
	validate := validator.New(validator.WithRequiredStructEnabled())

	if err := validate.Struct(cfg); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			msgs := make([]string, 0, len(validationErrs))
			for _, e := range validationErrs {
				msgs = append(msgs, formatValidationError(e))
			}
			return nil, errors.Errorf("CDK context validation errors:\n  - %s", strings.Join(msgs, "\n  - "))
		}
		return nil, errors.Errorf("CDK context validation failed: %w", err)
	}

	if msgs := checkTopology(cfg); len(msgs) > 0 {
		return nil, errors.Errorf("CDK context topology errors:\n  - %s", strings.Join(msgs, "\n  - "))
	}

	return cfg, nil
}

// AllRegions returns the primary region followed by the secondary region.
func (c *Config) AllRegions() []string {
	return []string{c.PrimaryRegion, c.SecondaryRegion}
}

// RegionIdent returns the acronym identifier for a region.
func (c *Config) RegionIdent(region string) string {
	return RegionIdentFor(region)
}

// IsPrimaryRegion checks if the given region is the primary region.
func (c *Config) IsPrimaryRegion(region string) bool {
	return region == c.PrimaryRegion
}

// IsPrimaryRegionStack checks if the given stack is in the primary region.
func (c *Config) IsPrimaryRegionStack(stack awscdk.Stack) bool {
	return *stack.Region() == c.PrimaryRegion
}

// PeerRegion returns the other region of the pair.
func (c *Config) PeerRegion(region string) string {
	if region == c.PrimaryRegion {
		return c.SecondaryRegion
	}
	return c.PrimaryRegion
}

// Region returns the settings for a region.
func (c *Config) Region(region string) (RegionConfig, bool) {
	for _, rc := range c.Regions {
		if rc.Region == region {
			return rc, true
		}
	}
	return RegionConfig{}, false
}

// MustRegion is like Region but panics when the region is not one of the pair.
func (c *Config) MustRegion(region string) RegionConfig {
	rc, ok := c.Region(region)
	if !ok {
		panic(fmt.Sprintf("region %q is neither the primary nor the secondary region", region))
	}
	return rc
}

// GlobalDomainName returns the client-facing domain name.
func (c *Config) GlobalDomainName() string {
	return c.ServiceName + "." + c.HostedZoneName
}

// UsesAccelerator reports whether a Global Accelerator fronts the regional load balancers.
func (c *Config) UsesAccelerator() bool {
	return c.GlobalRouting == GlobalRoutingAccelerator
}

// configContextKey is the well-known key used to store validated Config in the construct tree.
const configContextKey = "__bwcdkutil_config"

// StoreConfig stores a validated Config in the app's context so it can be retrieved
// anywhere in the construct tree via ConfigFromScope.
func StoreConfig(app awscdk.App, cfg *Config) {
	app.Node().SetContext(jsii.String(configContextKey), cfg)
}

// ConfigFromScope retrieves the validated Config from the construct tree.
// It panics if Config was not stored (i.e., SetupApp was not called).
func ConfigFromScope(scope constructs.Construct) *Config {
	val := scope.Node().TryGetContext(jsii.String(configContextKey))
	if val == nil {
		panic("bwcdkutil.Config not found in construct tree - was SetupApp or StoreConfig called?")
	}
	cfg, ok := val.(*Config)
	if !ok {
		panic(fmt.Sprintf("bwcdkutil.Config has unexpected type %T", val))
	}
	return cfg
}

// checkTopology verifies the constraints between the two regions that struct tags
// can't express.
// regionalNameLimits holds the longest label of each length-limited resource kind
// named with ResourceName in a regional stack.
var regionalNameLimits = []struct {
	label string
	max   int
}{
	{label: "alb-tg", max: 32},             // load balancer and target group names
	{label: "db-instance-reader", max: 63}, // RDS cluster and instance identifiers
	{label: "instance-role", max: 64},      // IAM role names
}

func checkTopology(cfg *Config) []string {
	var msgs []string

	prefixes := make([]netip.Prefix, 0, len(cfg.Regions))
	for _, rc := range cfg.Regions {
		prefix, err := netip.ParsePrefix(rc.CIDR)
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("cidr for %s: %v", rc.Region, err))
			continue
		}
		prefixes = append(prefixes, prefix.Masked())

		for _, az := range rc.AvailabilityZones {
			if !strings.HasPrefix(az, rc.Region) || len(az) != len(rc.Region)+1 {
				msgs = append(msgs, fmt.Sprintf(
					"availability zone %q does not belong to region %s", az, rc.Region))
			}
		}
	}

	if len(prefixes) == 2 && prefixes[0].Overlaps(prefixes[1]) {
		msgs = append(msgs, fmt.Sprintf(
			"cidr blocks %s and %s overlap, VPC peering requires disjoint ranges", prefixes[0], prefixes[1]))
	}

	if len(cfg.Regions) == 2 && cfg.Regions[0].Area == cfg.Regions[1].Area {
		msgs = append(msgs, fmt.Sprintf("both regions use area %q", cfg.Regions[0].Area))
	}

	for _, rc := range cfg.Regions {
		for _, limit := range regionalNameLimits {
			name := regionalResourceName(cfg.ServiceName, rc.Area, limit.label, CasingKebab)
			if len(name) > limit.max {
				msgs = append(msgs, fmt.Sprintf(
					"resource name %q is %d characters, limit is %d; shorten the service name or area-%s",
					name, len(name), limit.max, rc.Region))
			}
		}
	}

	return msgs
}

func readRegionConfig(
	scope constructs.Construct, prefix, region, userDataDir string, errs []string,
) (RegionConfig, []string) {
	rc := RegionConfig{Region: region}
	rc.CIDR, errs = readContextString(scope, prefix+"cidr-"+region, errs)
	rc.AvailabilityZones, errs = readContextStringSlice(scope, prefix+"azs-"+region, errs)

	rc.Area = readOptionalContextString(scope, prefix+"area-"+region)
	if rc.Area == "" {
		rc.Area = DefaultArea(region)
	}

	if userDataDir != "" {
		path := filepath.Join(userDataDir, "userdata-"+region+".sh")
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			rc.UserDataTemplate = string(data)
		case !os.IsNotExist(err):
			errs = append(errs, fmt.Sprintf("failed to read user data %q: %v", path, err))
		}
	}

	return rc, errs
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Namespace())
	case "max":
		return fmt.Sprintf("%s exceeds maximum length of %s (got %q)", e.Namespace(), e.Param(), e.Value())
	case "len":
		return fmt.Sprintf("%s must have exactly %s entries", e.Namespace(), e.Param())
	case "fqdn":
		return fmt.Sprintf("%s must be a valid domain name (got %q)", e.Namespace(), e.Value())
	case "cidrv4":
		return fmt.Sprintf("%s must be an IPv4 CIDR block (got %q)", e.Namespace(), e.Value())
	case "nefield":
		return fmt.Sprintf("%s must differ from %s (got %q)", e.Namespace(), e.Param(), e.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got %q)", e.Namespace(), e.Param(), e.Value())
	case "lowercase", "alphanum":
		return fmt.Sprintf("%s must be %s (got %q)", e.Namespace(), e.Tag(), e.Value())
	default:
		return fmt.Sprintf("%s failed validation %q", e.Namespace(), e.Tag())
	}
}

func readContextString(scope constructs.Construct, key string, errs []string) (string, []string) {
	val := scope.Node().TryGetContext(jsii.String(key))
	if val == nil {
		return "", append(errs, fmt.Sprintf("context key %q is not set", key))
	}
	s, ok := val.(string)
	if !ok {
		return "", append(errs, fmt.Sprintf("context key %q must be a string, got %T", key, val))
	}
	return s, errs
}

func readContextStringSlice(scope constructs.Construct, key string, errs []string) ([]string, []string) {
	val := scope.Node().TryGetContext(jsii.String(key))
	if val == nil {
		return nil, append(errs, fmt.Sprintf("context key %q is not set", key))
	}

	slice, ok := val.([]any)
	if !ok {
		return nil, append(errs, fmt.Sprintf("context key %q must be an array, got %T", key, val))
	}

	result := make([]string, 0, len(slice))
	for i, v := range slice {
		s, ok := v.(string)
		if !ok {
			return nil, append(errs, fmt.Sprintf("context key %q[%d] must be a string, got %T", key, i, v))
		}
		result = append(result, s)
	}
	return result, errs
}

func readOptionalContextString(scope constructs.Construct, key string) string {
	val := scope.Node().TryGetContext(jsii.String(key))
	if val == nil {
		return ""
	}
	s, ok := val.(string)
	if !ok {
		return ""
	}
	return s
}

func readOptionalContextBool(scope constructs.Construct, key string) bool {
	val := scope.Node().TryGetContext(jsii.String(key))
	if val == nil {
		return false
	}
	switch b := val.(type) {
	case bool:
		return b
	case string:
		// cdk -c flags always arrive as strings
		return b == "true"
	default:
		return false
	}
}
