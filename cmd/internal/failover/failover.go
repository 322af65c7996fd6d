// Package failover moves a deployment between its two regions: it shifts the
// accelerator traffic dials and promotes the target region's cluster in the global
// database.
package failover

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/basewarphq/bwdr/bwcdk/bwcdkaccelerator"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkdatabase"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkutil"
	"github.com/basewarphq/bwdr/cmd/internal/cdkctx"
	"github.com/basewarphq/bwdr/cmd/internal/cfnread"
	"github.com/basewarphq/bwdr/cmd/internal/cmdexec"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Target names the region role traffic is moved to.
type Target string

const (
	TargetPrimary   Target = "primary"
	TargetSecondary Target = "secondary"
)

// ErrWriterTimeout is returned when a switchover does not complete in time.
var ErrWriterTimeout = errors.New("global database writer did not move")

type Controller struct {
	Run               cmdexec.Runner
	Context           *cdkctx.CDKContext
	AcceleratorRegion string
	Logger            *zap.Logger
	// Timeout bounds the wait for a planned switchover.
	Timeout      time.Duration
	PollInterval time.Duration
}

type EndpointGroup struct {
	Arn         string
	Region      string
	Port        int
	TrafficDial float64
	Endpoints   []Endpoint
}

type Endpoint struct {
	ID     string
	Health string
}

type ClusterMember struct {
	Arn      string
	IsWriter bool
}

type GlobalCluster struct {
	Identifier string
	Status     string
	Members    []ClusterMember
}

// Writer returns the ARN of the writer member, or "" if none.
func (g *GlobalCluster) Writer() string {
	for _, m := range g.Members {
		if m.IsWriter {
			return m.Arn
		}
	}
	return ""
}

type Status struct {
	// EndpointGroups is empty with DNS failover routing.
	EndpointGroups []EndpointGroup
	GlobalCluster  *GlobalCluster
}

// Region returns the region a target role maps to.
func (c *Controller) Region(target Target) (string, error) {
	switch target {
	case TargetPrimary:
		return c.Context.PrimaryRegion, nil
	case TargetSecondary:
		return c.Context.SecondaryRegion, nil
	default:
		return "", errors.Newf("unknown target %q (valid: primary, secondary)", target)
	}
}

func (c *Controller) Status(ctx context.Context) (*Status, error) {
	st := &Status{}

	if c.Context.UsesAccelerator() {
		groups, err := c.endpointGroups(ctx)
		if err != nil {
			return nil, err
		}
		st.EndpointGroups = groups
	}

	gc, err := c.describeGlobalCluster(ctx, c.Context.SecondaryRegion)
	if err != nil {
		return nil, err
	}
	st.GlobalCluster = gc
	return st, nil
}

// Failover makes target the active region. A planned failover switches the database
// over first and waits for the writer to move before shifting traffic. An unplanned
// one shifts traffic first and then fails the database over, accepting data loss.
//
// Only the target region and the accelerator's home region are contacted, so an
// unplanned failover works while the other region is down. The database is promoted
// even when the traffic shift fails; both errors are returned.
func (c *Controller) Failover(ctx context.Context, target Target, planned bool) error {
	region, err := c.Region(target)
	if err != nil {
		return err
	}

	clusterArn, err := cfnread.RequireOutput(ctx, c.Run, region,
		c.Context.StackName(region, bwcdkutil.StackKindRegional), bwcdkdatabase.ClusterArnOutputKey)
	if err != nil {
		return errors.Wrap(err, "resolving target cluster")
	}

	gc, err := c.describeGlobalCluster(ctx, region)
	if err != nil {
		return err
	}
	alreadyWriter := gc.Writer() == clusterArn

	log := c.logger().With(zap.String("target", string(target)), zap.String("region", region))

	if planned {
		if !alreadyWriter {
			if err := c.promote(ctx, region, clusterArn, true); err != nil {
				return err
			}
			if err := c.waitForWriter(ctx, region, clusterArn); err != nil {
				return err
			}
		}
		return c.shiftTraffic(ctx, log, target)
	}

	shiftErr := c.shiftTraffic(ctx, log, target)
	if shiftErr != nil {
		log.Error("traffic shift failed, promoting the database anyway", zap.Error(shiftErr))
	}
	if alreadyWriter {
		log.Info("target cluster is already the writer")
		return shiftErr
	}
	return errors.CombineErrors(shiftErr, c.promote(ctx, region, clusterArn, false))
}

func (c *Controller) shiftTraffic(ctx context.Context, log *zap.Logger, target Target) error {
	if !c.Context.UsesAccelerator() {
		log.Info("DNS failover routing follows health checks, no traffic dials to change")
		return nil
	}

	region, err := c.Region(target)
	if err != nil {
		return err
	}
	groups, err := c.endpointGroups(ctx)
	if err != nil {
		return err
	}

	var raise, drain []EndpointGroup
	for _, g := range groups {
		if g.Region == region {
			raise = append(raise, g)
		} else {
			drain = append(drain, g)
		}
	}
	if len(raise) == 0 {
		return errors.Newf("accelerator has no endpoint group in %s", region)
	}

	// Raise every listener's target group before draining any so traffic always has a home.
	for _, g := range raise {
		if err := c.setDial(ctx, g.Arn, bwcdkaccelerator.PrimaryTrafficDial); err != nil {
			return err
		}
	}
	for _, g := range drain {
		if err := c.setDial(ctx, g.Arn, bwcdkaccelerator.SecondaryTrafficDial); err != nil {
			return err
		}
	}
	log.Info("traffic shifted", zap.Int("raised", len(raise)), zap.Int("drained", len(drain)))
	return nil
}

func (c *Controller) setDial(ctx context.Context, arn string, dial int) error {
	_, err := c.Run.Output(ctx, "/", "aws", "globalaccelerator", "update-endpoint-group",
		"--no-cli-pager",
		"--region", c.AcceleratorRegion,
		"--endpoint-group-arn", arn,
		"--traffic-dial-percentage", strconv.Itoa(dial),
		"--output", "json",
	)
	if err != nil {
		return errors.Wrapf(err, "setting traffic dial of %s to %d", arn, dial)
	}
	return nil
}

func (c *Controller) promote(ctx context.Context, region, clusterArn string, planned bool) error {
	args := []string{"rds"}
	if planned {
		args = append(args, "switchover-global-cluster")
	} else {
		args = append(args, "failover-global-cluster", "--allow-data-loss")
	}
	args = append(args,
		"--no-cli-pager",
		"--region", region,
		"--global-cluster-identifier", c.Context.GlobalDatabaseIdentifier,
		"--target-db-cluster-identifier", clusterArn,
		"--output", "json",
	)

	if _, err := c.Run.Output(ctx, "/", "aws", args...); err != nil {
		return errors.Wrapf(err, "promoting %s", clusterArn)
	}
	c.logger().Info("global database promotion started",
		zap.String("cluster", clusterArn), zap.Bool("planned", planned))
	return nil
}

func (c *Controller) waitForWriter(ctx context.Context, region, clusterArn string) error {
	timeout, interval := c.Timeout, c.PollInterval
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		gc, err := c.describeGlobalCluster(ctx, region)
		if err != nil && ctx.Err() == nil {
			return err
		}
		if err == nil && gc.Writer() == clusterArn && gc.Status == "available" {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrapf(ErrWriterTimeout, "%s after %s", clusterArn, timeout)
		case <-ticker.C:
		}
	}
}

type listAcceleratorsResponse struct {
	Accelerators []struct {
		AcceleratorArn string `json:"AcceleratorArn"`
		Name           string `json:"Name"`
	} `json:"Accelerators"`
}

type listListenersResponse struct {
	Listeners []struct {
		ListenerArn string `json:"ListenerArn"`
		PortRanges  []struct {
			FromPort int `json:"FromPort"`
			ToPort   int `json:"ToPort"`
		} `json:"PortRanges"`
	} `json:"Listeners"`
}

type listEndpointGroupsResponse struct {
	EndpointGroups []struct {
		EndpointGroupArn      string  `json:"EndpointGroupArn"`
		EndpointGroupRegion   string  `json:"EndpointGroupRegion"`
		TrafficDialPercentage float64 `json:"TrafficDialPercentage"`
		EndpointDescriptions  []struct {
			EndpointID  string `json:"EndpointId"`
			HealthState string `json:"HealthState"`
		} `json:"EndpointDescriptions"`
	} `json:"EndpointGroups"`
}

// endpointGroups lists the endpoint groups of every listener of the service's
// accelerator. It only talks to the accelerator's home region.
func (c *Controller) endpointGroups(ctx context.Context) ([]EndpointGroup, error) {
	accArn, err := c.acceleratorArn(ctx)
	if err != nil {
		return nil, err
	}

	var listeners listListenersResponse
	if err := c.globalAccelerator(ctx, &listeners, "list-listeners", "--accelerator-arn", accArn); err != nil {
		return nil, errors.Wrapf(err, "listing listeners of %s", accArn)
	}

	var groups []EndpointGroup
	for _, l := range listeners.Listeners {
		port := 0
		if len(l.PortRanges) > 0 {
			port = l.PortRanges[0].FromPort
		}

		var resp listEndpointGroupsResponse
		if err := c.globalAccelerator(ctx, &resp, "list-endpoint-groups", "--listener-arn", l.ListenerArn); err != nil {
			return nil, errors.Wrapf(err, "listing endpoint groups of %s", l.ListenerArn)
		}
		for _, raw := range resp.EndpointGroups {
			group := EndpointGroup{
				Arn:         raw.EndpointGroupArn,
				Region:      raw.EndpointGroupRegion,
				Port:        port,
				TrafficDial: raw.TrafficDialPercentage,
			}
			for _, d := range raw.EndpointDescriptions {
				group.Endpoints = append(group.Endpoints, Endpoint{ID: d.EndpointID, Health: d.HealthState})
			}
			groups = append(groups, group)
		}
	}
	if len(groups) == 0 {
		return nil, errors.Newf("accelerator %s has no endpoint groups", accArn)
	}
	return groups, nil
}

func (c *Controller) acceleratorArn(ctx context.Context) (string, error) {
	name := bwcdkaccelerator.Name(c.Context.ServiceName)

	var resp listAcceleratorsResponse
	if err := c.globalAccelerator(ctx, &resp, "list-accelerators"); err != nil {
		return "", errors.Wrap(err, "listing accelerators")
	}

	var arns []string
	for _, a := range resp.Accelerators {
		if a.Name == name {
			arns = append(arns, a.AcceleratorArn)
		}
	}
	switch len(arns) {
	case 0:
		return "", errors.Newf("no accelerator named %q in %s", name, c.AcceleratorRegion)
	case 1:
		return arns[0], nil
	default:
		return "", errors.Newf("%d accelerators named %q, expected one", len(arns), name)
	}
}

func (c *Controller) globalAccelerator(ctx context.Context, into any, command string, args ...string) error {
	full := append([]string{"globalaccelerator", command,
		"--no-cli-pager",
		"--region", c.AcceleratorRegion,
	}, args...)
	full = append(full, "--output", "json")

	out, err := c.Run.Output(ctx, "/", "aws", full...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(out), into); err != nil {
		return errors.Wrapf(err, "parsing %s response", command)
	}
	return nil
}

type describeGlobalClustersResponse struct {
	GlobalClusters []struct {
		GlobalClusterIdentifier string `json:"GlobalClusterIdentifier"`
		Status                  string `json:"Status"`
		GlobalClusterMembers    []struct {
			DBClusterArn string `json:"DBClusterArn"`
			IsWriter     bool   `json:"IsWriter"`
		} `json:"GlobalClusterMembers"`
	} `json:"GlobalClusters"`
}

// describeGlobalCluster asks the given region. Global cluster APIs answer from any
// member region.
func (c *Controller) describeGlobalCluster(ctx context.Context, region string) (*GlobalCluster, error) {
	id := c.Context.GlobalDatabaseIdentifier
	out, err := c.Run.Output(ctx, "/", "aws", "rds", "describe-global-clusters",
		"--no-cli-pager",
		"--region", region,
		"--global-cluster-identifier", id,
		"--output", "json",
	)
	if err != nil {
		return nil, errors.Wrapf(err, "describing global cluster %s", id)
	}

	var resp describeGlobalClustersResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		return nil, errors.Wrapf(err, "parsing global cluster %s", id)
	}
	if len(resp.GlobalClusters) == 0 {
		return nil, errors.Newf("global cluster %s not found", id)
	}

	raw := resp.GlobalClusters[0]
	gc := &GlobalCluster{Identifier: raw.GlobalClusterIdentifier, Status: raw.Status}
	for _, m := range raw.GlobalClusterMembers {
		gc.Members = append(gc.Members, ClusterMember{Arn: m.DBClusterArn, IsWriter: m.IsWriter})
	}
	return gc, nil
}

func (c *Controller) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
