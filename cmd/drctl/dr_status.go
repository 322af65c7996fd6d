package main

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/basewarphq/bwdr/cmd/internal/cmdexec"
	"github.com/basewarphq/bwdr/cmd/internal/projcfg"
	"go.uber.org/zap"
)

type StatusCmd struct{}

func (c *StatusCmd) Run(cfg *projcfg.Config, run cmdexec.Runner, logger *zap.Logger) error {
	ctrl, err := newController(cfg, run, logger)
	if err != nil {
		return err
	}

	st, err := ctrl.Status(context.Background())
	if err != nil {
		return err
	}

	rep := reporter{out: os.Stdout}
	rep.Section("Traffic")
	if len(st.EndpointGroups) == 0 {
		rep.Line("DNS failover routing, traffic follows Route 53 health checks")
	} else {
		rows := make([][]string, 0, len(st.EndpointGroups))
		for _, g := range st.EndpointGroups {
			health := make([]string, 0, len(g.Endpoints))
			for _, e := range g.Endpoints {
				health = append(health, e.Health)
			}
			rows = append(rows, []string{
				strconv.Itoa(g.Port),
				g.Region,
				ctrl.Context.Areas[g.Region],
				strconv.FormatFloat(g.TrafficDial, 'f', -1, 64) + "%",
				strings.Join(health, ","),
			})
		}
		rep.Table([]string{"PORT", "REGION", "AREA", "DIAL", "HEALTH"}, rows)
	}
	rep.Line("")

	rep.Section("Global database " + st.GlobalCluster.Identifier + " (" + st.GlobalCluster.Status + ")")
	rows := make([][]string, 0, len(st.GlobalCluster.Members))
	for _, m := range st.GlobalCluster.Members {
		role := "reader"
		if m.IsWriter {
			role = "writer"
		}
		rows = append(rows, []string{m.Arn, role})
	}
	rep.Table([]string{"CLUSTER", "ROLE"}, rows)
	return nil
}
