package cfnread

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/basewarphq/bwdr/cmd/internal/cmdexec"
	"github.com/cockroachdb/errors"
)

type describeStacksResponse struct {
	Stacks []struct {
		StackStatus string `json:"StackStatus"`
		Outputs     []struct {
			OutputKey   string `json:"OutputKey"`
			OutputValue string `json:"OutputValue"`
		} `json:"Outputs"`
	} `json:"Stacks"`
}

// Stack is the deployed state of one stack.
type Stack struct {
	Name    string
	Region  string
	Status  string
	Outputs map[string]string
}

// ErrNotDeployed is returned when a stack does not exist.
var ErrNotDeployed = errors.New("stack not deployed")

func Describe(ctx context.Context, run cmdexec.Runner, region, stackName string) (*Stack, error) {
	out, err := run.Output(ctx, "/", "aws", "cloudformation", "describe-stacks",
		"--no-cli-pager",
		"--region", region,
		"--stack-name", stackName,
		"--output", "json",
	)
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return nil, errors.Wrapf(ErrNotDeployed, "%s in %s", stackName, region)
		}
		return nil, errors.Wrapf(err, "describing stack %s in %s", stackName, region)
	}

	var resp describeStacksResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		return nil, errors.Wrapf(err, "parsing stack outputs for %s", stackName)
	}

	if len(resp.Stacks) == 0 {
		return nil, errors.Wrapf(ErrNotDeployed, "%s in %s", stackName, region)
	}

	stack := &Stack{
		Name:    stackName,
		Region:  region,
		Status:  resp.Stacks[0].StackStatus,
		Outputs: make(map[string]string, len(resp.Stacks[0].Outputs)),
	}
	for _, o := range resp.Stacks[0].Outputs {
		stack.Outputs[o.OutputKey] = o.OutputValue
	}
	return stack, nil
}

func StackOutputs(ctx context.Context, run cmdexec.Runner, region, stackName string) (map[string]string, error) {
	stack, err := Describe(ctx, run, region, stackName)
	if err != nil {
		return nil, err
	}
	return stack.Outputs, nil
}

// RequireOutput returns one output of a stack or an error naming the missing key.
func RequireOutput(ctx context.Context, run cmdexec.Runner, region, stackName, key string) (string, error) {
	outputs, err := StackOutputs(ctx, run, region, stackName)
	if err != nil {
		return "", err
	}
	val, ok := outputs[key]
	if !ok || val == "" {
		return "", errors.Newf("stack %s in %s has no output %q", stackName, region, key)
	}
	return val, nil
}
