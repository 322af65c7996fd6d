package cfnread_test

import (
	"context"
	"strings"
	"testing"

	"github.com/basewarphq/bwdr/cmd/internal/cfnread"
	"github.com/basewarphq/bwdr/cmd/internal/testutil"
	"github.com/cockroachdb/errors"
)

const describeOutput = `{
  "Stacks": [{
    "StackName": "bwdrApn1Regional",
    "StackStatus": "UPDATE_COMPLETE",
    "Outputs": [
      {"OutputKey": "DatabaseClusterArn", "OutputValue": "arn:aws:rds:ap-northeast-1:123456789012:cluster:shop-tokyo-db-cluster"},
      {"OutputKey": "LoadBalancerDnsName", "OutputValue": "internal-shop-tokyo-alb.elb.amazonaws.com"}
    ]
  }]
}`

func TestDescribe(t *testing.T) {
	t.Parallel()
	run := (&testutil.FakeRunner{}).On("--stack-name bwdrApn1Regional", describeOutput)

	stack, err := cfnread.Describe(context.Background(), run, "ap-northeast-1", "bwdrApn1Regional")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stack.Status != "UPDATE_COMPLETE" {
		t.Errorf("Status = %q", stack.Status)
	}
	if len(stack.Outputs) != 2 {
		t.Errorf("Outputs = %v", stack.Outputs)
	}
	if !run.Called("aws cloudformation describe-stacks", "--region ap-northeast-1") {
		t.Errorf("unexpected calls: %v", run.Calls)
	}
}

func TestDescribe_NotDeployed(t *testing.T) {
	t.Parallel()
	run := (&testutil.FakeRunner{}).Fail("describe-stacks",
		errors.New("An error occurred (ValidationError): Stack with id bwdrApn3Regional does not exist"))

	_, err := cfnread.Describe(context.Background(), run, "ap-northeast-3", "bwdrApn3Regional")
	if !errors.Is(err, cfnread.ErrNotDeployed) {
		t.Fatalf("expected ErrNotDeployed, got %v", err)
	}
}

func TestRequireOutput(t *testing.T) {
	t.Parallel()
	run := (&testutil.FakeRunner{}).On("describe-stacks", describeOutput)

	arn, err := cfnread.RequireOutput(context.Background(), run, "ap-northeast-1", "bwdrApn1Regional",
		"DatabaseClusterArn")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(arn, ":cluster:shop-tokyo-db-cluster") {
		t.Errorf("DatabaseClusterArn = %q", arn)
	}

	_, err = cfnread.RequireOutput(context.Background(), run, "ap-northeast-1", "bwdrApn1Regional", "Missing")
	if err == nil || !strings.Contains(err.Error(), `no output "Missing"`) {
		t.Errorf("expected missing output error, got %v", err)
	}
}
