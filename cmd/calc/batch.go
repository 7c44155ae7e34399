package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	grpcapi "github.com/lemonberrylabs/five-function-calculator/pkg/api/grpc"
	"github.com/lemonberrylabs/five-function-calculator/pkg/calc"
	"github.com/lemonberrylabs/five-function-calculator/pkg/store"
	"github.com/lemonberrylabs/five-function-calculator/pkg/trace"
)

// batchCase is one entry of a batch file. An empty Expect only prints the
// result.
type batchCase struct {
	Expression string `yaml:"expression"`
	Expect     string `yaml:"expect"`
}

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <file.yaml>",
		Short: "Evaluate a YAML list of {expression, expect} cases",
		Long: "Evaluate every case of a YAML file and print a table of results.\n" +
			"The command fails when any result differs from its expected value.\n" +
			"With --remote the cases run as a batch operation on a calc gRPC server.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cases, err := readBatchFile(args[0])
			if err != nil {
				return err
			}

			var results []store.BatchResult
			if remote, _ := cmd.Flags().GetString("remote"); remote != "" {
				timeout, _ := cmd.Flags().GetDuration("timeout")
				ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
				defer cancel()
				results, err = evaluateRemote(ctx, remote, cases)
				if err != nil {
					return err
				}
			} else {
				results = evaluateLocal(cases)
			}

			failed := writeBatchReport(cmd.OutOrStdout(), cases, results)
			if failed > 0 {
				return fmt.Errorf("%d of %d cases failed", failed, len(cases))
			}
			return nil
		},
	}
	cmd.Flags().String("remote", "", "Evaluate on the calc gRPC server at host:port")
	cmd.Flags().Duration("timeout", 30*time.Second, "Deadline for --remote batches")
	return cmd
}

func readBatchFile(path string) ([]batchCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}
	var cases []batchCase
	if err := yaml.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("parsing batch file %s: %w", path, err)
	}
	return cases, nil
}

func evaluateLocal(cases []batchCase) []store.BatchResult {
	c := calc.New(trace.Discard)
	results := make([]store.BatchResult, len(cases))
	for i, bc := range cases {
		r := c.Calculate(bc.Expression)
		results[i] = store.BatchResult{
			Expression: bc.Expression,
			Result:     r,
			Outcome:    string(calc.Classify(r)),
		}
	}
	return results
}

func evaluateRemote(ctx context.Context, addr string, cases []batchCase) ([]store.BatchResult, error) {
	client, err := grpcapi.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	exprs := make([]string, len(cases))
	for i, bc := range cases {
		exprs[i] = bc.Expression
	}
	results, err := client.EvaluateBatch(ctx, exprs)
	if err != nil {
		return nil, fmt.Errorf("remote batch: %w", err)
	}
	if len(results) != len(cases) {
		return nil, fmt.Errorf("remote batch returned %d results for %d cases", len(results), len(cases))
	}
	return results, nil
}

// writeBatchReport prints one row per case and returns the number of
// mismatches.
func writeBatchReport(w io.Writer, cases []batchCase, results []store.BatchResult) int {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EXPRESSION\tRESULT\tEXPECT\tSTATUS")

	failed := 0
	for i, bc := range cases {
		r := results[i]
		status := "ok"
		switch {
		case bc.Expect == "":
			status = "-"
		case bc.Expect != r.Result:
			status = "FAIL"
			failed++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", display(bc.Expression), r.Result, bc.Expect, status)
	}
	tw.Flush()
	fmt.Fprintf(w, "%d cases, %d failed\n", len(cases), failed)
	return failed
}

// display shortens long expressions for the report.
func display(expr string) string {
	if expr == "" {
		return `""`
	}
	if len(expr) > 40 {
		return expr[:37] + "..."
	}
	return expr
}
