// Command replyhive is a CLI tool for operating the scheduler workflows.
//
// Usage:
//
//	replyhive rollover              run one rollover pass now
//	replyhive purge                 run one retention purge now
//	replyhive schedule [--cron C]   install the cron workflows
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"go.temporal.io/sdk/client"

	"github.com/replyhive/replyhive-go/internal/temporal/versioning"
	"github.com/replyhive/replyhive-go/internal/temporal/workflows"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "rollover":
		cmdRollover(os.Args[2:])
	case "purge":
		cmdPurge(os.Args[2:])
	case "schedule":
		cmdSchedule(os.Args[2:])
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: replyhive <rollover|purge|schedule> [flags]")
	os.Exit(1)
}

func dial() client.Client {
	c, err := client.Dial(client.Options{})
	if err != nil {
		log.Fatalf("unable to create Temporal client: %v", err)
	}
	return c
}

func cmdRollover(args []string) {
	fs := flag.NewFlagSet("rollover", flag.ExitOnError)
	_ = fs.Parse(args)

	c := dial()
	defer c.Close()

	ctx := context.Background()
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        versioning.RolloverV1 + "-manual",
		TaskQueue: versioning.QueueScheduler,
	}, workflows.RolloverWorkflow)
	if err != nil {
		log.Fatalf("start rollover: %v", err)
	}

	var result workflows.RolloverResult
	if err := run.Get(ctx, &result); err != nil {
		log.Fatalf("rollover: %v", err)
	}
	printJSON(result)
}

func cmdPurge(args []string) {
	fs := flag.NewFlagSet("purge", flag.ExitOnError)
	_ = fs.Parse(args)

	c := dial()
	defer c.Close()

	ctx := context.Background()
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        versioning.PurgeV1 + "-manual",
		TaskQueue: versioning.QueueScheduler,
	}, workflows.PurgeWorkflow)
	if err != nil {
		log.Fatalf("start purge: %v", err)
	}

	var result workflows.PurgeResult
	if err := run.Get(ctx, &result); err != nil {
		log.Fatalf("purge: %v", err)
	}
	printJSON(result)
}

// cmdSchedule installs the recurring workflows: rollover every few
// minutes (idempotent; drained windows are skipped) and purge daily.
func cmdSchedule(args []string) {
	fs := flag.NewFlagSet("schedule", flag.ExitOnError)
	cron := fs.String("cron", "*/5 * * * *", "cron spec for the rollover workflow")
	_ = fs.Parse(args)

	c := dial()
	defer c.Close()

	ctx := context.Background()
	if _, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:           versioning.RolloverV1 + "-cron",
		TaskQueue:    versioning.QueueScheduler,
		CronSchedule: *cron,
	}, workflows.RolloverWorkflow); err != nil {
		log.Fatalf("schedule rollover: %v", err)
	}

	if _, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:           versioning.PurgeV1 + "-cron",
		TaskQueue:    versioning.QueueScheduler,
		CronSchedule: "17 3 * * *",
	}, workflows.PurgeWorkflow); err != nil {
		log.Fatalf("schedule purge: %v", err)
	}

	fmt.Println("schedules installed")
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("marshal: %v", err)
	}
	fmt.Println(string(data))
}
