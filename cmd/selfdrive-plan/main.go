// Command selfdrive-plan runs a single planning invocation from a YAML scenario file and prints a
// summary, grounded on the teacher's motionplan/armplanning/cmd-plan entry-point idiom: a
// flag-parsed command reading an input file, invoking the planner, and logging a result summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"go.viam.com/utils"

	"github.com/SRai22/selfdriving/config"
	"github.com/SRai22/selfdriving/logging"
	"github.com/SRai22/selfdriving/planning"
)

func main() {
	if err := realMain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func realMain() error {
	verbose := flag.Bool("v", false, "verbose")
	flag.Parse()

	if len(flag.Args()) == 0 {
		return fmt.Errorf("need a scenario yaml file")
	}

	logger := logging.NewLogger("selfdrive-plan")
	if *verbose {
		logger.SetLevel(logging.DEBUG)
	}

	path := flag.Arg(0)
	logger.Infof("reading scenario from %s", path)

	scenario, err := config.Load(path)
	if err != nil {
		return err
	}

	input, err := scenario.ToPlannerInput()
	if err != nil {
		return err
	}
	cfg := scenario.Planner.ToPlannerConfig()

	var (
		wg      sync.WaitGroup
		out     *planning.PlannerOutput
		planErr error
		start   = time.Now()
	)

	wg.Add(1)
	utils.PanicCapturingGo(func() {
		defer wg.Done()
		out, planErr = planning.Plan(context.Background(), input, cfg, logger)
	})
	wg.Wait()

	if planErr != nil {
		return planErr
	}

	logger.Infow("planning finished",
		"elapsed", time.Since(start),
		"treeSize", out.Tree.Len(),
		"success", out.Success,
		"hasBestGoalNode", out.HasBestGoalNode,
	)
	if out.HasBestGoalNode {
		node := out.Tree.Node(out.BestGoalNode)
		logger.Infow("best goal node",
			"nodeID", out.BestGoalNode,
			"costToCome", node.CostToCome,
			"pathLength", len(out.Path),
		)
	}

	return nil
}
