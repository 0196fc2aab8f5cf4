package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"budgee-insights/src/config"
	"budgee-insights/src/features"
	"budgee-insights/src/models"
	"budgee-insights/src/persona"
	"budgee-insights/src/util"

	"github.com/google/subcommands"
)

type computeCmd struct {
	user    string
	windows string
	dryRun  bool
	verbose bool
}

type computeResult struct {
	Features models.FeatureSet        `json:"features"`
	Persona  models.PersonaAssignment `json:"persona"`
}

func (*computeCmd) Name() string     { return "compute" }
func (*computeCmd) Synopsis() string { return "compute and print features and persona for one user" }
func (*computeCmd) Usage() string {
	return `insights compute -user <id> [-window 30d] [-dry-run] [-v]

  Runs every detector and the persona classifier for a single user and prints
  the result as JSON. Results are stored unless -dry-run is given.
`
}

func (c *computeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.user, "user", "", "user id (required)")
	f.StringVar(&c.windows, "window", "all", "comma separated windows to compute")
	f.BoolVar(&c.dryRun, "dry-run", false, "print without storing")
	f.BoolVar(&c.verbose, "v", false, "debug logging")
}

func (c *computeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !util.ValidateUserID(c.user) {
		fmt.Fprintf(os.Stderr, "Error: -user is required and must be a valid id\n")
		return subcommands.ExitUsageError
	}
	windows, err := parseWindows(c.windows)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	e, err := setup(ctx, c.verbose, config.Config.Validate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer e.store.Close()

	conn, err := e.store.Acquire(ctx)
	if err != nil {
		e.log.Error().Err(err).Msg("Failed to acquire connection")
		return subcommands.ExitFailure
	}
	defer conn.Release()

	aggregator := features.NewAggregator(e.log)
	classifier := persona.NewClassifier(e.log)
	results := make([]computeResult, 0, len(windows))
	for _, w := range windows {
		var res computeResult
		if c.dryRun {
			res.Features, err = aggregator.Compute(ctx, conn, c.user, w)
			if err == nil {
				p, criteria := persona.Classify(res.Features)
				res.Persona = models.PersonaAssignment{UserID: c.user, Window: w, Persona: p, CriteriaMet: criteria}
			}
		} else {
			res.Features, err = aggregator.ComputeAndStore(ctx, conn, c.user, w)
			if err == nil {
				res.Persona, err = classifier.Assign(ctx, conn, res.Features)
			}
		}
		if err != nil {
			e.log.Error().Err(err).Str("user_id", c.user).Str("window", string(w)).Msg("Failed to compute user")
			return subcommands.ExitFailure
		}
		results = append(results, res)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
