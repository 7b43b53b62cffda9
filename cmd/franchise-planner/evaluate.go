package main

import (
	"fmt"
	"os"
	"time"

	"github.com/KatTate/katalyst-franchise-planner/internal/config"
	"github.com/KatTate/katalyst-franchise-planner/internal/engine"
	"github.com/KatTate/katalyst-franchise-planner/internal/plan"
	"github.com/KatTate/katalyst-franchise-planner/internal/scenario"
	"github.com/KatTate/katalyst-franchise-planner/pkg/output"
	"github.com/KatTate/katalyst-franchise-planner/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newEvaluateCmd(flags *rootFlags) *cobra.Command {
	var outputFormat string
	cmd := &cobra.Command{
		Use:   "evaluate <plan.yaml>",
		Short: "Project a plan file and print its Guardian, completeness and scenario summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logger, err := loadRuntime(flags)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			// CLI override takes precedence over config
			format := conf.Output.Format
			if outputFormat != "" {
				format = outputFormat
			}
			if err := validation.ValidateOutputFormat(format); err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading plan file: %w", err)
			}
			p, err := plan.DecodeYAML(data)
			if err != nil {
				return err
			}
			seedFromBrand(p, conf)

			ctx := contextOrBackground(cmd.Context())
			projector := engine.NewLinearProjector(logger, conf.Projection.Months)
			outputs, err := scenario.Derive(ctx, logger, projector, *p)
			if err != nil {
				logger.Error("failed to project plan",
					zap.String("op", "main.evaluate"),
					zap.String("plan", p.ID),
					zap.Error(err),
				)
				return err
			}

			report := output.NewReport(*p, outputs.Base, outputs, time.Now)
			return output.Write(cmd.OutOrStdout(), format, report)
		},
	}
	cmd.Flags().StringVar(&outputFormat, "output", "", "type of output override: pretty, csv, yaml")
	return cmd
}

// seedFromBrand fills a plan file that omits its inputs or startup costs
// from the configured brand.
func seedFromBrand(p *plan.Plan, conf *config.Configuration) {
	defaults := conf.BrandDefaults()
	empty := true
	for _, category := range plan.Categories {
		if len(p.FinancialInputs.Group(category)) > 0 {
			empty = false
			break
		}
	}
	if empty && len(p.FinancialInputs.OperatingCosts.FacilitiesDecomposition) == 0 {
		p.FinancialInputs = plan.NewFromBrandDefaults(defaults)
	}
	if p.StartupCosts == nil {
		p.StartupCosts = defaults.DefaultStartupCosts()
	}
	if p.BrandID == "" {
		p.BrandID = conf.Brand.ID
	}
}
