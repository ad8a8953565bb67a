package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sybednar/seedling-imager/internal/hw/leds"
	"github.com/sybednar/seedling-imager/internal/logic/experiment"
	"github.com/sybednar/seedling-imager/internal/runlog"
)

// RunCmd returns the run command: a whole experiment, headless.
func RunCmd(cfgPath *string) *cobra.Command {
	var (
		plates  []int
		days    int
		cadence int
		mode    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an unattended time-lapse experiment",
		Long: `Run acquisition cycles across all six plates for the given duration.
Each cycle starts at plate 1; per plate the selected illumination is
turned on, the camera settles, an image is captured for selected
plates, and the carousel advances. Ctrl-C aborts cooperatively.`,
		Example: `  seedling-imager run --plates 2,4 --days 1 --every 30 --mode green`,
		RunE: func(cmd *cobra.Command, args []string) error {
			illum, err := leds.ParseMode(mode)
			if err != nil {
				return err
			}

			r, err := buildRig(*cfgPath)
			if err != nil {
				return err
			}
			defer r.close()

			plan := experiment.Plan{
				Plates:   plates,
				Duration: time.Duration(days) * 24 * time.Hour,
				Cadence:  time.Duration(cadence) * time.Minute,
				Mode:     illum,
				Settle:   r.cfg.SettleWait(),
			}
			if err := plan.Validate(); err != nil {
				return err
			}

			est := runlog.EstimateStorage(r.cfg.Experiment.ImagesRoot,
				len(plates), days, cadence, r.cfg.Experiment.AvgImageMB)
			fmt.Println(est)
			if est.HaveFree && est.EstGB > est.FreeGB {
				return fmt.Errorf("not enough disk space: need ~%.1f GB, free %.1f GB", est.EstGB, est.FreeGB)
			}

			ctx, cancel := jogContext()
			defer cancel()
			go printEvents(ctx, r.bus)

			term, err := r.runExperiment(ctx, plan)
			if err != nil {
				return err
			}
			if term != experiment.Completed && term != experiment.Aborted {
				return fmt.Errorf("experiment %s", term)
			}
			return nil
		},
	}

	cmd.Flags().IntSliceVar(&plates, "plates", nil, "plates to capture, e.g. 2,4 (required)")
	cmd.Flags().IntVar(&days, "days", 1, "experiment duration in days (0-7)")
	cmd.Flags().IntVar(&cadence, "every", 30, "minutes between cycle starts (1-360)")
	cmd.Flags().StringVar(&mode, "mode", "green", "illumination mode: green or infrared")
	cmd.MarkFlagRequired("plates")

	return cmd
}
