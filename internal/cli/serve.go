package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sybednar/seedling-imager/internal/debug"
	"github.com/sybednar/seedling-imager/internal/event"
	"github.com/sybednar/seedling-imager/internal/hw/leds"
	"github.com/sybednar/seedling-imager/internal/logic/experiment"
	"github.com/sybednar/seedling-imager/internal/runlog"
	"github.com/sybednar/seedling-imager/internal/web"
)

// ServeCmd returns the serve command: the web control surface.
func ServeCmd(cfgPath *string) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web control surface",
		Long: `Serve the control page: start/abort experiments, manual jog, live
status stream (SSE), and the out-of-band emergency stop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := buildRig(*cfgPath)
			if err != nil {
				return err
			}
			defer r.close()

			// Tee debug output into the status stream, as on the console.
			debug.SetOutput(io.MultiWriter(os.Stdout, event.BusWriter(r.bus)))

			runFn := func(ctx context.Context, req web.RunRequest) error {
				illum, err := leds.ParseMode(req.Mode)
				if err != nil {
					return err
				}
				plan := experiment.Plan{
					Plates:   req.Plates,
					Duration: time.Duration(req.DurationDays) * 24 * time.Hour,
					Cadence:  time.Duration(req.CadenceMinutes) * time.Minute,
					Mode:     illum,
					Settle:   r.cfg.SettleWait(),
				}
				_, err = r.runExperiment(ctx, plan)
				return err
			}

			jogFn := func(ctx context.Context, action string, target int) error {
				switch action {
				case "home":
					_, err := r.car.Home(ctx)
					return err
				case "advance":
					_, err := r.car.Advance(ctx)
					return err
				case "goto":
					if _, homed := r.car.Plate(); !homed {
						if _, err := r.car.Home(ctx); err != nil {
							return err
						}
					}
					_, err := r.car.Goto(ctx, target)
					return err
				default:
					return fmt.Errorf("unknown motion action %q", action)
				}
			}

			stateFn := func() web.StateInfo {
				plate, homed := r.car.Plate()
				return web.StateInfo{
					State: r.car.State().String(),
					Plate: plate,
					Homed: homed,
				}
			}

			estimateFn := func(req web.RunRequest) runlog.Estimate {
				return runlog.EstimateStorage(r.cfg.Experiment.ImagesRoot,
					len(req.Plates), req.DurationDays, req.CadenceMinutes,
					r.cfg.Experiment.AvgImageMB)
			}

			handlers := web.NewHandlers(
				r.bus,
				runFn,
				jogFn,
				r.kill.Trigger,
				stateFn,
				estimateFn,
				web.FormConfig{
					DurationDays:   1,
					CadenceMinutes: 30,
					Mode:           string(leds.ModeGreen),
					SettleSeconds:  r.cfg.Experiment.SettleSeconds,
				},
				nil,
			)

			ctx, cancel := jogContext()
			defer cancel()

			srv := web.NewServer(fmt.Sprintf(":%d", port), handlers)
			return srv.Run(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "HTTP listen port")
	return cmd
}
