package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
)

// jogContext wires signals for a manual motion command: SIGINT/SIGTERM
// cancel cooperatively.
func jogContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// HomeCmd returns the home command (manual jog).
func HomeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "Run the homing sequence and align plate 1",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := buildRig(*cfgPath)
			if err != nil {
				return err
			}
			defer r.close()

			ctx, cancel := jogContext()
			defer cancel()
			go printEvents(ctx, r.bus)

			plate, err := r.car.Home(ctx)
			if err != nil {
				return fmt.Errorf("homing failed: %w", err)
			}
			fmt.Printf("Homing finished. Plate #%d\n", plate)
			return nil
		},
	}
}

// AdvanceCmd returns the advance command (manual jog, one slot).
func AdvanceCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "advance",
		Short: "Rotate the carousel one slot clockwise",
		Long: `Rotate the carousel exactly one slot. Requires a prior homing in the
same process; use 'goto' or 'home' first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := buildRig(*cfgPath)
			if err != nil {
				return err
			}
			defer r.close()

			ctx, cancel := jogContext()
			defer cancel()
			go printEvents(ctx, r.bus)

			// Position is not persisted across processes, so every
			// invocation re-homes before moving.
			if _, err := r.car.Home(ctx); err != nil {
				return fmt.Errorf("homing failed: %w", err)
			}
			plate, err := r.car.Advance(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Moved to Plate #%d\n", plate)
			return nil
		},
	}
}

// GotoCmd returns the goto command (manual jog to a specific plate).
func GotoCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "goto <plate>",
		Short: "Home, then rotate the carousel to the given plate (1-6)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := strconv.Atoi(args[0])
			if err != nil || target < 1 || target > 6 {
				return fmt.Errorf("plate must be 1-6, got %q", args[0])
			}

			r, err := buildRig(*cfgPath)
			if err != nil {
				return err
			}
			defer r.close()

			ctx, cancel := jogContext()
			defer cancel()
			go printEvents(ctx, r.bus)

			if _, err := r.car.Home(ctx); err != nil {
				return fmt.Errorf("homing failed: %w", err)
			}
			plate, err := r.car.Goto(ctx, target)
			if err != nil {
				return err
			}
			fmt.Printf("At Plate #%d\n", plate)
			return nil
		},
	}
}
