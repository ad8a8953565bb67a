package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sybednar/seedling-imager/internal/version"
)

// Root returns the seedling-imager command tree.
func Root() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:     "seedling-imager",
		Short:   "Carousel controller for unattended seedling time-lapse imaging",
		Version: version.String(),
		Long: `seedling-imager positions a six-slot plate carousel under a fixed
camera and runs unattended, multi-day time-lapse acquisition cycles.

Manual jog commands (home, advance, goto) move the carousel outside a
run; 'run' executes a whole experiment headless; 'serve' exposes the
web control surface.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config",
		filepath.Join("configs", "default.yaml"), "path to config file")

	cmd.AddCommand(HomeCmd(&cfgPath))
	cmd.AddCommand(AdvanceCmd(&cfgPath))
	cmd.AddCommand(GotoCmd(&cfgPath))
	cmd.AddCommand(RunCmd(&cfgPath))
	cmd.AddCommand(ServeCmd(&cfgPath))

	return cmd
}
