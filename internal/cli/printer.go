package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"

	"github.com/sybednar/seedling-imager/internal/event"
)

var (
	faultColor  = color.New(color.FgRed, color.Bold)
	savedColor  = color.New(color.FgGreen)
	plateColor  = color.New(color.FgCyan)
	doneColor   = color.New(color.Bold)
	settleColor = color.New(color.FgYellow)
)

// printEvents consumes bus events and prints them until ctx ends.
// Run it in its own goroutine; it is the CLI's status surface.
func printEvents(ctx context.Context, bus *event.Bus) {
	ch, unsub := bus.Subscribe()
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			printEvent(evt)
		}
	}
}

func printEvent(evt event.Event) {
	switch evt.Kind {
	case event.KindFault:
		faultColor.Printf("!! %s\n", evt.Msg)
	case event.KindImageSaved:
		savedColor.Printf("   saved %s\n", evt.Msg)
	case event.KindPlate:
		plateColor.Printf("-> plate #%d\n", evt.Plate)
	case event.KindSettleStart:
		settleColor.Printf("   settling on plate #%d...\n", evt.Plate)
	case event.KindSettleEnd:
		// End of settle is visible from the next status line.
	case event.KindRunFinished:
		doneColor.Printf("== run %s\n", evt.Msg)
	default:
		fmt.Println(evt.Msg)
	}
}
