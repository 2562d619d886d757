package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"stockpulse/internal/service"
)

// Check runs one cycle and prints the resulting cards.
func (a *App) Check(ctx context.Context, opts CheckOptions, out io.Writer) error {
	svc, cleanup, err := a.newService(ctx, opts.Identity, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	snap := svc.RunCycle(ctx)
	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	return writeSnapshot(out, snap)
}

func writeSnapshot(out io.Writer, snap service.Snapshot) error {
	for _, warning := range snap.Warnings {
		fmt.Fprintf(out, "warning: %s\n", sanitizeInline(warning))
	}
	if snap.Info != "" {
		fmt.Fprintln(out, snap.Info)
	}
	if len(snap.Cards) == 0 {
		return nil
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Symbol\tType\tPrice\tChange\tTarget\tDistance\tVolume\tMin Vol\tTriggered\tNotified")

	for _, card := range snap.Cards {
		distance := "n/a"
		if card.DistancePct.Valid {
			distance = card.DistancePct.Decimal.String() + "%"
		}
		triggered := ""
		if card.Triggered {
			triggered = "ALERT"
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s$\t%s\t%s$\t%s\t%dM\t%dM\t%s\t%s\n",
			card.Symbol,
			card.AlertType,
			card.Price.String(),
			card.Change,
			card.Target.String(),
			distance,
			card.VolumeMillions,
			card.MinVolumeMillions,
			triggered,
			formatDeliveries(card),
		)
	}

	return writer.Flush()
}

func formatDeliveries(card service.Card) string {
	parts := make([]string, 0, len(card.Deliveries))
	for _, d := range card.Deliveries {
		parts = append(parts, d.Channel+":"+d.Outcome)
	}
	return strings.Join(parts, ",")
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
