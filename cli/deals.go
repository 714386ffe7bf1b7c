package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"car-deal-finder/models"
	"car-deal-finder/services"
	"car-deal-finder/storage"
)

func newDealsCmd(a *app) *cobra.Command {
	var (
		minUndervalue float64
		asJSON        bool
		f             models.DealFilter
	)

	cmd := &cobra.Command{
		Use:   "deals",
		Short: "List stored deals, best first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f.MinUndervaluePercent = a.cfg.Deals.MinUndervaluePercent
			if cmd.Flags().Changed("min-undervalue") {
				if math.IsNaN(minUndervalue) {
					return fmt.Errorf("--min-undervalue must be a number")
				}
				f.MinUndervaluePercent = minUndervalue
			}

			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			deals, err := services.NewDealQuery(store).Find(cmd.Context(), f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, deals)
			}
			printDeals(out, deals)
			return nil
		},
	}

	cmd.Flags().Float64Var(&minUndervalue, "min-undervalue", models.DefaultMinUndervaluePercent, "minimum undervalue percent")
	cmd.Flags().StringVar(&f.Make, "make", "", "exact make, case-insensitive")
	cmd.Flags().StringVar(&f.Model, "model", "", "exact model, case-insensitive")
	cmd.Flags().StringVar(&f.Location, "location", "", "location substring, case-insensitive")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newDealCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "deal <id>",
		Short: "Show one deal as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			deal, err := services.NewDealQuery(store).GetByID(cmd.Context(), args[0])
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("deal %q not found", args[0])
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), deal)
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printDeals(w io.Writer, deals []*models.Listing) {
	if len(deals) == 0 {
		fmt.Fprintln(w, "No deals match.")
		return
	}

	header := color.New(color.Bold)
	pct := color.New(color.FgGreen, color.Bold)

	header.Fprintf(w, "%-36s  %8s  %9s  %-30s  %s\n", "ID", "PRICE", "UNDERVAL", "TITLE", "LOCATION")
	for _, l := range deals {
		fmt.Fprintf(w, "%-36s  %8d  %s  %-30s  %s\n",
			l.ID, l.ListedPrice, pct.Sprintf("%8.2f%%", l.UndervaluePercent), clip(l.Title, 30), l.Location)
	}
}

// clip shortens s to at most n runes, cutting on a rune boundary.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}
