package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirphl/quote-core/pricing"
	"github.com/amirphl/quote-core/utils"
	"github.com/spf13/cobra"
)

func newCalcCmd() *cobra.Command {
	var (
		snapshotFile string
		fieldsFile   string
		inputFile    string
		date         string
		audience     string
	)

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Price a document against a pricing snapshot",
		Long: `Run the tiered calculation offline and print the breakdown.

The snapshot holds factors, company, adjustments, materials and surcharges.
The document is either a flat field map (--fields, e.g. {"labor_hours": "18", "stock_key": "OAK-BOARD"})
or a structured input (--input).

Example:
  quotectl calc --snapshot snapshot.json --fields fields.json --date 2026-03-10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (fieldsFile == "") == (inputFile == "") {
				return fmt.Errorf("exactly one of --fields or --input is required")
			}

			data, err := readInput(cmd, snapshotFile)
			if err != nil {
				return err
			}
			var snap pricing.Snapshot
			if err := json.Unmarshal(data, &snap); err != nil {
				return fmt.Errorf("invalid snapshot: %w", err)
			}

			in, err := loadCalcInput(cmd, fieldsFile, inputFile)
			if err != nil {
				return err
			}
			if audience != "" {
				in.Audience = pricing.Audience(audience)
			}
			if date != "" {
				parsed, err := time.ParseInLocation(time.DateOnly, date, time.UTC)
				if err != nil {
					return fmt.Errorf("invalid --date %q: %w", date, err)
				}
				in.Date = parsed
			}
			if in.Date.IsZero() {
				in.Date = utils.UTCNow()
			}

			b, err := pricing.Calculate(in, snap)
			if err != nil {
				return fmt.Errorf("calculation failed: %w", err)
			}
			if err := b.Reconcile(); err != nil {
				return fmt.Errorf("breakdown does not reconcile: %w", err)
			}
			return writeJSON(cmd, b)
		},
	}
	cmd.Flags().StringVar(&snapshotFile, "snapshot", "", "JSON pricing snapshot")
	cmd.Flags().StringVar(&fieldsFile, "fields", "", "JSON field map (- for stdin)")
	cmd.Flags().StringVar(&inputFile, "input", "", "JSON structured input (- for stdin)")
	cmd.Flags().StringVar(&date, "date", "", "calculation date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&audience, "audience", "", "customer audience override")
	_ = cmd.MarkFlagRequired("snapshot")
	return cmd
}

func loadCalcInput(cmd *cobra.Command, fieldsFile, inputFile string) (pricing.Input, error) {
	if inputFile != "" {
		data, err := readInput(cmd, inputFile)
		if err != nil {
			return pricing.Input{}, err
		}
		var in pricing.Input
		if err := json.Unmarshal(data, &in); err != nil {
			return pricing.Input{}, fmt.Errorf("invalid input: %w", err)
		}
		return in, nil
	}

	data, err := readInput(cmd, fieldsFile)
	if err != nil {
		return pricing.Input{}, err
	}
	var fields map[string]string
	if err := json.Unmarshal(data, &fields); err != nil {
		return pricing.Input{}, fmt.Errorf("invalid fields: %w", err)
	}
	return pricing.ParseFields(fields)
}
