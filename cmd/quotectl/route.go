package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/amirphl/quote-core/routing"
	"github.com/spf13/cobra"
)

type routeResult struct {
	Confidence float64        `json:"confidence"`
	Tier       routing.Tier   `json:"tier"`
	Action     routing.Action `json:"action"`
}

type fieldsDocument struct {
	Values      map[string]string  `json:"values"`
	Confidences map[string]float64 `json:"confidences"`
}

func newRouteCmd() *cobra.Command {
	var fieldsFile string

	cmd := &cobra.Command{
		Use:   "route [confidence...]",
		Short: "Route confidence scores or a fields document to processing tiers",
		Long: `Route one or more confidence scores to their processing tier.

With --fields the file must hold {"values": {...}, "confidences": {...}};
every field is annotated and the tier counts are printed.

Example:
  quotectl route 0.95 0.81 0.7 0.2
  quotectl route --fields fields.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fieldsFile != "" {
				return routeFields(cmd, fieldsFile)
			}
			if len(args) == 0 {
				return fmt.Errorf("at least one confidence score or --fields is required")
			}
			results := make([]routeResult, 0, len(args))
			for _, arg := range args {
				c, err := strconv.ParseFloat(arg, 64)
				if err != nil {
					return fmt.Errorf("invalid confidence %q: %w", arg, err)
				}
				tier := routing.Route(c)
				results = append(results, routeResult{Confidence: c, Tier: tier, Action: tier.Action()})
			}
			return writeJSON(cmd, results)
		},
	}
	cmd.Flags().StringVar(&fieldsFile, "fields", "", "JSON fields document (- for stdin)")
	return cmd
}

func routeFields(cmd *cobra.Command, path string) error {
	data, err := readInput(cmd, path)
	if err != nil {
		return err
	}
	var doc fieldsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid fields document: %w", err)
	}
	routes := routing.Annotate(doc.Values, doc.Confidences)
	return writeJSON(cmd, map[string]any{
		"routes": routes,
		"counts": routing.Counts(routes),
	})
}
