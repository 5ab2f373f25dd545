package main

import (
	"fmt"

	"github.com/amirphl/quote-core/rules"
	"github.com/spf13/cobra"
)

type ruleResult struct {
	Value   rules.Value `json:"value"`
	Type    string      `json:"type"`
	Steps   int         `json:"steps"`
	RefKeys []string    `json:"ref_keys"`
}

func newRuleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Validate and evaluate rule trees",
	}
	cmd.AddCommand(newRuleEvalCmd(), newRuleCheckCmd())
	return cmd
}

func newRuleEvalCmd() *cobra.Command {
	var ruleFile, contextFile string

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a JSON rule tree against a JSON context",
		Long: `Evaluate a rule tree.

The context file is a JSON object of named values, for example {"distance_km": 75}.

Example:
  quotectl rule eval --rule distance.json --context ctx.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := loadRule(cmd, ruleFile)
			if err != nil {
				return err
			}

			ctx := rules.NewContext(nil)
			if contextFile != "" {
				data, err := readInput(cmd, contextFile)
				if err != nil {
					return err
				}
				if ctx, err = rules.ParseContext(data); err != nil {
					return err
				}
			}

			ev := rules.NewRegistry().NewEvaluator()
			v, err := ev.Eval(node, ctx)
			if err != nil {
				return fmt.Errorf("evaluation failed: %w", err)
			}
			return writeJSON(cmd, ruleResult{
				Value:   v,
				Type:    v.Type().String(),
				Steps:   ev.Steps(),
				RefKeys: rules.RefKeys(node),
			})
		},
	}
	cmd.Flags().StringVar(&ruleFile, "rule", "", "JSON rule tree (- for stdin)")
	cmd.Flags().StringVar(&contextFile, "context", "", "JSON context object")
	_ = cmd.MarkFlagRequired("rule")
	return cmd
}

func newRuleCheckCmd() *cobra.Command {
	var ruleFile string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a JSON rule tree and list the context keys it needs",
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := loadRule(cmd, ruleFile)
			if err != nil {
				return err
			}
			return writeJSON(cmd, map[string]any{
				"valid":    true,
				"kind":     node.Kind(),
				"ref_keys": rules.RefKeys(node),
			})
		},
	}
	cmd.Flags().StringVar(&ruleFile, "rule", "", "JSON rule tree (- for stdin)")
	_ = cmd.MarkFlagRequired("rule")
	return cmd
}

func loadRule(cmd *cobra.Command, path string) (rules.Node, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	reg := rules.NewRegistry()
	node, err := reg.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("invalid rule: %w", err)
	}
	if err := reg.Validate(node); err != nil {
		return nil, fmt.Errorf("invalid rule: %w", err)
	}
	return node, nil
}
