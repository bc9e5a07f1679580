package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hnanmal/B-note/internal/formula"
	"github.com/hnanmal/B-note/internal/symbols"
)

var (
	evalNode string
	evalSet  []string
)

// EvalResult is the outcome of evaluating one formula.
type EvalResult struct {
	Formula     string   `json:"formula"`
	Substituted string   `json:"substituted"`
	Variables   []string `json:"variables"`
	Value       *float64 `json:"value"`
	Error       string   `json:"error,omitempty"`
}

var evalCmd = &cobra.Command{
	Use:   "eval <formula>",
	Short: "Evaluate a formula against a family's symbols and/or KEY=VALUE overrides",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ns := symbols.Namespace{}
		if evalNode != "" {
			d, err := OpenDatabase()
			if err != nil {
				return err
			}
			defer d.Close()
			forest, entries, err := loadCatalog(cmd.Context(), d, true)
			if err != nil {
				return err
			}
			tn, err := ResolveFamily(forest, evalNode)
			if err != nil {
				return err
			}
			if !tn.ManualInput {
				ns = symbols.Resolve(tn.ID, entries, forest.Ancestry())
			}
		}
		overrides, err := parseAssignments(evalSet)
		if err != nil {
			return err
		}
		for k, v := range overrides {
			ns[k] = v
		}

		res := evaluate(args[0], ns)
		if wantJSON() {
			return printJSON(cmd.OutOrStdout(), res)
		}
		out := cmd.OutOrStdout()
		if len(res.Variables) > 0 {
			fmt.Fprintf(out, "%s\n", res.Substituted)
		}
		if res.Value == nil {
			return fmt.Errorf("cannot evaluate %q: %s", res.Formula, res.Error)
		}
		fmt.Fprintln(out, strconv.FormatFloat(*res.Value, 'g', -1, 64))
		return nil
	},
}

func init() {
	evalCmd.Flags().StringVar(&evalNode, "node", "", "Resolve symbols visible from this family (id or name)")
	evalCmd.Flags().StringArrayVar(&evalSet, "set", nil, "Define or override a symbol (KEY=VALUE, repeatable)")
	rootCmd.AddCommand(evalCmd)
}

func evaluate(src string, ns symbols.Namespace) EvalResult {
	res := EvalResult{Formula: src, Variables: []string{}}
	if vars, err := formula.Variables(src); err == nil {
		res.Variables = vars
	}
	res.Substituted = formula.Substitute(src, ns)
	v, err := formula.Diagnose(src, ns)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Value = &v
	return res
}

// parseAssignments turns KEY=VALUE pairs into a map. Later pairs win.
func parseAssignments(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --set %q: expected KEY=VALUE", p)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}
