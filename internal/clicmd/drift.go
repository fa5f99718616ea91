package clicmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wch1125/proviso/internal/aiassist"
	"github.com/wch1125/proviso/internal/drift"
	"github.com/wch1125/proviso/internal/render"
	"github.com/wch1125/proviso/internal/reportfmt"
)

func driftCmd() *cobra.Command {
	var actualFile string
	var verbose bool
	var jsonOut bool
	var aiAssist bool
	cmd := &cobra.Command{
		Use:   "drift <file>",
		Short: "Compare externally edited prose against the expected rendering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, _, err := loadProgram(args[0])
			if err != nil {
				return err
			}
			if actualFile == "" {
				return fmt.Errorf("--actual is required")
			}
			actual, err := os.ReadFile(actualFile)
			if err != nil {
				return err
			}
			expected := render.Render(prog)
			findings := drift.Detect(expected, string(actual), verbose)
			if jsonOut {
				out, err := reportfmt.JSON(findings)
				if err != nil {
					return err
				}
				fmt.Println(out)
				return nil
			}
			var lines []string
			for _, f := range findings {
				lines = append(lines, fmt.Sprintf("[%s/%s] %s (confidence %.2f)", f.Severity, f.Category, f.SectionTitle, f.Confidence))
				if f.Suggestion != "" {
					lines = append(lines, "  suggest: "+f.Suggestion)
				}
				if aiAssist {
					if s := explainWithAI(cmd, f); s != nil {
						lines = append(lines, fmt.Sprintf("  ai: %s", s.Explanation))
						if s.Amendment != "" {
							lines = append(lines, "  ai-amendment: "+s.Amendment)
						}
					}
				}
			}
			fmt.Print(reportfmt.Box("Drift Findings", lines))
			return nil
		},
	}
	cmd.Flags().StringVar(&actualFile, "actual", "", "externally edited prose file to compare against")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "include low-confidence findings")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit JSON instead of plain text")
	cmd.Flags().BoolVar(&aiAssist, "ai-assist", false, "draft an explanation and amendment for each finding via GEMINI_API_KEY")
	return cmd
}

// explainWithAI lazily builds an aiassist.Assistant from GEMINI_API_KEY
// and asks it to explain a single finding. Any failure (missing key,
// network error, unparseable response) is swallowed: AI assistance is
// a convenience on top of the deterministic detector, never a
// dependency of it.
func explainWithAI(cmd *cobra.Command, f drift.Finding) *aiassist.Suggestion {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := aiassist.New(ctx, apiKey)
	if err != nil {
		return nil
	}
	defer a.Close()
	s, err := a.Explain(ctx, f)
	if err != nil {
		return nil
	}
	return s
}
