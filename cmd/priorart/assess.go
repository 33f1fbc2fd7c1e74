package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joelkehle/priorart-engine/internal/assessment"
	"github.com/joelkehle/priorart-engine/internal/report"
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Assess an invention's patentability against prior art",
	Long: `Assess runs the AI patentability analysis and the prior-art search
concurrently, lowers the novelty and non-obviousness scores according to the
similar patents found and stores the result.`,
	RunE: runAssess,
}

func init() {
	assessCmd.Flags().String("title", "", "project title")
	assessCmd.Flags().String("description", "", "invention description")
	assessCmd.Flags().String("description-file", "", "read the invention description from a .txt, .md or .pdf file (- for stdin)")
	assessCmd.Flags().String("field", "", "technical field (identified automatically when empty)")
	assessCmd.Flags().String("keywords", "", "extra search keywords (comma-separated)")
	assessCmd.Flags().Int("max-results", 0, "maximum number of ranked patents (0 for the default)")
	assessCmd.Flags().String("from", "", "prior-art date range start (YYYY-MM-DD)")
	assessCmd.Flags().String("to", "", "prior-art date range end (YYYY-MM-DD)")
	assessCmd.Flags().Bool("skip-prior-art", false, "run the AI analysis only")
	assessCmd.Flags().String("format", "json", "output format: json or markdown")
	assessCmd.Flags().String("output", "", "write output to a file instead of stdout")

	rootCmd.AddCommand(assessCmd)
}

func runAssess(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	title, _ := f.GetString("title")
	inline, _ := f.GetString("description")
	file, _ := f.GetString("description-file")
	field, _ := f.GetString("field")
	keywords, _ := f.GetString("keywords")
	maxResults, _ := f.GetInt("max-results")
	from, _ := f.GetString("from")
	to, _ := f.GetString("to")
	skip, _ := f.GetBool("skip-prior-art")
	format, _ := f.GetString("format")
	output, _ := f.GetString("output")

	if format != "json" && format != "markdown" {
		return fmt.Errorf("unknown format %q", format)
	}
	desc, err := readDescription(cmd.Context(), inline, file)
	if err != nil {
		return err
	}
	if desc == "" {
		return errors.New("missing required --description or --description-file")
	}

	svc, err := current.service()
	if err != nil {
		return err
	}
	a, err := svc.Assess(cmd.Context(), assessment.AssessRequest{
		ProjectTitle:   title,
		Description:    desc,
		TechnicalField: field,
		Keywords:       splitKeywords(keywords),
		MaxResults:     maxResults,
		DateRange:      dateRange(from, to),
		SkipPriorArt:   skip,
	})
	if err != nil {
		return err
	}

	var out []byte
	if format == "markdown" {
		out = []byte(report.BuildAssessmentMarkdown(a))
	} else {
		out, err = json.MarshalIndent(a, "", "  ")
		if err != nil {
			return err
		}
		out = append(out, '\n')
	}
	return writeOutput(cmd.OutOrStdout(), output, out)
}
