package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joelkehle/priorart-engine/internal/priorart"
	"github.com/joelkehle/priorart-engine/internal/report"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search patent literature for prior art",
	Long: `Search generates up to five query strategies from the invention description,
runs the first three against the patent search provider, deduplicates the
hits and ranks them by similarity to the description.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("description", "", "invention description")
	searchCmd.Flags().String("description-file", "", "read the invention description from a .txt, .md or .pdf file (- for stdin)")
	searchCmd.Flags().String("field", "", "technical field, e.g. Software/Computing")
	searchCmd.Flags().String("keywords", "", "extra keywords (comma-separated)")
	searchCmd.Flags().Int("max-results", priorart.DefaultMaxResults, "maximum number of ranked patents")
	searchCmd.Flags().String("from", "", "publication date range start (YYYY-MM-DD)")
	searchCmd.Flags().String("to", "", "publication date range end (YYYY-MM-DD)")
	searchCmd.Flags().String("format", "json", "output format: json or markdown")
	searchCmd.Flags().String("output", "", "write output to a file instead of stdout")
	searchCmd.Flags().Bool("save", false, "store the search in the database")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	inline, _ := f.GetString("description")
	file, _ := f.GetString("description-file")
	field, _ := f.GetString("field")
	keywords, _ := f.GetString("keywords")
	maxResults, _ := f.GetInt("max-results")
	from, _ := f.GetString("from")
	to, _ := f.GetString("to")
	format, _ := f.GetString("format")
	output, _ := f.GetString("output")
	save, _ := f.GetBool("save")

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

	res, err := current.engine().Search(cmd.Context(), priorart.SearchRequest{
		InventionDescription: desc,
		TechnicalField:       field,
		Keywords:             splitKeywords(keywords),
		MaxResults:           maxResults,
		DateRange:            dateRange(from, to),
	})
	if err != nil {
		return err
	}

	if save {
		st, err := current.openStore()
		if err != nil {
			return err
		}
		if st == nil {
			return errors.New("--save needs store.path to be set")
		}
		id, err := st.SavePriorArtSearch(cmd.Context(), res)
		if err != nil {
			return err
		}
		current.log.Info("search_saved", zap.String("search_id", id))
	}

	var out []byte
	if format == "markdown" {
		out = []byte(report.BuildSearchMarkdown(res))
	} else {
		out, err = json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		out = append(out, '\n')
	}
	return writeOutput(cmd.OutOrStdout(), output, out)
}
