package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joelkehle/priorart-engine/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report <id>",
	Short: "Render a stored assessment or search as markdown, HTML or PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().String("format", "markdown", "output format: markdown, html or pdf")
	reportCmd.Flags().String("output", "", "write output to a file instead of stdout")
	reportCmd.Flags().Bool("search", false, "treat the id as a stored prior-art search id")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	isSearch, _ := cmd.Flags().GetBool("search")

	format = strings.ToLower(format)
	switch format {
	case "markdown", "html", "pdf":
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	st, err := current.openStore()
	if err != nil {
		return err
	}
	if st == nil {
		return errors.New("report needs store.path to be set")
	}

	var title, md string
	if isSearch {
		rec, err := st.GetPriorArtSearch(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		title = rec.Result.Query
		md = report.BuildSearchMarkdown(rec.Result)
	} else {
		svc, err := current.service()
		if err != nil {
			return err
		}
		a, err := svc.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		title = a.ProjectTitle
		md = report.BuildAssessmentMarkdown(a)
	}
	if format == "markdown" {
		return writeOutput(cmd.OutOrStdout(), output, []byte(md))
	}

	doc, err := report.RenderHTML(title, md)
	if err != nil {
		return err
	}
	if format == "html" {
		return writeOutput(cmd.OutOrStdout(), output, []byte(doc))
	}
	if output == "" {
		return errors.New("pdf output needs --output")
	}
	pdf, err := report.NewChromiumPDFRenderer(current.cfg.Report.PDFOptions()).Render(cmd.Context(), doc)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), output, pdf)
}
