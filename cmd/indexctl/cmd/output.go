package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/audit"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/index"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printIndexes(w io.Writer, format string, ds []index.Descriptor) error {
	if format == outputJSON {
		return writeJSON(w, ds)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tFIELDS\tUNIQUE\tSPARSE\tSELECTIVITY")
	for _, d := range ds {
		sel := "-"
		if d.Selectivity != nil {
			sel = fmt.Sprintf("%.3f", *d.Selectivity)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%t\t%s\n",
			d.ID, d.Name, d.Type, strings.Join(d.Fields, ","), d.Unique, d.Sparse, sel)
	}
	return tw.Flush()
}

func printRecords(w io.Writer, format string, recs []audit.CallRecord) error {
	if format == outputJSON {
		return writeJSON(w, recs)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tMETHOD\tPATH\tOUTCOME\tDURATION")
	for _, r := range recs {
		printRecordLine(tw, r)
	}
	return tw.Flush()
}

func printRecordLine(w io.Writer, r audit.CallRecord) {
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		r.Timestamp.UTC().Format(time.RFC3339Nano), r.Method, r.Path, r.Outcome(), r.Duration.Round(time.Microsecond))
}
