package app

import (
	"fmt"
	"io"

	"github.com/dvloznov/statement-ingest/internal/pipeline"
)

// PrintSummary writes the outcome of a run for the operator.
func PrintSummary(w io.Writer, s *pipeline.RunSummary) {
	fmt.Fprintf(w, "Ingestion completed: %d new document(s) processed.\n", s.Processed)
	fmt.Fprintf(w, "  run %s: listed %d, ignored %d, already processed %d, failed %d\n",
		s.RunID, s.Listed, s.Ineligible, s.AlreadyProcessed, s.Failed)
	for _, d := range s.Documents {
		if d.State == pipeline.Failed {
			fmt.Fprintf(w, "  FAILED %s: %v\n", d.FileKey, d.Err)
		}
	}
}
