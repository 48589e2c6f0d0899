package envfile

import "fmt"

// CopyReport summarizes a propagation run.
type CopyReport struct {
	Discovered int      `json:"files_discovered"`
	Copied     int      `json:"files_copied"`
	Failed     int      `json:"files_failed"`
	Errors     []string `json:"errors,omitempty"`
}

// Validate enforces the report's counting invariants.
func (r CopyReport) Validate() error {
	if r.Discovered < 0 || r.Copied < 0 || r.Failed < 0 {
		return fmt.Errorf("copy report counts must be non-negative: %+v", r)
	}
	if r.Copied+r.Failed > r.Discovered {
		return fmt.Errorf("copied (%d) + failed (%d) exceeds discovered (%d)", r.Copied, r.Failed, r.Discovered)
	}
	return nil
}

// Success reports that at least one file was found and every file was copied.
func (r CopyReport) Success() bool {
	return r.Failed == 0 && r.Discovered > 0
}

// PartialSuccess reports that some files were copied and some failed.
func (r CopyReport) PartialSuccess() bool {
	return r.Copied > 0 && r.Failed > 0
}
