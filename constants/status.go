package constants

// DocumentStatus is the outcome of processing a single document within a run.
type DocumentStatus string

// Stable values (surfaced in run reports).
const (
	DocumentStatusUsable           DocumentStatus = "USABLE"            // classified and extracted
	DocumentStatusUnknownType      DocumentStatus = "UNKNOWN_TYPE"      // classifier answered outside the known set
	DocumentStatusTextFailed       DocumentStatus = "TEXT_FAILED"       // PDF text could not be read
	DocumentStatusClassifyFailed   DocumentStatus = "CLASSIFY_FAILED"   // classifier call failed
	DocumentStatusExtractionFailed DocumentStatus = "EXTRACTION_FAILED" // model output unusable
	DocumentStatusNoSalaryData     DocumentStatus = "NO_SALARY_DATA"    // parsed, but nothing to reconcile
)
