package exitcode

const (
	Success         = 0
	UsageError      = 1
	ValidationError = 2 // unreadable input, bad schema, unsupported ICD version
	DBConnError     = 3
	CopyError       = 4
	ClassifyError   = 5
	Cancelled       = 6
)
