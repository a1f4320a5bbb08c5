// pkg/execute/outcome.go

package execute

// Outcome is the classification of a subprocess exit status. The ceph CLI
// reports failures with errno-style exit codes; those numbers live here and
// nowhere else.
type Outcome int

const (
	OutcomeSuccess Outcome = iota

	// OutcomeNotFound: the requested entity does not exist (exit 2,
	// ENOENT). Only meaningful for a plain "auth get"; callers that never
	// issue one treat it as transient.
	OutcomeNotFound

	// OutcomePermissionDenied: the monitor refused the request (exit 1
	// EPERM or exit 13 EACCES). Retrying cannot help.
	OutcomePermissionDenied

	// OutcomeTransient covers every other non-zero exit: not ready yet,
	// retry after the interval.
	OutcomeTransient
)

const (
	exitEPERM  = 1
	exitENOENT = 2
	exitEACCES = 13
)

// Classify maps an exit status onto an Outcome.
func Classify(exitCode int) Outcome {
	switch exitCode {
	case 0:
		return OutcomeSuccess
	case exitEPERM, exitEACCES:
		return OutcomePermissionDenied
	case exitENOENT:
		return OutcomeNotFound
	default:
		return OutcomeTransient
	}
}

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNotFound:
		return "not-found"
	case OutcomePermissionDenied:
		return "permission-denied"
	default:
		return "transient"
	}
}
