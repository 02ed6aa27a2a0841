package ses

import "github.com/pkg/errors"

// Error kinds returned by the engine. Use errors.Is to classify; the
// returned errors carry the offending page, acronym or selector as context.
var (
	// ErrTruncated reports a page shorter than its headers require.
	ErrTruncated = errors.New("truncated page")
	// ErrStateChanged reports a generation code mismatch between pages
	// fetched in one operation. The operation may be retried.
	ErrStateChanged = errors.New("generation code changed, retry")
	// ErrLookupMiss reports an unknown acronym or a selector matching no element.
	ErrLookupMiss = errors.New("lookup miss")
	// ErrConstraint reports an out-of-range or forbidden request.
	ErrConstraint = errors.New("constraint violation")
	// ErrInconsistent reports an acronym that belongs to another page than
	// the one requested.
	ErrInconsistent = errors.New("inconsistent request")
	// ErrJoinBounds reports that a join was truncated at MaxJoinRows.
	ErrJoinBounds = errors.New("too many join rows")
)
