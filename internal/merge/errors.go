package merge

import (
	"errors"
	"fmt"
)

// Kind classifies why a merge failed. Callers only ever see one of these;
// the underlying cause is kept for logs.
type Kind int

// Failure kinds, in pipeline order.
const (
	VideoAssetsNotValid Kind = iota + 1
	LoadingVideoAssetsFailed
	LoadingAudioAssetsFailed
	GenerationExportSessionFailed
	ExportSessionFailed
)

// kinds lists every Kind for lookups.
var kinds = []Kind{
	VideoAssetsNotValid,
	LoadingVideoAssetsFailed,
	LoadingAudioAssetsFailed,
	GenerationExportSessionFailed,
	ExportSessionFailed,
}

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case VideoAssetsNotValid:
		return "VideoAssetsNotValid"
	case LoadingVideoAssetsFailed:
		return "LoadingVideoAssetsFailed"
	case LoadingAudioAssetsFailed:
		return "LoadingAudioAssetsFailed"
	case GenerationExportSessionFailed:
		return "GenerationExportSessionFailed"
	case ExportSessionFailed:
		return "ExportSessionFailed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Description returns the fixed human readable message of the kind.
func (k Kind) Description() string {
	switch k {
	case VideoAssetsNotValid:
		return "video assets are not valid"
	case LoadingVideoAssetsFailed:
		return "loading video assets failed"
	case LoadingAudioAssetsFailed:
		return "loading audio assets failed"
	case GenerationExportSessionFailed:
		return "creating the export session failed"
	case ExportSessionFailed:
		return "export session failed"
	default:
		return "unknown merge error"
	}
}

// ParseKind returns the Kind whose String is s.
func ParseKind(s string) (Kind, bool) {
	for _, k := range kinds {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Error is a failed merge. Kind is the public contract; Err is the diagnostic
// cause and may be nil.
type Error struct {
	Kind Kind
	Err  error
}

// Sentinel values for errors.Is. They match any *Error of the same Kind.
var (
	ErrVideoAssetsNotValid           = &Error{Kind: VideoAssetsNotValid}
	ErrLoadingVideoAssetsFailed      = &Error{Kind: LoadingVideoAssetsFailed}
	ErrLoadingAudioAssetsFailed      = &Error{Kind: LoadingAudioAssetsFailed}
	ErrGenerationExportSessionFailed = &Error{Kind: GenerationExportSessionFailed}
	ErrExportSessionFailed           = &Error{Kind: ExportSessionFailed}
)

// ErrBusy is returned by Merge when the coordinator already runs a merge.
var ErrBusy = errors.New("merge: coordinator is busy")

func (e *Error) Error() string {
	if e.Err == nil {
		return "merge: " + e.Kind.Description()
	}
	return fmt.Sprintf("merge: %s: %v", e.Kind.Description(), e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
