// Package content holds the document artifacts that move through the
// pipeline and the fingerprint used to decide whether two of them differ.
package content

// Format tags an artifact with the pipeline stage that produced it.
type Format int

const (
	// FormatSource is the raw document as downloaded.
	FormatSource Format = iota
	// FormatDerived is the converter's output.
	FormatDerived
)

func (f Format) String() string {
	switch f {
	case FormatSource:
		return "source"
	case FormatDerived:
		return "derived"
	default:
		return "unknown"
	}
}

// Artifact is a document payload at some pipeline stage.
//
// Name is informational (the downloaded file name, or the delivered file
// name) and never takes part in change detection.
type Artifact struct {
	Format Format
	Name   string
	Data   []byte
}

func (a Artifact) Size() int { return len(a.Data) }

func (a Artifact) Empty() bool { return len(a.Data) == 0 }

// Fingerprint of the artifact's bytes.
func (a Artifact) Fingerprint() Fingerprint { return Sum(a.Data) }
