package enum

// DuplicateMethod records which signal matched a document to its original
type DuplicateMethod string

const (
	DuplicateMethodQR           DuplicateMethod = "QR"
	DuplicateMethodCompositeKey DuplicateMethod = "COMPOSITE_KEY"
)

func (m DuplicateMethod) IsValid() bool {
	return m == DuplicateMethodQR || m == DuplicateMethodCompositeKey
}

// Confidence is the certainty attached to a match found by this method
func (m DuplicateMethod) Confidence() int {
	switch m {
	case DuplicateMethodQR:
		return 100
	case DuplicateMethodCompositeKey:
		return 95
	}
	return 0
}
