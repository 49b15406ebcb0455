package enum

import "strings"

// VerificationVerdict is the domain reading of an authority state code.
// Raw codes are translated once, at the client boundary.
type VerificationVerdict string

const (
	VerdictNotFound      VerificationVerdict = "NOT_FOUND"
	VerdictValid         VerificationVerdict = "VALID"
	VerdictAnnulled      VerificationVerdict = "ANNULLED"
	VerdictUnknown       VerificationVerdict = "UNKNOWN"
	VerdictNotApplicable VerificationVerdict = "NOT_APPLICABLE"
)

// VerdictFromStateCode maps the authority's state code to a verdict
func VerdictFromStateCode(code string) VerificationVerdict {
	switch strings.TrimSpace(code) {
	case "0":
		return VerdictNotFound
	case "1":
		return VerdictValid
	case "2":
		return VerdictAnnulled
	default:
		return VerdictUnknown
	}
}

// IsValid reports whether the verdict marks the document as verified
func (v VerificationVerdict) IsValid() bool {
	return v == VerdictValid
}
