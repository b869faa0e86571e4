package enums

import "fmt"

// EvidenceType describes an uploaded dispute attachment.
type EvidenceType string

const (
	EvidenceTypeImage    EvidenceType = "image"
	EvidenceTypeVideo    EvidenceType = "video"
	EvidenceTypeDocument EvidenceType = "document"
	EvidenceTypeInvoice  EvidenceType = "invoice"
	EvidenceTypeOther    EvidenceType = "other"
)

var validEvidenceTypes = []EvidenceType{
	EvidenceTypeImage,
	EvidenceTypeVideo,
	EvidenceTypeDocument,
	EvidenceTypeInvoice,
	EvidenceTypeOther,
}

// String implements fmt.Stringer.
func (e EvidenceType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EvidenceType.
func (e EvidenceType) IsValid() bool {
	for _, candidate := range validEvidenceTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEvidenceType converts raw input into an EvidenceType.
func ParseEvidenceType(value string) (EvidenceType, error) {
	for _, candidate := range validEvidenceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid evidence type %q", value)
}
