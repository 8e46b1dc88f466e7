package normalize

import (
	"vouch/internal/reason"
	"vouch/internal/vendor"
)

// ocrConfidenceFloor is the minimum OCR confidence for a document to count as
// cleanly verified.
const ocrConfidenceFloor = 0.6

// FromDocScan maps a document-verification vendor's scores to reason codes.
// Only structured output is consumed here; capture and OCR internals live
// upstream.
func FromDocScan(scan vendor.DocScan) []reason.Code {
	if !scan.DocumentValid {
		return []reason.Code{reason.DocumentNotVerified}
	}
	if scan.OcrConfidence < ocrConfidenceFloor {
		return []reason.Code{reason.DocumentVerified, reason.DocumentOcrLowConfidence}
	}
	return []reason.Code{reason.DocumentVerified}
}
