package certificate

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/wirecert-sync/constants"
	"github.com/joseph-ayodele/wirecert-sync/internal/entity"
)

// reWireRoll captures the wire roll identifier printed on wire-set certificates.
// Case-insensitive; the capture may span lines and ends at the first period followed by whitespace.
var reWireRoll = regexp.MustCompile(`(?is)The above expendable wireset was made from wire roll\s+(.*?)\.\s`)

// ExtractWireRoll returns the trimmed wire roll number found in text, or "" when absent.
func ExtractWireRoll(text string) string {
	m := reWireRoll.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// MatchesAsset reports whether a document name is the certificate PDF for assetTag:
// it must start with the tag with spaces removed and end in ".pdf".
func MatchesAsset(documentName, assetTag string) bool {
	prefix := entity.CompactTag(assetTag)
	if prefix == "" {
		return false
	}
	return strings.HasPrefix(documentName, prefix) && strings.HasSuffix(documentName, constants.CertificateExt)
}

// SelectDocument returns the first document matching assetTag.
func SelectDocument(docs []entity.CertificateDocument, assetTag string) (entity.CertificateDocument, bool) {
	for _, d := range docs {
		if MatchesAsset(d.DocumentName, assetTag) {
			return d, true
		}
	}
	return entity.CertificateDocument{}, false
}

// SelectWorkItem returns the first work item belonging to assetID.
func SelectWorkItem(items []entity.WorkItem, assetID int64) (entity.WorkItem, bool) {
	for _, w := range items {
		if w.AssetID == assetID {
			return w, true
		}
	}
	return entity.WorkItem{}, false
}
