// Package segment splits extracted document text into ordered segments for
// generation input.
package segment

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/curation-cli/internal/model"
)

// Source identifies where segmented text came from and how the segments
// should be tagged.
type Source struct {
	DomainID          string
	DocumentID        string
	DocumentVersionID string
	UseCase           string
	SegmentType       string
}

// Paragraphs splits text on blank lines into paragraph segments. Empty and
// whitespace-only paragraphs are dropped; position reflects the order of the
// surviving paragraphs. The segment type defaults to "paragraph".
func Paragraphs(text string, src Source) []model.Segment {
	segType := src.SegmentType
	if segType == "" {
		segType = "paragraph"
	}

	now := time.Now().UTC()
	var segments []model.Segment
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		segments = append(segments, model.Segment{
			ID:                uuid.NewString(),
			DomainID:          src.DomainID,
			DocumentID:        src.DocumentID,
			DocumentVersionID: src.DocumentVersionID,
			UseCase:           src.UseCase,
			SegmentType:       segType,
			Content:           para,
			Position:          len(segments),
			CreatedAt:         now,
		})
	}
	return segments
}
