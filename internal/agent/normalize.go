package agent

import (
	"strings"

	"github.com/parley-dev/parley/pkg/models"
)

// ExtractText concatenates the content of all text/plain parts of msg
// in sequence order. Parts of other content types are skipped without
// error. An empty result means the message carries nothing to process;
// the runtime treats that as a deliberate no-op, not a failure.
func ExtractText(msg models.Message) string {
	var b strings.Builder
	for _, part := range msg.Parts {
		if part.ContentType == models.ContentTypeText {
			b.WriteString(part.Content)
		}
	}
	return b.String()
}
