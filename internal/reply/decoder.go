package reply

import (
	"log/slog"
	"strings"

	"github.com/nuvu/outdial/internal/metrics"
)

// Decoder incrementally extracts the speakable "response" field from a
// streamed structured reply. Feed returns only the text that is new since
// the previous call, so the caller can forward it straight to speech.
// Emitted text is never retracted. The zero value is ready to use; a Decoder
// serves exactly one assistant turn.
type Decoder struct {
	acc          strings.Builder
	lastResponse string
}

// Feed appends chunk to the accumulated model output and returns the newly
// confirmed response suffix, or "" when nothing new is decidable yet.
func (d *Decoder) Feed(chunk string) string {
	d.acc.WriteString(chunk)

	p, err := scanPartial(d.acc.String())
	if err != nil || !p.hasResponse {
		return ""
	}
	if !strings.HasPrefix(p.response, d.lastResponse) {
		// The model revised text that was already spoken. That cannot be
		// unsaid; keep the longest confirmed text and count the conflict.
		metrics.DecoderConflicts.Inc()
		slog.Warn("structured reply revised already-emitted text",
			"emitted_len", len(d.lastResponse), "revised_len", len(p.response))
		return ""
	}
	delta := p.response[len(d.lastResponse):]
	d.lastResponse = p.response
	return delta
}

// Response returns all response text confirmed so far.
func (d *Decoder) Response() string {
	return d.lastResponse
}

// Raw returns the full accumulated model output.
func (d *Decoder) Raw() string {
	return d.acc.String()
}
