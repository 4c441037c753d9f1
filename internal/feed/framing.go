// Package feed speaks the terminal's wire protocol: JSON objects over TCP,
// each terminated by a single null byte. It decodes messages into normalized
// events and hands them to a FeedHandler sequentially.
package feed

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

const frameDelimiter = 0x00

// readFrame returns the next null-terminated JSON payload, delimiter
// stripped. Empty frames are skipped.
func readFrame(r *bufio.Reader) ([]byte, error) {
	for {
		raw, err := r.ReadBytes(frameDelimiter)
		if err != nil {
			return nil, err
		}
		payload := raw[:len(raw)-1]
		if len(payload) > 0 {
			return payload, nil
		}
	}
}

// writeFrame marshals v and appends the frame delimiter in one write.
func writeFrame(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	data = append(data, frameDelimiter)
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}
