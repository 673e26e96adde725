package upstream

import (
	"bytes"
	"io"
)

// sseRelay re-frames an upstream SSE body: frames split on blank-line
// boundaries, only data: lines are forwarded, each re-terminated with a
// blank line. The [DONE] sentinel is an ordinary data line. A residual
// tail at EOF is flushed through the same rule.
type sseRelay struct {
	source io.Reader
	buf    []byte
	chunk  []byte
	eof    bool
}

func newSSERelay(source io.Reader) *sseRelay {
	return &sseRelay{
		source: source,
		chunk:  make([]byte, 4096),
	}
}

var frameSep = []byte("\n\n")

// Next returns the next forwardable event bytes, or io.EOF when the
// upstream body is exhausted. Frames without data: lines produce no
// output and are skipped internally.
func (r *sseRelay) Next() ([]byte, error) {
	for {
		if idx := bytes.Index(r.buf, frameSep); idx >= 0 {
			frame := r.buf[:idx]
			r.buf = r.buf[idx+len(frameSep):]

			if out := filterFrame(frame); len(out) > 0 {
				return out, nil
			}

			continue
		}

		if r.eof {
			if len(r.buf) == 0 {
				return nil, io.EOF
			}

			tail := r.buf
			r.buf = nil

			if out := filterFrame(tail); len(out) > 0 {
				return out, nil
			}

			return nil, io.EOF
		}

		n, err := r.source.Read(r.chunk)
		if n > 0 {
			r.buf = append(r.buf, r.chunk[:n]...)
		}

		if err == io.EOF {
			r.eof = true
			continue
		}

		if err != nil {
			return nil, err
		}
	}
}

// filterFrame keeps only the data: lines of one event frame, each
// re-terminated with a blank line.
func filterFrame(frame []byte) []byte {
	var out []byte

	for _, line := range bytes.Split(frame, []byte("\n")) {
		line = bytes.TrimSuffix(line, []byte("\r"))
		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}

		out = append(out, line...)
		out = append(out, '\n', '\n')
	}

	return out
}
