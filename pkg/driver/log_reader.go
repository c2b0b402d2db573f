package driver

import (
	"bytes"
	"encoding/binary"
	"io"
)

// logReader strips the Docker log stream framing: each frame is an 8-byte
// header (stream type, three zero bytes, big-endian uint32 length) followed
// by that many payload bytes.
type logReader struct {
	src    io.ReadCloser
	buf    *bytes.Buffer
	header [8]byte
	remain int
}

func newLogReader(src io.ReadCloser) io.ReadCloser {
	return &logReader{src: src, buf: bytes.NewBuffer(nil)}
}

func (r *logReader) Read(p []byte) (int, error) {
	if r.buf.Len() > 0 {
		return r.buf.Read(p)
	}

	if r.remain == 0 {
		if _, err := io.ReadFull(r.src, r.header[:]); err != nil {
			if err == io.ErrUnexpectedEOF {
				return 0, io.EOF
			}
			return 0, err
		}
		r.remain = int(binary.BigEndian.Uint32(r.header[4:]))
	}

	toRead := len(p)
	if toRead > r.remain {
		toRead = r.remain
	}

	n, err := io.ReadFull(r.src, p[:toRead])
	r.remain -= n
	if err != nil && err != io.ErrUnexpectedEOF {
		return n, err
	}
	return n, nil
}

func (r *logReader) Close() error {
	return r.src.Close()
}
