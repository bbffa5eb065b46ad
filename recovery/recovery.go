// Package recovery implements the bootloader-hosted HTTP recovery
// transport: a single-connection server that serves a minimal upload page
// on GET and streams a POSTed image into the download slot, verifying and
// committing it once the body is complete.
//
// The transport is deliberately decoupled from any concrete socket type —
// it operates on plain io.Reader/io.Writer — so the whole request/response
// state machine can be exercised on the host with net.Pipe, and the
// on-target wiring (cmd/bootloader) only has to adapt a lneto tcp.Conn to
// this same small interface.
package recovery

import (
	"bytes"
	"strconv"
	"strings"
)

// Sink receives the POSTed image, aligned to flash.Align-sized chunks.
// WriteAligned's buf is always exactly one chunk of the alignment the
// caller configured the Server with; a final partial chunk is zero-padded
// by the server itself before it is written.
type Sink interface {
	WriteAligned(offset uint32, buf []byte) error
}

// Verifier checks the staged image against the digest recorded ahead of
// time. Corresponds to component D.
type Verifier interface {
	Verify(length uint32) (bool, error)
}

// Committer performs Swap-and-commit once an upload has verified.
type Committer interface {
	Commit() error
}

// Announcer records the image length and digest for an upload, so
// Verifier can compare the staged bytes against it. The digest is the one
// the uploader declared in its X-Image-Sha256 request header (it already
// knows it — it is hashing its own file); the length is the number of body
// bytes the server received. Announce is called once the body has been
// received, just before verification.
type Announcer interface {
	Announce(length uint32, digest [32]byte) error
}

// Beacon receives best-effort status events. A nil Beacon is valid and
// simply means no events are published.
type Beacon interface {
	Publish(event string)
}

// Outcome reports what HandleConnection did, for logging and tests.
type Outcome int

const (
	OutcomeServedPage Outcome = iota
	OutcomeReboot
	OutcomeVerifyOK
	OutcomeVerifyFailed
	OutcomeProtocolError
	OutcomeNetworkError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeServedPage:
		return "served-page"
	case OutcomeReboot:
		return "reboot"
	case OutcomeVerifyOK:
		return "verify-ok"
	case OutcomeVerifyFailed:
		return "verify-failed"
	case OutcomeProtocolError:
		return "protocol-error"
	default:
		return "network-error"
	}
}

// Server holds everything needed to handle one recovery session.
type Server struct {
	Sink      Sink
	Verifier  Verifier
	Committer Committer
	Announcer Announcer // optional; nil means no digest announcement expected
	Beacon    Beacon

	Page         []byte // static upload-form HTML, served verbatim on GET
	Align        uint32 // program granularity; upload buffer size
	MaxImageSize uint32
	RebootFunc   func() // called for a GET containing "reboot" (case-insensitive)
}

func (s *Server) publish(event string) {
	if s.Beacon != nil {
		s.Beacon.Publish(event)
	}
}

// readChunker is the minimal surface HandleConnection needs from a
// connection: blocking reads that return 0 bytes exactly once the peer
// has sent FIN and there is nothing left queued, and a Write for
// responses. Read never has to return a partial header split across
// two calls for GET (a request line fits comfortably in one chunk); POST
// bodies may of course span many chunks.
type readChunker interface {
	Read(buf []byte) (int, error)
	Write(buf []byte) (int, error)
}

// HandleConnection handles exactly one request on conn and returns once
// that request (GET page / GET reboot / POST upload) is fully resolved.
// The caller owns closing the socket afterward — Close is not part of
// this interface since some transports (e.g. lneto's tcp.Conn) close
// asymmetrically from Write completing.
func (s *Server) HandleConnection(conn readChunker) Outcome {
	buf := make([]byte, 2048)
	n, err := conn.Read(buf)
	if err != nil && n == 0 {
		return OutcomeNetworkError
	}
	head := buf[:n]

	switch {
	case bytes.HasPrefix(head, []byte("POST")):
		return s.handlePost(conn, head)
	case bytes.HasPrefix(head, []byte("GET")):
		return s.handleGet(conn, head)
	default:
		return OutcomeProtocolError
	}
}

func (s *Server) handleGet(conn readChunker, head []byte) Outcome {
	firstLine := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		firstLine = head[:i]
	}
	if strings.Contains(strings.ToLower(string(firstLine)), "reboot") {
		s.publish("recovery:reboot")
		if s.RebootFunc != nil {
			s.RebootFunc()
		}
		return OutcomeReboot
	}

	writeHTTPOK(conn, s.Page)
	return OutcomeServedPage
}

// writeHTTPOK writes a literal "HTTP/1.1 200 OK" response with a correct
// Content-Length, followed by body verbatim.
func writeHTTPOK(conn readChunker, body []byte) {
	header := "HTTP/1.1 200 OK\r\nContent-Type: text/html\r\nContent-Length: " +
		strconv.Itoa(len(body)) + "\r\nConnection: close\r\n\r\n"
	conn.Write(append([]byte(header), body...))
}

// findHeaderEnd locates the blank line terminating the HTTP headers.
func findHeaderEnd(buf []byte) int {
	return bytes.Index(buf, []byte("\r\n\r\n"))
}

// parseImageDigest extracts the X-Image-Sha256 header, a 64-character hex
// string, if present and well-formed.
func parseImageDigest(headers []byte) (digest [32]byte, ok bool) {
	lower := strings.ToLower(string(headers))
	const key = "x-image-sha256:"
	idx := strings.Index(lower, key)
	if idx < 0 {
		return digest, false
	}
	rest := lower[idx+len(key):]
	end := strings.IndexByte(rest, '\r')
	if end < 0 {
		end = strings.IndexByte(rest, '\n')
	}
	if end < 0 {
		end = len(rest)
	}
	hex := strings.TrimSpace(rest[:end])
	if len(hex) != 64 {
		return digest, false
	}
	for i := 0; i < 32; i++ {
		hi, ok1 := hexNibble(hex[i*2])
		lo, ok2 := hexNibble(hex[i*2+1])
		if !ok1 || !ok2 {
			return [32]byte{}, false
		}
		digest[i] = hi<<4 | lo
	}
	return digest, true
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	default:
		return 0, false
	}
}

// parseContentLength extracts Content-Length from a raw header block, if
// present and well-formed. It is honored additively alongside the
// empty-receive-queue termination spec §9 resolves as primary.
func parseContentLength(headers []byte) (int64, bool) {
	lower := strings.ToLower(string(headers))
	const key = "content-length:"
	idx := strings.Index(lower, key)
	if idx < 0 {
		return 0, false
	}
	rest := lower[idx+len(key):]
	end := strings.IndexByte(rest, '\r')
	if end < 0 {
		end = strings.IndexByte(rest, '\n')
	}
	if end < 0 {
		end = len(rest)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(rest[:end]), 10, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func (s *Server) handlePost(conn readChunker, head []byte) Outcome {
	hdrEnd := findHeaderEnd(head)
	if hdrEnd < 0 {
		// Header terminator not found in the first chunk: malformed
		// request per spec §7's ProtocolError policy.
		return OutcomeProtocolError
	}
	contentLength, haveLength := parseContentLength(head[:hdrEnd])
	digest, haveDigest := parseImageDigest(head[:hdrEnd])

	bodyStart := head[hdrEnd+4:]

	align := s.Align
	if align == 0 {
		align = 1
	}
	chunk := make([]byte, align)
	chunkLen := 0
	var total uint32

	flush := func(n int) error {
		if n == 0 {
			return nil
		}
		for i := n; i < len(chunk); i++ {
			chunk[i] = 0
		}
		if err := s.Sink.WriteAligned(total, chunk); err != nil {
			return err
		}
		total += uint32(n)
		return nil
	}

	feed := func(data []byte) error {
		for len(data) > 0 {
			room := len(chunk) - chunkLen
			take := room
			if take > len(data) {
				take = len(data)
			}
			copy(chunk[chunkLen:], data[:take])
			chunkLen += take
			data = data[take:]
			if chunkLen == len(chunk) {
				if err := flush(chunkLen); err != nil {
					return err
				}
				chunkLen = 0
			}
			if s.MaxImageSize > 0 && total+uint32(chunkLen) > s.MaxImageSize {
				return errImageTooLarge
			}
		}
		return nil
	}

	if err := feed(bodyStart); err != nil {
		return OutcomeProtocolError
	}

	buf := make([]byte, 4096)
	for {
		if haveLength && uint64(total)+uint64(chunkLen) >= uint64(contentLength) {
			break
		}
		n, _ := conn.Read(buf)
		if n == 0 {
			// Empty receive queue: spec's primary termination signal.
			break
		}
		if err := feed(buf[:n]); err != nil {
			return OutcomeProtocolError
		}
	}

	// Flush any trailing partial chunk, zero-padded.
	if chunkLen > 0 {
		if err := flush(chunkLen); err != nil {
			return OutcomeNetworkError
		}
	}

	if haveDigest && s.Announcer != nil {
		if err := s.Announcer.Announce(total, digest); err != nil {
			return OutcomeNetworkError
		}
	}

	ok, err := s.Verifier.Verify(total)
	if err != nil || !ok {
		s.publish("recovery:verify-failed")
		writeHTTPClose(conn, "ERROR integrity check failed")
		return OutcomeVerifyFailed
	}

	s.publish("recovery:verify-ok")
	if err := s.Committer.Commit(); err != nil {
		s.publish("recovery:commit-failed")
		writeHTTPClose(conn, "ERROR commit failed")
		return OutcomeVerifyFailed
	}

	writeHTTPOK(conn, []byte("OK"))
	return OutcomeVerifyOK
}

func writeHTTPClose(conn readChunker, msg string) {
	header := "HTTP/1.1 400 Bad Request\r\nContent-Length: " +
		strconv.Itoa(len(msg)) + "\r\nConnection: close\r\n\r\n" + msg
	conn.Write([]byte(header)) // header already includes msg appended above
}

type uploadError string

func (e uploadError) Error() string { return string(e) }

const errImageTooLarge uploadError = "recovery: image exceeds max size"
