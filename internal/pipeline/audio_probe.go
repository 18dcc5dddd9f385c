package pipeline

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// WhatsApp voice notes are OGG/Opus, which is always 48kHz on the wire
const opusSampleRate = 48000

var oggCapture = []byte("OggS")

// ErrCorruptAudio means the file failed container validation
var ErrCorruptAudio = errors.New("corrupt audio file")

// probeAudio validates a downloaded media file and measures its duration.
// OGG containers are checked structurally; other formats only get a
// non-empty check and report zero duration.
func probeAudio(path, mimeType string) (time.Duration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read audio file: %w", err)
	}

	if len(data) == 0 {
		return 0, fmt.Errorf("%w: empty file", ErrCorruptAudio)
	}

	if !isOgg(data, mimeType) {
		return 0, nil
	}

	return oggDuration(data)
}

func isOgg(data []byte, mimeType string) bool {
	if strings.Contains(strings.ToLower(mimeType), "ogg") {
		return true
	}
	return bytes.HasPrefix(data, oggCapture)
}

// oggDuration reads the granule position of the last OGG page. For Opus the
// granule counts 48kHz samples from the start of the stream.
func oggDuration(data []byte) (time.Duration, error) {
	if !bytes.HasPrefix(data, oggCapture) {
		return 0, fmt.Errorf("%w: missing OGG capture pattern", ErrCorruptAudio)
	}

	// Page header: capture(4) version(1) type(1) granule(8) serial(4)
	// sequence(4) checksum(4) segments(1)
	const headerLen = 27

	idx := bytes.LastIndex(data, oggCapture)
	for idx > 0 && idx+headerLen > len(data) {
		// Trailing capture bytes can appear inside a truncated final page;
		// fall back to the previous page header
		idx = bytes.LastIndex(data[:idx], oggCapture)
	}
	if idx < 0 || idx+headerLen > len(data) {
		return 0, fmt.Errorf("%w: no complete page header", ErrCorruptAudio)
	}

	if data[idx+4] != 0 {
		return 0, fmt.Errorf("%w: unsupported OGG version %d", ErrCorruptAudio, data[idx+4])
	}

	granule := binary.LittleEndian.Uint64(data[idx+6 : idx+14])
	if granule == ^uint64(0) {
		// -1 granule marks a page with no completed packets
		return 0, nil
	}

	return time.Duration(granule) * time.Second / opusSampleRate, nil
}
