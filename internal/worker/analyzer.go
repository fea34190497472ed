package worker

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/hajimehoshi/go-mp3"

	"github.com/soundslike-labs/moodqueue/internal/core/domain"
)

var previewClient = &http.Client{Timeout: 15 * time.Second}

// maxPreviewBytes caps decoding at roughly 30 seconds of 44.1kHz stereo,
// which covers a full preview clip.
const maxPreviewBytes = 6 << 20

// analyzePreview downloads an MP3 preview clip and derives a [0,1] energy
// value from its loudness.
func analyzePreview(url string) (float64, error) {
	resp, err := previewClient.Get(url)
	if err != nil {
		return 0, fmt.Errorf("preview fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("preview fetch status %d", resp.StatusCode)
	}

	decoder, err := mp3.NewDecoder(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("preview decode failed: %w", err)
	}

	return rmsEnergy(io.LimitReader(decoder, maxPreviewBytes))
}

// rmsEnergy computes a [0,1] energy value from a stream of 16-bit
// little-endian PCM samples, scaling RMS amplitude against full scale.
func rmsEnergy(pcm io.Reader) (float64, error) {
	buf := make([]byte, 8192)
	var sumSquares float64
	var samples int
	leftover := 0

	for {
		n, err := pcm.Read(buf[leftover:])
		n += leftover

		i := 0
		for ; i+1 < n; i += 2 {
			s := float64(int16(binary.LittleEndian.Uint16(buf[i:])))
			sumSquares += s * s
			samples++
		}
		leftover = copy(buf, buf[i:n])

		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("preview read failed: %w", err)
		}
	}

	if samples == 0 {
		return 0, fmt.Errorf("preview contains no samples")
	}

	rms := math.Sqrt(sumSquares / float64(samples))
	return domain.Clamp01(rms / math.MaxInt16), nil
}

// AnalyzePreviewFunc allows tests to override the analyzer implementation.
var AnalyzePreviewFunc = analyzePreview
