// ABOUTME: Playback resource acquisition backed by the oto audio device
// ABOUTME: Fetches an asset, decodes it, and plays through one context
package playback

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// outputSampleRate is the fixed device rate; decoded assets are
// resampled to it. The oto context can only be created once per
// process, so the rate cannot follow the asset.
const outputSampleRate = 48000

var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
)

// otoContext returns the process-wide audio context
func otoContext() (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   outputSampleRate,
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			otoErr = fmt.Errorf("failed to create audio context: %w", err)
			return
		}
		<-ready
		otoCtx = ctx
	})
	return otoCtx, otoErr
}

// OtoAcquirer acquires real playback resources. Locations are either
// local file paths or paths relative to the hub's HTTP file server.
type OtoAcquirer struct {
	baseURL string // hub base URL for relative asset locations, e.g. http://host:port
	client  *http.Client
}

// NewOtoAcquirer creates an acquirer. baseURL may be empty when all
// asset locations are absolute URLs or local paths.
func NewOtoAcquirer(baseURL string) *OtoAcquirer {
	return &OtoAcquirer{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Acquire fetches, decodes, and starts the asset at the given volume
func (a *OtoAcquirer) Acquire(location string, volume float64) (Handle, error) {
	r, err := a.open(location)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	asset, err := decodeAsset(location, r)
	if err != nil {
		return nil, err
	}

	ctx, err := otoContext()
	if err != nil {
		return nil, err
	}

	samples := resampleStereo(asset.samples, asset.sampleRate, outputSampleRate)
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}

	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}

	player := ctx.NewPlayer(bytes.NewReader(pcm))
	player.SetVolume(volume)
	player.Play()

	log.Printf("Playback started: %s (%d Hz source, volume %.2f)", location, asset.sampleRate, volume)

	h := &otoHandle{player: player, done: make(chan struct{})}
	go h.watch()
	return h, nil
}

// open resolves the location to a readable stream
func (a *OtoAcquirer) open(location string) (io.ReadCloser, error) {
	url := location
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		// Absolute URL, use as-is
	case a.baseURL != "":
		url = a.baseURL + "/" + strings.TrimPrefix(location, "/")
	default:
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("failed to open audio file: %w", err)
		}
		return f, nil
	}

	resp, err := a.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch asset: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("asset fetch failed: HTTP %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// otoHandle wraps an active oto player
type otoHandle struct {
	player *oto.Player
	once   sync.Once
	done   chan struct{}
}

// watch closes done when the player drains its buffer
func (h *otoHandle) watch() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			if !h.player.IsPlaying() {
				h.once.Do(func() {
					h.player.Close()
					close(h.done)
				})
				return
			}
		}
	}
}

// Stop pauses and releases the player
func (h *otoHandle) Stop() {
	h.once.Do(func() {
		h.player.Pause()
		h.player.Close()
		close(h.done)
	})
}

// Done reports completion or release
func (h *otoHandle) Done() <-chan struct{} {
	return h.done
}
