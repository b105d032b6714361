// This file is part of Tonelang.
//
// Tonelang is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Tonelang is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Tonelang.  If not, see <https://www.gnu.org/licenses/>.

// Package sdlaudio outputs sound through an SDL queueing audio device.
//
// The device may open at a different frequency than requested; callers
// should construct their generator with the rate reported by Rate() rather
// than the rate they asked for.
package sdlaudio

import (
	"time"

	"github.com/tonelang/tonelang/curated"
	"github.com/tonelang/tonelang/logger"

	"github.com/veandco/go-sdl2/sdl"
)

// size of the device-side sample buffer. small enough that playback starts
// promptly, large enough that the queue never starves between Write calls.
const bufferLength = 1024

// keep no more than this much audio queued ahead of the device. Write blocks
// while the queue is over the mark, which paces rendering at playback speed.
const queueAhead = 500 * time.Millisecond

// Audio implements the render.Sink interface over an SDL audio device.
type Audio struct {
	id   sdl.AudioDeviceID
	spec sdl.AudioSpec

	channels  int
	maxQueued uint32
	scratch   []byte
}

// NewAudio is the preferred method of initialisation for the Audio type.
func NewAudio(rate int, channels int) (*Audio, error) {
	if channels < 1 || channels > 2 {
		return nil, curated.Errorf("sdlaudio: %v", "unsupported channel count")
	}

	if err := sdl.InitSubSystem(sdl.INIT_AUDIO); err != nil {
		return nil, curated.Errorf("sdlaudio: %v", err)
	}

	aud := &Audio{
		channels: channels,
	}

	spec := &sdl.AudioSpec{
		Freq:     int32(rate),
		Format:   sdl.AUDIO_S16SYS,
		Channels: uint8(channels),
		Samples:  bufferLength,
	}

	var err error
	var actualSpec sdl.AudioSpec

	aud.id, err = sdl.OpenAudioDevice("", false, spec, &actualSpec, sdl.AUDIO_ALLOW_FREQUENCY_CHANGE)
	if err != nil {
		return nil, curated.Errorf("sdlaudio: %v", err)
	}
	aud.spec = actualSpec

	bytesPerSec := uint32(aud.spec.Freq) * uint32(channels) * 2
	aud.maxQueued = uint32(float64(bytesPerSec) * queueAhead.Seconds())

	if int(aud.spec.Freq) != rate {
		logger.Logf("sdlaudio", "device negotiated %dHz (%dHz requested)", aud.spec.Freq, rate)
	}

	sdl.PauseAudioDevice(aud.id, false)

	return aud, nil
}

// Rate returns the frequency the device actually opened at.
func (aud *Audio) Rate() int {
	return int(aud.spec.Freq)
}

// Write implements the render.Sink interface. It blocks whenever the device
// queue is comfortably ahead of playback.
func (aud *Audio) Write(pcm []int16) error {
	if len(aud.scratch) < len(pcm)*2 {
		aud.scratch = make([]byte, len(pcm)*2)
	}
	b := aud.scratch[:len(pcm)*2]
	for i, s := range pcm {
		b[i*2] = byte(s)
		b[i*2+1] = byte(s >> 8)
	}

	for sdl.GetQueuedAudioSize(aud.id) > aud.maxQueued {
		sdl.Delay(5)
	}

	if err := sdl.QueueAudio(aud.id, b); err != nil {
		return curated.Errorf("sdlaudio: %v", err)
	}

	return nil
}

// End implements the render.Sink interface. It blocks until the queue has
// drained before closing the device.
func (aud *Audio) End() error {
	for sdl.GetQueuedAudioSize(aud.id) > 0 {
		sdl.Delay(10)
	}
	sdl.CloseAudioDevice(aud.id)
	return nil
}
