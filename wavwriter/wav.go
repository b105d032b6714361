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

// Package wavwriter allows writing of rendered audio to disk as a WAV file.
// Note that audio data is buffered in memory in its entirety, and written to
// disk on End().
package wavwriter

import (
	"os"

	"github.com/tonelang/tonelang/curated"
	"github.com/tonelang/tonelang/logger"
	"github.com/youpy/go-wav"
)

// WavWriter implements the render.Sink interface.
type WavWriter struct {
	filename string
	rate     int
	channels int
	buffer   []wav.Sample
}

// New is the preferred method of initialisation for the WavWriter type.
func New(filename string, rate int, channels int) (*WavWriter, error) {
	if channels < 1 || channels > 2 {
		return nil, curated.Errorf("wavwriter: %v", "unsupported channel count")
	}

	aw := &WavWriter{
		filename: filename,
		rate:     rate,
		channels: channels,
		buffer:   make([]wav.Sample, 0),
	}

	return aw, nil
}

// Write implements the render.Sink interface.
func (aw *WavWriter) Write(pcm []int16) error {
	for i := 0; i < len(pcm); i += aw.channels {
		w := wav.Sample{}
		w.Values[0] = int(pcm[i])
		if aw.channels == 2 {
			w.Values[1] = int(pcm[i+1])
		}
		aw.buffer = append(aw.buffer, w)
	}
	return nil
}

// End implements the render.Sink interface. The file is created and written
// in one go.
func (aw *WavWriter) End() (rerr error) {
	f, err := os.Create(aw.filename)
	if err != nil {
		return curated.Errorf("wavwriter: %v", err)
	}
	defer func() {
		err := f.Close()
		if err != nil {
			rerr = curated.Errorf("wavwriter: %v", err)
		}
	}()

	enc := wav.NewWriter(f, uint32(len(aw.buffer)), uint16(aw.channels), uint32(aw.rate), 16)
	if enc == nil {
		return curated.Errorf("wavwriter: %v", "bad parameters for wav encoding")
	}

	logger.Logf("wavwriter", "writing audio to %s", aw.filename)
	if err := enc.WriteSamples(aw.buffer); err != nil {
		return curated.Errorf("wavwriter: %v", err)
	}

	return nil
}
