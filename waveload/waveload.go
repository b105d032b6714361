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

// Package waveload loads a single cycle waveform from an audio file for use
// as the custom wavetable. WAV and MP3 sources are supported; stereo files
// contribute their left channel only.
package waveload

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"github.com/tonelang/tonelang/curated"
	"github.com/tonelang/tonelang/logger"
	"github.com/tonelang/tonelang/synth/wavetable"
)

const logTag = "waveload"

// Load reads mono sample data from the named file. The entire file is taken
// to be one waveform cycle; peak amplitude is normalised to one.
func Load(filename string) ([]float32, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, curated.Errorf("waveload: %v", err)
	}
	defer f.Close()

	var data []float32

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".wav":
		dec := wav.NewDecoder(f)
		if dec == nil {
			return nil, curated.Errorf("waveload: %v", "wav: error decoding")
		}
		if !dec.IsValidFile() {
			return nil, curated.Errorf("waveload: %v", "wav: not a valid wav file")
		}

		logger.Log(logTag, "loading from wav file")

		// load all data at once
		buf, err := dec.FullPCMBuffer()
		if err != nil {
			return nil, curated.Errorf("waveload: wav: %v", err)
		}
		floatBuf := buf.AsFloat32Buffer()

		// copy first channel only of data stream
		data = make([]float32, 0, len(floatBuf.Data)/int(dec.NumChans))
		for i := 0; i < len(floatBuf.Data); i += int(dec.NumChans) {
			data = append(data, floatBuf.Data[i])
		}

	case ".mp3":
		dec, err := mp3.NewDecoder(f)
		if err != nil {
			return nil, curated.Errorf("waveload: mp3: %v", err)
		}

		logger.Log(logTag, "loading from mp3 file")

		// the stream is always 16bit little endian 2 channels regardless of
		// the source; step 4 bytes and take the left channel
		err = nil
		chunk := make([]byte, 4096)
		for err != io.EOF {
			var chunkLen int
			chunkLen, err = dec.Read(chunk)
			if err != nil && err != io.EOF {
				return nil, curated.Errorf("waveload: mp3: %v", err)
			}

			for i := 0; i+1 < chunkLen; i += 4 {
				v := int16(uint16(chunk[i]) | uint16(chunk[i+1])<<8)
				data = append(data, float32(v)/32768.0)
			}
		}

	default:
		return nil, curated.Errorf("waveload: %v", "unsupported file type")
	}

	if len(data) < 2 {
		return nil, curated.Errorf("waveload: %v", "no usable sample data")
	}

	normalise(data)

	return data, nil
}

// Install loads the named file and registers it as the custom wavetable.
func Install(filename string) error {
	data, err := Load(filename)
	if err != nil {
		return err
	}
	wavetable.Tables().SetCustom(data)
	logger.Logf(logTag, "custom wavetable from %s (%d samples)", filename, len(data))
	return nil
}

func normalise(data []float32) {
	var peak float32
	for _, v := range data {
		if v > peak {
			peak = v
		} else if -v > peak {
			peak = -v
		}
	}
	if peak == 0 {
		return
	}
	for i := range data {
		data[i] /= peak
	}
}
