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

// Package auwriter allows writing of rendered audio to disk in the Sun AU
// format. AU stores 16bit PCM big-endian with a fixed 24 byte header, which
// makes it the simplest uncompressed container there is.
package auwriter

import (
	"bufio"
	"encoding/binary"
	"os"

	"github.com/tonelang/tonelang/curated"
	"github.com/tonelang/tonelang/logger"
)

const (
	auMagic      = 0x2e736e64 // ".snd"
	auHeaderSize = 24
	auEncPCM16   = 3
)

// AuWriter implements the render.Sink interface.
type AuWriter struct {
	filename string
	f        *os.File
	w        *bufio.Writer
	dataLen  uint32
}

// New is the preferred method of initialisation for the AuWriter type.
// Unlike the WAV sink, AU is written as it arrives; only the header is
// patched on End().
func New(filename string, rate int, channels int) (*AuWriter, error) {
	if channels < 1 || channels > 2 {
		return nil, curated.Errorf("auwriter: %v", "unsupported channel count")
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, curated.Errorf("auwriter: %v", err)
	}

	aw := &AuWriter{
		filename: filename,
		f:        f,
		w:        bufio.NewWriter(f),
	}

	hdr := [6]uint32{
		auMagic,
		auHeaderSize,
		0xffffffff, // data size, patched on End()
		auEncPCM16,
		uint32(rate),
		uint32(channels),
	}
	if err := binary.Write(aw.w, binary.BigEndian, hdr[:]); err != nil {
		_ = f.Close()
		return nil, curated.Errorf("auwriter: %v", err)
	}

	return aw, nil
}

// Write implements the render.Sink interface.
func (aw *AuWriter) Write(pcm []int16) error {
	if err := binary.Write(aw.w, binary.BigEndian, pcm); err != nil {
		return curated.Errorf("auwriter: %v", err)
	}
	aw.dataLen += uint32(len(pcm) * 2)
	return nil
}

// End implements the render.Sink interface.
func (aw *AuWriter) End() (rerr error) {
	defer func() {
		err := aw.f.Close()
		if err != nil && rerr == nil {
			rerr = curated.Errorf("auwriter: %v", err)
		}
	}()

	if err := aw.w.Flush(); err != nil {
		return curated.Errorf("auwriter: %v", err)
	}

	// patch the data size now that it is known
	var sz [4]byte
	binary.BigEndian.PutUint32(sz[:], aw.dataLen)
	if _, err := aw.f.WriteAt(sz[:], 8); err != nil {
		return curated.Errorf("auwriter: %v", err)
	}

	logger.Logf("auwriter", "written audio to %s", aw.filename)
	return nil
}
