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

// Package render connects a generator to an output sink.
package render

import (
	"github.com/tonelang/tonelang/curated"
	"github.com/tonelang/tonelang/synth/gen"
)

// Sink consumes interleaved signed 16bit PCM from a Generator. Write may
// block, as the playback sink does to pace rendering at playback speed.
type Sink interface {
	Write(pcm []int16) error
	End() error
}

// number of frames pulled from the generator per sink write.
const blockFrames = 2048

// Run pulls the generator dry and pushes everything into sink. A close of
// the abort channel stops the loop early; a nil channel never aborts.
//
// The sink's End is not called. That is the caller's responsibility,
// usually with defer.
func Run(g *gen.Generator, sink Sink, abort <-chan struct{}) error {
	buf := make([]int16, blockFrames*g.Channels())

	for {
		select {
		case <-abort:
			return nil
		default:
		}

		n, more := g.Render(buf, blockFrames)
		if n > 0 {
			if err := sink.Write(buf[:n*g.Channels()]); err != nil {
				return curated.Errorf("render: %v", err)
			}
		}
		if !more {
			return nil
		}
	}
}
