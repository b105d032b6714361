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

package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/bradleyjkemp/memviz"

	"github.com/tonelang/tonelang/auwriter"
	"github.com/tonelang/tonelang/logger"
	"github.com/tonelang/tonelang/modalflag"
	"github.com/tonelang/tonelang/render"
	"github.com/tonelang/tonelang/script"
	"github.com/tonelang/tonelang/sdlaudio"
	"github.com/tonelang/tonelang/statsview"
	"github.com/tonelang/tonelang/synth/builder"
	"github.com/tonelang/tonelang/synth/gen"
	"github.com/tonelang/tonelang/synth/prog"
	"github.com/tonelang/tonelang/version"
	"github.com/tonelang/tonelang/waveload"
	"github.com/tonelang/tonelang/wavwriter"
)

const defaultRate = 44100

// renderOpts gathers the flags shared by every rendering mode.
type renderOpts struct {
	rate      *int
	mono      *bool
	zeroSeed  *bool
	log       *bool
	wavetable *string
	stats     *bool
}

func addRenderOpts(md *modalflag.Modes) *renderOpts {
	return &renderOpts{
		rate:      md.AddInt("rate", defaultRate, "sample rate of rendered audio"),
		mono:      md.AddBool("mono", false, "mix to a single channel, ignoring panning"),
		zeroSeed:  md.AddBool("zeroseed", false, "use a zero random seed, for repeatable output"),
		log:       md.AddBool("log", false, "echo log entries to stderr as they happen"),
		wavetable: md.AddString("wavetable", "", "audio file to use as the custom wavetable"),
		stats:     md.AddBool("stats", false, fmt.Sprintf("launch statistics server (available=%t)", statsview.Available())),
	}
}

func (opts *renderOpts) channels() int {
	if *opts.mono {
		return 1
	}
	return 2
}

// apply the flags that take effect before building. returns an error if the
// custom wavetable cannot be loaded.
func (opts *renderOpts) apply() error {
	if *opts.log {
		logger.SetEcho(os.Stderr, true)
	}
	if *opts.stats {
		statsview.Launch(os.Stdout)
	}
	if *opts.wavetable != "" {
		if err := waveload.Install(*opts.wavetable); err != nil {
			return err
		}
	}
	return nil
}

// buildProgram parses and builds the script named by the mode's remaining
// argument.
func buildProgram(md *modalflag.Modes, opts *renderOpts) (*prog.Program, error) {
	if len(md.RemainingArgs()) != 1 {
		return nil, fmt.Errorf("mode %s expects a single script file", md)
	}

	src, err := os.ReadFile(md.GetArg(0))
	if err != nil {
		return nil, err
	}

	sc, err := script.Parse(string(src))
	if err != nil {
		return nil, err
	}

	return builder.Build(sc, *opts.zeroSeed)
}

// abortOnInterrupt returns a channel that closes on the first SIGINT.
func abortOnInterrupt() <-chan struct{} {
	intChan := make(chan os.Signal, 1)
	signal.Notify(intChan, os.Interrupt)

	abort := make(chan struct{})
	go func() {
		<-intChan
		fmt.Println("\r")
		close(abort)
	}()

	return abort
}

func play(md *modalflag.Modes) error {
	md.NewMode()
	opts := addRenderOpts(md)

	r, err := md.Parse()
	if r != modalflag.ParseContinue {
		return err
	}
	if err := opts.apply(); err != nil {
		return err
	}

	prg, err := buildProgram(md, opts)
	if err != nil {
		return err
	}

	aud, err := sdlaudio.NewAudio(*opts.rate, opts.channels())
	if err != nil {
		return err
	}
	defer aud.End()

	// the device may not have opened at the rate we asked for
	g := gen.NewGenerator(prg, aud.Rate(), opts.channels())

	return render.Run(g, aud, abortOnInterrupt())
}

// fileSink abstracts the construction of the two file writing modes.
func fileRender(md *modalflag.Modes, makeSink func(string, int, int) (render.Sink, error)) error {
	md.NewMode()
	opts := addRenderOpts(md)
	output := md.AddString("o", "", "output file. required")

	r, err := md.Parse()
	if r != modalflag.ParseContinue {
		return err
	}
	if *output == "" {
		return fmt.Errorf("mode %s requires an output file (-o)", md)
	}
	if err := opts.apply(); err != nil {
		return err
	}

	prg, err := buildProgram(md, opts)
	if err != nil {
		return err
	}

	sink, err := makeSink(*output, *opts.rate, opts.channels())
	if err != nil {
		return err
	}

	g := gen.NewGenerator(prg, *opts.rate, opts.channels())

	if err := render.Run(g, sink, abortOnInterrupt()); err != nil {
		_ = sink.End()
		return err
	}

	return sink.End()
}

func graph(md *modalflag.Modes) error {
	md.NewMode()
	opts := addRenderOpts(md)
	output := md.AddString("o", "", "output file for dot data. stdout if empty")

	r, err := md.Parse()
	if r != modalflag.ParseContinue {
		return err
	}
	if err := opts.apply(); err != nil {
		return err
	}

	prg, err := buildProgram(md, opts)
	if err != nil {
		return err
	}

	out := os.Stdout
	if *output != "" {
		out, err = os.Create(*output)
		if err != nil {
			return err
		}
		defer out.Close()
	}

	memviz.Map(out, prg)
	return nil
}

func main() {
	md := &modalflag.Modes{Output: os.Stdout}
	md.NewArgs(os.Args[1:])
	md.AddSubModes("PLAY", "WAV", "AU", "GRAPH", "VERSION")

	r, err := md.Parse()
	switch r {
	case modalflag.ParseHelp:
		os.Exit(0)
	case modalflag.ParseError:
		fmt.Printf("* %v\n", err)
		os.Exit(10)
	}

	switch md.Mode() {
	case "PLAY":
		err = play(md)

	case "WAV":
		err = fileRender(md, func(filename string, rate int, channels int) (render.Sink, error) {
			return wavwriter.New(filename, rate, channels)
		})

	case "AU":
		err = fileRender(md, func(filename string, rate int, channels int) (render.Sink, error) {
			return auwriter.New(filename, rate, channels)
		})

	case "GRAPH":
		err = graph(md)

	case "VERSION":
		ver, rev, rel := version.Version()
		fmt.Printf("%s %s\n", version.ApplicationName, ver)
		if !rel {
			fmt.Printf("  %s\n", rev)
		}
	}

	if err != nil {
		fmt.Printf("* %v\n", err)
		os.Exit(10)
	}
}
