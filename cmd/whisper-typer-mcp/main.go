// Command whisper-typer-mcp is the state-cache collaborator: a small CLI
// that flips the mode/corrector toggles and the vocabulary/corrections
// dirty flags the dictation daemon reads at the start of each processing
// cycle. Editor tool surfaces drive the same file through this binary.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/Mizzlr/whisper-typer/internal/statecache"
)

func main() {
	mode := flag.String("mode", "", "set output mode: raw, corrected, or both")
	corrector := flag.String("corrector", "", "set corrector enablement: on or off")
	markVocabulary := flag.Bool("reload-vocabulary", false, "flag the vocabulary file as updated")
	markCorrections := flag.Bool("reload-corrections", false, "flag the corrections file as updated")
	selftest := flag.Bool("selftest", false, "probe the default audio capture device and exit")
	flag.Parse()

	if *selftest {
		if err := runSelftest(); err != nil {
			fmt.Fprintf(os.Stderr, "selftest failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("audio capture device reachable")
		return
	}

	path, err := statecache.DefaultPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	cache, err := statecache.New(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	did := false

	if *mode != "" {
		switch *mode {
		case "raw", "corrected", "both":
		default:
			fmt.Fprintf(os.Stderr, "error: --mode must be raw, corrected, or both (got %q)\n", *mode)
			os.Exit(1)
		}
		if err := cache.SetMode(*mode); err != nil {
			fmt.Fprintf(os.Stderr, "error setting mode: %v\n", err)
			os.Exit(1)
		}
		did = true
	}

	if *corrector != "" {
		var enabled bool
		switch *corrector {
		case "on":
			enabled = true
		case "off":
			enabled = false
		default:
			fmt.Fprintf(os.Stderr, "error: --corrector must be on or off (got %q)\n", *corrector)
			os.Exit(1)
		}
		if err := cache.SetCorrectorEnabled(enabled); err != nil {
			fmt.Fprintf(os.Stderr, "error setting corrector: %v\n", err)
			os.Exit(1)
		}
		did = true
	}

	if *markVocabulary {
		if err := cache.MarkVocabularyUpdated(); err != nil {
			fmt.Fprintf(os.Stderr, "error flagging vocabulary: %v\n", err)
			os.Exit(1)
		}
		did = true
	}

	if *markCorrections {
		if err := cache.MarkCorrectionsUpdated(); err != nil {
			fmt.Fprintf(os.Stderr, "error flagging corrections: %v\n", err)
			os.Exit(1)
		}
		did = true
	}

	if !did {
		st := cache.Read()
		fmt.Printf("mode=%s corrector=%v recent=%d\n", st.Mode, st.CorrectorEnabled, len(st.RecentTranscriptions))
		return
	}
}

// runSelftest opens the default capture device via miniaudio and
// confirms at least one non-empty buffer arrives within two seconds.
func runSelftest() error {
	mCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(_ string) {})
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}
	defer func() { _ = mCtx.Uninit(); mCtx.Free() }()

	devCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	devCfg.SampleRate = 16000
	devCfg.Capture.Format = malgo.FormatS16
	devCfg.Capture.Channels = 1

	heard := make(chan struct{}, 1)
	callbacks := malgo.DeviceCallbacks{
		Data: func(_ []byte, raw []byte, _ uint32) {
			if len(raw) == 0 {
				return
			}
			select {
			case heard <- struct{}{}:
			default:
			}
		},
	}

	device, err := malgo.InitDevice(mCtx.Context, devCfg, callbacks)
	if err != nil {
		return fmt.Errorf("init device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("start device: %w", err)
	}
	defer device.Stop()

	select {
	case <-heard:
		return nil
	case <-time.After(2 * time.Second):
		return fmt.Errorf("no audio buffers received within 2s")
	}
}
