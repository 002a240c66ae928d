package tts

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// styleRows is how many token-count-indexed style rows each voice
// carries, and styleDim is the width of a row. The archive stores each
// voice as a (510, 1, 256) tensor; the middle axis is squeezed away on
// load.
const (
	styleRows = 510
	styleDim  = 256
)

var voiceArchiveMagic = [4]byte{'K', 'V', 'O', 'X'}

// Voice is a name plus a dense style matrix of shape (styleRows,
// styleDim).
type Voice struct {
	Name string
	// Style is row-major: Style[row*styleDim : (row+1)*styleDim] is the
	// style vector for that token count.
	Style []float32
}

// Row returns the style vector for nTokens: row n_tokens-2, clamped to
// [0, styleRows-1].
func (v *Voice) Row(nTokens int) []float32 {
	idx := nTokens - 2
	if idx < 0 {
		idx = 0
	}
	if idx > styleRows-1 {
		idx = styleRows - 1
	}
	return v.Style[idx*styleDim : (idx+1)*styleDim]
}

// LoadVoiceArchive reads every voice from a binary archive at path:
// magic "KVOX", uint32 voice count, then per voice a uint16 name length,
// the name bytes, and styleRows*styleDim little-endian float32 values.
func LoadVoiceArchive(path string) (map[string]*Voice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tts: open voice archive: %w", err)
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 1<<20)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("tts: read voice archive magic: %w", err)
	}
	if magic != voiceArchiveMagic {
		return nil, fmt.Errorf("tts: voice archive %q has bad magic", path)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("tts: read voice count: %w", err)
	}

	voices := make(map[string]*Voice, count)
	for i := uint32(0); i < count; i++ {
		var nameLen uint16
		if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
			return nil, fmt.Errorf("tts: read voice %d name length: %w", i, err)
		}
		nameBytes := make([]byte, nameLen)
		if _, err := io.ReadFull(r, nameBytes); err != nil {
			return nil, fmt.Errorf("tts: read voice %d name: %w", i, err)
		}

		style := make([]float32, styleRows*styleDim)
		if err := binary.Read(r, binary.LittleEndian, style); err != nil {
			return nil, fmt.Errorf("tts: read voice %d style matrix: %w", i, err)
		}

		name := string(nameBytes)
		voices[name] = &Voice{Name: name, Style: style}
	}
	return voices, nil
}
