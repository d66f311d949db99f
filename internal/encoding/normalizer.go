package encoding

import (
	"log"
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Normalizer decodes raw uploaded bytes into Unicode text. Detection is
// statistical and advisory: whatever the detector says, decoding proceeds
// with replacement characters for undecodable sequences and never fails
// the upload on bad bytes alone.
type Normalizer struct {
	detector *chardet.Detector
}

func NewNormalizer() *Normalizer {
	return &Normalizer{detector: chardet.NewTextDetector()}
}

// cyrillicCodecs maps detected charset labels to legacy Cyrillic decoders,
// matched case-insensitively by substring in this order. Anything unmatched
// decodes as UTF-8.
var cyrillicCodecs = []struct {
	substr string
	enc    encoding.Encoding
}{
	{"windows-1251", charmap.Windows1251},
	{"1251", charmap.Windows1251},
	{"866", charmap.CodePage866},
	{"koi8-r", charmap.KOI8R},
	{"koi8", charmap.KOI8R},
}

// Decode detects the byte encoding of buf and returns its text content.
func (n *Normalizer) Decode(buf []byte) (string, error) {
	label := "utf-8"
	if res, err := n.detector.DetectBest(buf); err == nil {
		label = res.Charset
		log.Printf("encoding: detected %s (confidence %d%%)", res.Charset, res.Confidence)
	}

	out, err := codecFor(label).NewDecoder().Bytes(buf)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// codecFor resolves a detector label against the Cyrillic precedence list.
func codecFor(label string) encoding.Encoding {
	lower := strings.ToLower(label)
	for _, c := range cyrillicCodecs {
		if strings.Contains(lower, c.substr) {
			return c.enc
		}
	}
	// UTF-8 with invalid sequences replaced by U+FFFD; a leading BOM is
	// stripped rather than surfacing as a character.
	return unicode.UTF8BOM
}
