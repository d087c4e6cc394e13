package scanner

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// codepages maps the zip_codepage config values ROPDS libraries
// typically declare to their x/text charmap.Charmap, the legacy
// encodings Russian-language INPX/ZIP book collections ship entry
// names in.
var codepages = map[string]*charmap.Charmap{
	"cp866":  charmap.CodePage866,
	"cp1251": charmap.Windows1251,
}

// decodeZipName recovers the original entry name when the archive was
// written without the UTF-8 flag (NonUTF8): Go's zip reader decodes
// such names as if they were CP437, so re-encoding through CP437 and
// decoding through the configured codepage undoes the mismatch.
func decodeZipName(name, codepage string, nonUTF8 bool) string {
	if !nonUTF8 || codepage == "" {
		return name
	}
	cm, ok := codepages[strings.ToLower(codepage)]
	if !ok {
		return name
	}
	raw, err := charmap.CodePage437.NewEncoder().String(name)
	if err != nil {
		return name
	}
	decoded, err := cm.NewDecoder().String(raw)
	if err != nil {
		return name
	}
	return decoded
}
