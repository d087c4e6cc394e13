package mobi

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildMinimalMOBI assembles the smallest PDB+MOBI+EXTH structure
// Parse needs: a PalmDB header, one record-info entry pointing at
// record 0, and a record 0 containing a MOBI header with an EXTH
// block carrying a title (503) and author (100).
func buildMinimalMOBI(t *testing.T) []byte {
	t.Helper()

	exth := &bytes.Buffer{}
	writeExthRecord := func(typ uint32, val string) {
		binary.Write(exth, binary.BigEndian, typ)
		binary.Write(exth, binary.BigEndian, uint32(8+len(val)))
		exth.WriteString(val)
	}
	writeExthRecord(503, "Test Title")
	writeExthRecord(100, "Author One")

	exthHeader := &bytes.Buffer{}
	exthHeader.WriteString("EXTH")
	binary.Write(exthHeader, binary.BigEndian, uint32(12+exth.Len()))
	binary.Write(exthHeader, binary.BigEndian, uint32(2))
	exthHeader.Write(exth.Bytes())

	const mobiHeaderStart = 16
	mobiHeaderLen := 232
	rec0 := make([]byte, mobiHeaderStart+mobiHeaderLen)
	binary.BigEndian.PutUint32(rec0[mobiHeaderStart:], 0x4d4f4249) // "MOBI"
	binary.BigEndian.PutUint32(rec0[mobiHeaderStart+4:], uint32(mobiHeaderLen))
	binary.BigEndian.PutUint32(rec0[mobiHeaderStart+128:], 0x40) // has-EXTH flag
	rec0 = append(rec0, exthHeader.Bytes()...)

	pdb := make([]byte, 78)
	binary.BigEndian.PutUint16(pdb[76:], 1) // numRecords = 1
	recInfo := make([]byte, 8)
	binary.BigEndian.PutUint32(recInfo, uint32(len(pdb)+8))

	out := append(pdb, recInfo...)
	out = append(out, rec0...)
	return out
}

func TestParse(t *testing.T) {
	data := buildMinimalMOBI(t)
	meta, err := Parse(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "Test Title", meta.Title)
	assert.Equal(t, []string{"Author One"}, meta.Authors)
}

func TestParse_TooSmall(t *testing.T) {
	_, err := Parse(bytes.NewReader([]byte("tiny")))
	require.Error(t, err)
}
