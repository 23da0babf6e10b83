package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
)

func TestDecoder_Chain(t *testing.T) {
	dec, err := NewDecoder([]string{"utf-8", "cp949", "shift_jis"})
	require.NoError(t, err)

	euckr, err := korean.EUCKR.NewEncoder().Bytes([]byte("스킬 사용"))
	require.NoError(t, err)
	sjis, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte("ｽｷﾙ"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    []byte
		want     string
		wantEnc  string
		wantLoss bool
	}{
		{name: "ascii", input: []byte("int x;"), want: "int x;", wantEnc: "utf-8"},
		{name: "utf-8 with bom", input: []byte("\xef\xbb\xbf스킬"), want: "스킬", wantEnc: "utf-8"},
		{name: "cp949", input: euckr, want: "스킬 사용", wantEnc: "cp949"},
		{name: "shift_jis halfwidth", input: sjis, want: "ｽｷﾙ", wantEnc: "shift_jis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, enc, lossy := dec.Decode(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantEnc, enc)
			assert.Equal(t, tt.wantLoss, lossy)
		})
	}
}

func TestDecoder_LossyFallback(t *testing.T) {
	dec, err := NewDecoder([]string{"utf-8"})
	require.NoError(t, err)

	got, _, lossy := dec.Decode([]byte{'a', 0xff, 'b'})
	assert.True(t, lossy)
	assert.Equal(t, "a�b", got)
}

func TestNewDecoder_Unknown(t *testing.T) {
	_, err := NewDecoder([]string{"klingon-8"})
	assert.Error(t, err)

	_, err = NewDecoder(nil)
	assert.Error(t, err)
}
