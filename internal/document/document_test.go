package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"

	"github.com/nerdneilsfield/latex-translator/pkg/masking"
)

func TestDetectEncoding(t *testing.T) {
	gbk, err := simplifiedchinese.GBK.NewEncoder().String(`\section{中文标题}`)
	require.NoError(t, err)
	utf16le, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String("abc")
	require.NoError(t, err)
	utf16be, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder().String("abc")
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"plain ascii", []byte(`\begin{document}`), EncodingUTF8},
		{"utf-8 multibyte", []byte("Schrödinger"), EncodingUTF8},
		{"utf-8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "x"...), EncodingUTF8BOM},
		{"utf-16le", []byte(utf16le), EncodingUTF16LE},
		{"utf-16be", []byte(utf16be), EncodingUTF16BE},
		{"gbk", []byte(gbk), EncodingGBK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectEncoding(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = DetectEncoding([]byte("a\xffb"))
	assert.ErrorIs(t, err, ErrUnknownEncoding)
}

func TestDecode(t *testing.T) {
	gbk, err := simplifiedchinese.GBK.NewEncoder().String("中文 $x$")
	require.NoError(t, err)
	sjis, err := japanese.ShiftJIS.NewEncoder().String("日本語")
	require.NoError(t, err)
	utf16le, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String("héllo")
	require.NoError(t, err)

	tests := []struct {
		name     string
		data     []byte
		encoding string
		want     string
		used     string
	}{
		{"auto utf-8", []byte("plain"), "", "plain", EncodingUTF8},
		{"bom stripped", append([]byte{0xEF, 0xBB, 0xBF}, "x"...), "auto", "x", EncodingUTF8BOM},
		{"auto gbk", []byte(gbk), "", "中文 $x$", EncodingGBK},
		{"auto utf-16", []byte(utf16le), "", "héllo", EncodingUTF16LE},
		{"explicit shift-jis", []byte(sjis), "sjis", "日本語", EncodingShiftJIS},
		{"explicit latin-1", []byte("caf\xe9"), "ISO-8859-1", "café", EncodingLatin1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, used, err := Decode(tt.data, tt.encoding)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.used, used)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	_, _, err := Decode([]byte("x"), "ebcdic")
	assert.ErrorIs(t, err, ErrUnsupportedEncoding)

	_, _, err = Decode([]byte("a\xffb"), "utf-8")
	assert.ErrorIs(t, err, ErrDecode)
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path   string
		format Format
		ok     bool
	}{
		{"paper.tex", FormatLaTeX, true},
		{"dir/Paper.TEX", FormatLaTeX, true},
		{"macros.sty", FormatLaTeX, true},
		{"notes.txt", FormatText, true},
		{"README", "", false},
		{"data.csv", "", false},
	}
	for _, tt := range tests {
		got, ok := FormatOf(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.format, got, tt.path)
	}

	r := NewRegistry()
	r.RegisterExtension(".Rnw", FormatLaTeX)
	f, ok := r.FormatOf("analysis.rnw")
	assert.True(t, ok)
	assert.True(t, f.Masked())
	assert.Contains(t, r.Extensions(FormatLaTeX), "rnw")
	assert.False(t, FormatText.Masked())
}

func TestReadWrite(t *testing.T) {
	dir := t.TempDir()

	gbk, err := simplifiedchinese.GBK.NewEncoder().String("\\section{引言}\n\n正文。\n")
	require.NoError(t, err)
	in := filepath.Join(dir, "paper.tex")
	require.NoError(t, os.WriteFile(in, []byte(gbk), 0o644))

	doc, err := Read(in, "")
	require.NoError(t, err)
	assert.Equal(t, "\\section{引言}\n\n正文。\n", doc.Text)
	assert.Equal(t, EncodingGBK, doc.Encoding)
	assert.Equal(t, FormatLaTeX, doc.Format)

	out := filepath.Join(dir, "nested", "out", "paper.zh.tex")
	require.NoError(t, Write(out, doc.Text))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, doc.Text, string(data))

	// 覆盖已有文件，且不留下临时文件
	require.NoError(t, Write(out, "second"))
	data, err = os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = Read(filepath.Join(dir, "missing.tex"), "")
	assert.Error(t, err)
}

func TestReadUnknownExtensionIsText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	doc, err := Read(path, "")
	require.NoError(t, err)
	assert.Equal(t, FormatText, doc.Format)
}

func TestSaveInputOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "paper.tex")
	out := filepath.Join(dir, "paper.zh.tex")

	reg := masking.NewRegistry()
	reg.Add(`$x$`)
	reg.Add(`\cite{a}`)

	paths, err := SaveInput(in, "Let @0@ hold @1@.", reg, masking.DefaultTokenScheme(), true)
	require.NoError(t, err)
	assert.Equal(t, in+".input", paths.Input)
	assert.Equal(t, in+".registry.json", paths.Registry)

	outPath, err := SaveOutput(out, "令 @ 0 @ 成立 @1@。")
	require.NoError(t, err)
	assert.Equal(t, out+".output", outPath)

	data, err := os.ReadFile(paths.Input)
	require.NoError(t, err)
	assert.Equal(t, "Let @0@ hold @1@.", string(data))
	data, err = os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "令 @ 0 @ 成立 @1@。", string(data))

	snapshot, err := masking.LoadSnapshot(paths.Registry)
	require.NoError(t, err)
	assert.True(t, snapshot.Trim)
	restored, err := snapshot.Registry()
	require.NoError(t, err)
	assert.Equal(t, reg.Entries(), restored.Entries())
}

func TestSaveInputWithoutRegistry(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "a.txt")

	paths, err := SaveInput(in, "hello", nil, masking.DefaultTokenScheme(), false)
	require.NoError(t, err)
	assert.Empty(t, paths.Registry)
	_, err = os.Stat(in + ".registry.json")
	assert.True(t, os.IsNotExist(err))
}
