package document

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// 支持的编码名称
const (
	EncodingUTF8     = "UTF-8"
	EncodingUTF8BOM  = "UTF-8-BOM"
	EncodingUTF16LE  = "UTF-16LE"
	EncodingUTF16BE  = "UTF-16BE"
	EncodingGBK      = "GBK"
	EncodingBig5     = "BIG5"
	EncodingShiftJIS = "SHIFT-JIS"
	EncodingEUCKR    = "EUC-KR"
	EncodingLatin1   = "LATIN-1"
	EncodingAuto     = "auto"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// encodingAliases 用户可写的编码别名
var encodingAliases = map[string]string{
	"utf8":       EncodingUTF8,
	"utf-8":      EncodingUTF8,
	"utf-8-bom":  EncodingUTF8BOM,
	"utf8bom":    EncodingUTF8BOM,
	"utf-16le":   EncodingUTF16LE,
	"utf16le":    EncodingUTF16LE,
	"utf-16be":   EncodingUTF16BE,
	"utf16be":    EncodingUTF16BE,
	"gbk":        EncodingGBK,
	"gb2312":     EncodingGBK,
	"gb18030":    EncodingGBK,
	"big5":       EncodingBig5,
	"shift-jis":  EncodingShiftJIS,
	"shift_jis":  EncodingShiftJIS,
	"sjis":       EncodingShiftJIS,
	"euc-kr":     EncodingEUCKR,
	"euckr":      EncodingEUCKR,
	"latin-1":    EncodingLatin1,
	"latin1":     EncodingLatin1,
	"iso-8859-1": EncodingLatin1,
}

// NormalizeEncoding 规范化编码名称，空字符串视为自动检测
func NormalizeEncoding(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == EncodingAuto {
		return EncodingAuto, nil
	}
	if canonical, ok := encodingAliases[name]; ok {
		return canonical, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedEncoding, name)
}

// SupportedEncodings 返回所有支持的编码名称
func SupportedEncodings() []string {
	return []string{
		EncodingUTF8, EncodingUTF8BOM, EncodingUTF16LE, EncodingUTF16BE,
		EncodingGBK, EncodingBig5, EncodingShiftJIS, EncodingEUCKR, EncodingLatin1,
	}
}

// DetectEncoding 检测字节流的编码
//
// 依次检查 BOM、UTF-8 合法性和 GBK。Big5、Shift-JIS 等与 GBK 无法可靠区分，
// 只能显式指定。无法识别时返回 ErrUnknownEncoding。
func DetectEncoding(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return EncodingUTF8BOM, nil
	case bytes.HasPrefix(data, bomUTF16LE):
		return EncodingUTF16LE, nil
	case bytes.HasPrefix(data, bomUTF16BE):
		return EncodingUTF16BE, nil
	}

	if utf8.Valid(data) {
		return EncodingUTF8, nil
	}
	if decodesCleanly(simplifiedchinese.GBK, data) {
		return EncodingGBK, nil
	}
	return "", ErrUnknownEncoding
}

// Decode 按指定编码解码为 UTF-8 字符串，EncodingAuto 表示先检测
//
// 返回实际使用的编码名称。结果不含 BOM。
func Decode(data []byte, name string) (string, string, error) {
	name, err := NormalizeEncoding(name)
	if err != nil {
		return "", "", err
	}
	if name == EncodingAuto {
		if name, err = DetectEncoding(data); err != nil {
			return "", "", err
		}
	}

	switch name {
	case EncodingUTF8, EncodingUTF8BOM:
		data = bytes.TrimPrefix(data, bomUTF8)
		if !utf8.Valid(data) {
			return "", name, fmt.Errorf("%w: input is not valid UTF-8", ErrDecode)
		}
		return string(data), name, nil
	}

	decoded, err := decoderFor(name).Bytes(data)
	if err != nil {
		return "", name, fmt.Errorf("%w: %s: %v", ErrDecode, name, err)
	}
	return string(decoded), name, nil
}

func decoderFor(name string) *encoding.Decoder {
	switch name {
	case EncodingUTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	case EncodingUTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
	case EncodingGBK:
		return simplifiedchinese.GBK.NewDecoder()
	case EncodingBig5:
		return traditionalchinese.Big5.NewDecoder()
	case EncodingShiftJIS:
		return japanese.ShiftJIS.NewDecoder()
	case EncodingEUCKR:
		return korean.EUCKR.NewDecoder()
	case EncodingLatin1:
		return charmap.ISO8859_1.NewDecoder()
	}
	return encoding.Nop.NewDecoder()
}

// decodesCleanly 解码成功且没有产生替换字符
func decodesCleanly(enc encoding.Encoding, data []byte) bool {
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return false
	}
	return utf8.Valid(decoded) && !bytes.ContainsRune(decoded, utf8.RuneError)
}
