// Package document 负责待翻译文档的读取、写出和中间文件保存
package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nerdneilsfield/latex-translator/pkg/masking"
)

var (
	ErrUnknownEncoding     = errors.New("unable to detect input encoding, specify it explicitly")
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
	ErrDecode              = errors.New("failed to decode input")
)

// 中间文件后缀
const (
	InputSuffix    = ".input"
	OutputSuffix   = ".output"
	RegistrySuffix = ".registry.json"
)

// Document 已解码的输入文档
type Document struct {
	Path     string
	Text     string
	Encoding string
	Format   Format
}

// Read 读取文档并解码为 UTF-8，encodingName 为空时自动检测
//
// 扩展名未注册的文件视为纯文本。
func Read(path, encodingName string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	text, used, err := Decode(data, encodingName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	format, ok := FormatOf(path)
	if !ok {
		format = FormatText
	}

	return &Document{
		Path:     path,
		Text:     text,
		Encoding: used,
		Format:   format,
	}, nil
}

// Write 以 UTF-8（无 BOM）写出文本，必要时创建父目录
//
// 先写入同目录的临时文件再重命名，失败时不会留下半个输出文件。
func Write(path, text string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// InputDumpPath 遮蔽后文本的保存路径
func InputDumpPath(inputPath string) string {
	return inputPath + InputSuffix
}

// OutputDumpPath 还原前译文的保存路径
func OutputDumpPath(outputPath string) string {
	return outputPath + OutputSuffix
}

// RegistryPath 注册表快照的保存路径
func RegistryPath(inputPath string) string {
	return inputPath + RegistrySuffix
}

// SavedPaths 实际写出的中间文件
type SavedPaths struct {
	Input    string
	Output   string
	Registry string
}

// SaveInput 保存遮蔽后的文本 <input>.input 和注册表快照 <input>.registry.json
//
// reg 为 nil（未启用遮蔽）时不写快照。
func SaveInput(inputPath, masked string, reg *masking.Registry, scheme masking.TokenScheme, trim bool) (SavedPaths, error) {
	paths := SavedPaths{Input: InputDumpPath(inputPath)}
	if err := Write(paths.Input, masked); err != nil {
		return SavedPaths{}, err
	}

	if reg != nil {
		paths.Registry = RegistryPath(inputPath)
		snapshot := masking.NewSnapshot(reg, scheme)
		snapshot.Trim = trim
		if err := masking.SaveSnapshot(paths.Registry, snapshot); err != nil {
			return SavedPaths{}, err
		}
	}
	return paths, nil
}

// SaveOutput 保存拼接后、还原前的译文 <output>.output
func SaveOutput(outputPath, translated string) (string, error) {
	path := OutputDumpPath(outputPath)
	if err := Write(path, translated); err != nil {
		return "", err
	}
	return path, nil
}
