package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/nerdneilsfield/latex-translator/pkg/masking"
)

// 规则文件的合并方式
const (
	RulesModeReplace = "replace"
	RulesModeExtend  = "extend"
)

// RulesFile TOML 规则文件
//
//	mode = "extend"
//	environments = ["tikzpicture"]
//	commands = ["eqref", "autoref"]
type RulesFile struct {
	Mode         string   `toml:"mode"`
	Environments []string `toml:"environments"`
	Commands     []string `toml:"commands"`
}

// LoadRulesFile 加载规则文件
func LoadRulesFile(path string) (*RulesFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("rules file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	rules := &RulesFile{}
	if err := toml.Unmarshal(content, rules); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rules file: %w", err)
	}

	switch rules.Mode {
	case "":
		rules.Mode = RulesModeExtend
	case RulesModeReplace, RulesModeExtend:
	default:
		return nil, fmt.Errorf("rules file %s: unknown mode %q (want %q or %q)", path, rules.Mode, RulesModeReplace, RulesModeExtend)
	}
	return rules, nil
}

// Apply 将规则文件合并到已有规则上
//
// extend 模式按原顺序追加未出现过的名称；replace 模式整体替换。
func (r *RulesFile) Apply(base masking.RuleSet) masking.RuleSet {
	if r.Mode == RulesModeReplace {
		return masking.RuleSet{
			Environments: append([]string(nil), r.Environments...),
			Commands:     append([]string(nil), r.Commands...),
		}
	}
	return masking.RuleSet{
		Environments: appendUnique(base.Environments, r.Environments),
		Commands:     appendUnique(base.Commands, r.Commands),
	}
}

// ApplyRulesFile 加载并合并规则文件
func (c *Config) ApplyRulesFile(path string) error {
	rules, err := LoadRulesFile(path)
	if err != nil {
		return err
	}
	c.Rules = rules.Apply(c.Rules)
	c.RulesFile = path
	return nil
}

func appendUnique(base, extra []string) []string {
	out := append([]string(nil), base...)
	seen := make(map[string]bool, len(base)+len(extra))
	for _, name := range base {
		seen[name] = true
	}
	for _, name := range extra {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
