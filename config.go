package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	appName   = "meshtools"
	envPrefix = "MESHTOOLS"
)

var cfgFile string

// ReportSettings configures one `report` invocation.
type ReportSettings struct {
	Root           string
	Classifier     ClassifierConfig
	NoDirExclusion bool
	Gitignore      bool
	ReportName     string
	ReportFile     string // overrides Root/ReportName when set
	PDFFile        string
	Print          bool
	Clipboard      bool
	Tokens         bool
	Tokenizer      TokenizerConfig
	LanguageSearch []string
}

// ReportPath is where the report is written.
func (s ReportSettings) ReportPath() (string, error) {
	if s.ReportFile != "" {
		return filepath.Abs(s.ReportFile)
	}
	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, s.ReportName), nil
}

// setDefaults registers every configuration key with its built-in value.
func setDefaults(v *viper.Viper) {
	h := DefaultHarnessSettings()

	v.SetDefault("exclude_extensions", defaultExcludedExtensions)
	v.SetDefault("exclude_dirs", defaultExcludedDirs)
	v.SetDefault("sniff_bytes", defaultSniffBytes)
	v.SetDefault("max_size", 0)
	v.SetDefault("gitignore", false)
	v.SetDefault("no_sniff", false)
	v.SetDefault("no_dir_exclusion", false)
	v.SetDefault("report_name", defaultReportName)
	v.SetDefault("tokenizer", "tiktoken")
	v.SetDefault("model", "")

	v.SetDefault("project_root", h.ProjectRoot)
	v.SetDefault("src_dir", h.SrcDir)
	v.SetDefault("test_dir", h.TestDir)
	v.SetDefault("build_dir", h.BuildDir)
	v.SetDefault("log_file", h.LogFile)
	v.SetDefault("test_ext", h.TestExt)
	v.SetDefault("compiler", h.Compiler)
	v.SetDefault("cflags", h.CFlags)
	v.SetDefault("ldflags", h.LDFlags)
	v.SetDefault("timeout", h.Timeout)
}

// initConfig loads .env, the config file and MESHTOOLS_* environment variables.
func initConfig() {
	// A missing .env is normal.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", appName))
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: error reading config file: %v\n", err)
		}
	}
}

// languageSearchDirs are checked in order for a languages.yml override.
func languageSearchDirs() []string {
	var dirs []string
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", appName))
	}
	return append(dirs, ".")
}

func reportSettingsFrom(v *viper.Viper, root string) ReportSettings {
	return ReportSettings{
		Root: root,
		Classifier: ClassifierConfig{
			ExcludedExtensions: v.GetStringSlice("exclude_extensions"),
			ExcludedDirs:       v.GetStringSlice("exclude_dirs"),
			AllowExtensions:    v.GetStringSlice("ext"),
			SniffBytes:         v.GetInt("sniff_bytes"),
			MaxSize:            v.GetInt64("max_size"),
			DisableSniff:       v.GetBool("no_sniff"),
		},
		NoDirExclusion: v.GetBool("no_dir_exclusion"),
		Gitignore:      v.GetBool("gitignore"),
		ReportName:     v.GetString("report_name"),
		ReportFile:     v.GetString("file"),
		PDFFile:        v.GetString("pdf"),
		Print:          v.GetBool("print"),
		Clipboard:      v.GetBool("clipboard"),
		Tokens:         v.GetBool("tokens"),
		Tokenizer: TokenizerConfig{
			Kind:  v.GetString("tokenizer"),
			Model: v.GetString("model"),
			File:  v.GetString("tokenizer_file"),
		},
		LanguageSearch: languageSearchDirs(),
	}
}

func harnessSettingsFrom(v *viper.Viper) HarnessSettings {
	return HarnessSettings{
		ProjectRoot: v.GetString("project_root"),
		SrcDir:      v.GetString("src_dir"),
		TestDir:     v.GetString("test_dir"),
		BuildDir:    v.GetString("build_dir"),
		LogFile:     v.GetString("log_file"),
		TestExt:     normalizeExt(v.GetString("test_ext")),
		Compiler:    v.GetString("compiler"),
		CFlags:      v.GetStringSlice("cflags"),
		LDFlags:     v.GetStringSlice("ldflags"),
		Timeout:     v.GetDuration("timeout"),
	}
}

// bindFlag binds a cobra flag to a viper key, failing loudly on a typo.
func bindFlag(cmd *cobra.Command, key, flag string) {
	cobra.CheckErr(viper.BindPFlag(key, cmd.Flags().Lookup(flag)))
}
