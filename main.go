package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is the application version, set via ldflags.
var version = "dev"

var (
	interactiveMode bool
	failOnError     bool
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Project reports and C test harness for the MeshExchange tree.",
	Long: `meshtools walks a source tree into a single text report (tree view, line
counts and the full text of every file), and compiles and runs the C test
programs under tests/.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var reportCmd = &cobra.Command{
	Use:   "report [PATH]",
	Short: "Render the tree, line counts and file contents of PATH into project_report.txt",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		return runReport(reportSettingsFrom(viper.GetViper(), root), cmd.OutOrStdout())
	},
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Compile every tests/*.c program, run them and write test_report.log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := runTests(cmd.Context(), harnessSettingsFrom(viper.GetViper()), interactiveMode, cmd.OutOrStdout())
		if errors.Is(err, errSelectionAborted) {
			return nil
		}
		if err != nil {
			return err
		}
		if failOnError && summary.Passed < summary.Discovered {
			return fmt.Errorf("%d of %d tests did not pass", summary.Discovered-summary.Passed, summary.Discovered)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	setDefaults(viper.GetViper())

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/meshtools/config.toml)")

	// Filtering
	reportCmd.Flags().StringSlice("ext", nil, `Only include these extensions (e.g. --ext ".py .js" or --ext .py --ext .js)`)
	bindFlag(reportCmd, "ext", "ext")
	reportCmd.Flags().Int64P("max-size", "s", 0, "Exclude files larger than this many bytes (0 for no limit)")
	bindFlag(reportCmd, "max_size", "max-size")
	reportCmd.Flags().Bool("gitignore", false, "Respect the .gitignore at the root")
	bindFlag(reportCmd, "gitignore", "gitignore")
	reportCmd.Flags().Bool("no-sniff", false, "Trust extensions only; skip binary content sniffing")
	bindFlag(reportCmd, "no_sniff", "no-sniff")
	reportCmd.Flags().Bool("no-dir-exclusion", false, "Walk into node_modules, .git and other excluded directories")
	bindFlag(reportCmd, "no_dir_exclusion", "no-dir-exclusion")

	// Output
	reportCmd.Flags().StringP("file", "f", "", "Write the report here instead of PATH/project_report.txt")
	bindFlag(reportCmd, "file", "file")
	reportCmd.Flags().String("pdf", "", "Also save the report as a PDF")
	bindFlag(reportCmd, "pdf", "pdf")
	reportCmd.Flags().BoolP("print", "p", false, "Print the full report to stdout")
	bindFlag(reportCmd, "print", "print")
	reportCmd.Flags().BoolP("clipboard", "c", false, "Copy the report to the clipboard")
	bindFlag(reportCmd, "clipboard", "clipboard")

	// Token counting
	reportCmd.Flags().Bool("tokens", false, "Count model tokens over the included files")
	bindFlag(reportCmd, "tokens", "tokens")
	reportCmd.Flags().String("tokenizer", "tiktoken", "Tokenizer to use: tiktoken or huggingface")
	bindFlag(reportCmd, "tokenizer", "tokenizer")
	reportCmd.Flags().String("model", "", "Model name for the tokenizer (e.g., gpt-4o, gpt2)")
	bindFlag(reportCmd, "model", "model")
	reportCmd.Flags().String("tokenizer-file", "", "Path to a local tokenizer.json")
	bindFlag(reportCmd, "tokenizer_file", "tokenizer-file")

	testCmd.Flags().String("root", ".", "Project root containing src/, tests/ and build/")
	bindFlag(testCmd, "project_root", "root")
	testCmd.Flags().String("compiler", "gcc", "C compiler")
	bindFlag(testCmd, "compiler", "compiler")
	testCmd.Flags().Duration("timeout", 0, "Kill a compile or test after this long (0 for no limit)")
	bindFlag(testCmd, "timeout", "timeout")
	testCmd.Flags().BoolVarP(&interactiveMode, "interactive", "i", false, "Pick which tests to run")
	testCmd.Flags().BoolVar(&failOnError, "fail", false, "Exit non-zero when any test does not pass")

	rootCmd.AddCommand(reportCmd, testCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", strings.Join(strings.Fields(err.Error()), " "))
		os.Exit(1)
	}
}

// runReport walks s.Root, writes the report and any extra outputs. Console
// output mirrors the report head as it is produced.
func runReport(s ReportSettings, stdout io.Writer) error {
	absRoot, err := filepath.Abs(s.Root)
	if err != nil {
		return fmt.Errorf("error resolving path %s: %w", s.Root, err)
	}
	reportPath, err := s.ReportPath()
	if err != nil {
		return fmt.Errorf("error resolving report path: %w", err)
	}

	revision, err := describeRevision(absRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	fmt.Fprintln(stdout, analysisBanner(absRoot))
	if revision != "" {
		fmt.Fprintln(stdout, "Revision: "+revision)
	}
	fmt.Fprintln(stdout)

	langData, err := loadLanguageData(s.LanguageSearch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load language definitions: %v\n", err)
	}

	var tokenizer Tokenizer
	if s.Tokens {
		tokenizer, err = newTokenizer(s.Tokenizer)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: token counting disabled: %v\n", err)
			tokenizer = nil
		}
	}

	skip := []string{reportPath}
	if s.PDFFile != "" {
		skip = append(skip, s.PDFFile)
	}
	res, err := Walk(absRoot, WalkOptions{
		Classifier:       NewClassifier(s.Classifier),
		KeepExcludedDirs: s.NoDirExclusion,
		Gitignore:        s.Gitignore,
		Skip:             skip,
		Echo:             stdout,
	})
	if err != nil {
		return err
	}

	summary := summarize(res, langData, tokenizer)
	fmt.Fprint(stdout, formatSummary(summary))

	opts := ComposeOptions{Revision: revision, Summary: &summary}
	text := Compose(res, opts)
	if err := writeReport(reportPath, text); err != nil {
		return err
	}

	if s.PDFFile != "" {
		if err := generatePDF(res, opts, langData, s.PDFFile); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		} else {
			fmt.Fprintf(stdout, "PDF saved to: %s\n", s.PDFFile)
		}
	}
	if s.Clipboard {
		if err := clipboard.WriteAll(text); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: error writing to clipboard: %v\n", err)
		} else {
			fmt.Fprintln(stdout, "Report copied to clipboard.")
		}
	}
	if s.Print {
		fmt.Fprint(stdout, text)
	}
	fmt.Fprintf(stdout, "\nReport saved to: %s\n", reportPath)
	return nil
}

// runTests runs the harness over the project at s.ProjectRoot.
func runTests(ctx context.Context, s HarnessSettings, interactive bool, stdout io.Writer) (HarnessSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	h := NewHarness(s, NewLogBook(stdout))
	if interactive {
		h.Select = pickTests
	}
	if root, err := filepath.Abs(s.ProjectRoot); err == nil {
		if rev, err := describeRevision(root); err == nil {
			h.Revision = rev
		}
	}
	return h.Run(ctx)
}
