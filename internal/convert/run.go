// Package convert implements the conversion command of the program.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"cssinline/internal/state"
	"cssinline/pkg/inliner"
)

// Flags returns flags understood by Run.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write result to `PATH` (file, or directory when SOURCE is a directory), STDOUT if absent"},
		&cli.BoolFlag{Name: "stats", Usage: "print processing statistics to STDERR"},
		&cli.BoolFlag{Name: "tokenizer", Usage: "extract rules with the CSS tokenizer instead of pattern matching"},
	}
}

// Run converts SOURCE, a single HTML file, a directory of them or "-" for
// standard input.
func Run(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input file has been specified")
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Malformed command line, too many sources", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	cfg := *env.Cfg
	if cmd.IsSet("tokenizer") {
		cfg.CSS.Tokenizer = cmd.Bool("tokenizer")
	}
	engine := inliner.New(cfg, env.Log)

	dst := cmd.String("output")
	if src == "-" {
		return runStdin(cmd, engine, log, dst)
	}

	info, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("input file '%s' does not exist", src)
		}
		return fmt.Errorf("unable to access input '%s': %w", src, err)
	}
	if info.IsDir() {
		return runBatch(ctx, cmd, engine, log, src, dst)
	}

	content, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read input file %s: %w", src, err)
	}
	result, err := convert(engine, log, src, content, dst, cmd.Root().Writer)
	if err != nil {
		return err
	}
	if cmd.Bool("stats") {
		showProcessingStats(cmd.Root().ErrWriter, src, result.ProcessingStats)
	}
	return nil
}

// runStdin converts HTML read from standard input.
func runStdin(cmd *cli.Command, engine *inliner.Inliner, log *zap.Logger, dst string) error {
	in := cmd.Root().Reader
	if in == nil {
		in = os.Stdin
	}
	content, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read from stdin: %w", err)
	}

	result, err := convert(engine, log, "<stdin>", content, dst, cmd.Root().Writer)
	if err != nil {
		return err
	}
	if cmd.Bool("stats") {
		showProcessingStats(cmd.Root().ErrWriter, "<stdin>", result.ProcessingStats)
	}
	return nil
}

// convert inlines content read from name and writes the result to dst, or
// to out when dst is empty.
func convert(engine *inliner.Inliner, log *zap.Logger, name string, content []byte, dst string, out io.Writer) (*inliner.InlineResult, error) {
	result, err := engine.Inline(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to inline CSS: %w", err)
	}
	if n := len(multierr.Errors(result.Diagnostics)); n > 0 {
		log.Info("Conversion completed with recoverable problems", zap.String("file", name), zap.Int("count", n))
	}

	if err := writeOutput(result.HTML, dst, out); err != nil {
		return nil, fmt.Errorf("failed to write output: %w", err)
	}
	return result, nil
}

// runBatch converts every HTML file under dir into the same relative
// location under outDir. Failures of individual files are reported and
// processing continues.
func runBatch(ctx context.Context, cmd *cli.Command, engine *inliner.Inliner, log *zap.Logger, dir, outDir string) error {
	if outDir == "" {
		return errors.New("output directory is required when source is a directory")
	}

	htmlFiles, err := findHTMLFiles(dir)
	if err != nil {
		return fmt.Errorf("failed to find HTML files: %w", err)
	}
	if len(htmlFiles) == 0 {
		return fmt.Errorf("no HTML files found in directory: %s", dir)
	}

	var (
		total  inliner.ProcessingStats
		failed error
	)
	for i, inputPath := range htmlFiles {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Debug("Processing", zap.Int("file", i+1), zap.Int("of", len(htmlFiles)), zap.String("path", inputPath))

		relPath, err := filepath.Rel(dir, inputPath)
		if err != nil {
			failed = multierr.Append(failed, err)
			continue
		}
		content, err := os.ReadFile(inputPath)
		if err != nil {
			failed = multierr.Append(failed, fmt.Errorf("failed to read input file %s: %w", inputPath, err))
			continue
		}
		result, err := convert(engine, log, inputPath, content, filepath.Join(outDir, relPath), nil)
		if err != nil {
			log.Warn("Unable to convert file", zap.String("file", inputPath), zap.Error(err))
			failed = multierr.Append(failed, err)
			continue
		}
		total.Add(result.ProcessingStats)
	}

	if cmd.Bool("stats") {
		showProcessingStats(cmd.Root().ErrWriter, fmt.Sprintf("%d files", len(htmlFiles)), total)
	}
	if n := len(multierr.Errors(failed)); n > 0 {
		return fmt.Errorf("%d of %d files failed: %w", n, len(htmlFiles), failed)
	}
	return nil
}

// writeOutput writes content to a file, creating parent directories, or to
// out when filename is empty
func writeOutput(content, filename string, out io.Writer) error {
	if filename == "" {
		if out == nil {
			out = os.Stdout
		}
		_, err := io.WriteString(out, content)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return os.WriteFile(filename, []byte(content), 0644)
}

// findHTMLFiles finds all HTML files in a directory
func findHTMLFiles(dir string) ([]string, error) {
	var htmlFiles []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			ext := strings.ToLower(filepath.Ext(path))
			if ext == ".html" || ext == ".htm" {
				htmlFiles = append(htmlFiles, path)
			}
		}
		return nil
	})
	return htmlFiles, err
}

// showProcessingStats displays processing statistics
func showProcessingStats(w io.Writer, name string, stats inliner.ProcessingStats) {
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, "\nProcessing Statistics for %s:\n", name)
	fmt.Fprintf(w, "  CSS rules parsed: %d\n", stats.CSSRulesParsed)
	fmt.Fprintf(w, "  Selectors matched: %d\n", stats.SelectorsMatched)
	fmt.Fprintf(w, "  Selector errors: %d\n", stats.SelectorErrors)
	fmt.Fprintf(w, "  Elements styled: %d\n", stats.ElementsStyled)
	fmt.Fprintf(w, "  Media blocks preserved: %d\n", stats.MediaBlocksPreserved)
	fmt.Fprintf(w, "  Style blocks removed: %d\n", stats.StyleBlocksRemoved)
	fmt.Fprintf(w, "  Processing time: %v\n", stats.ProcessingTime)
}
