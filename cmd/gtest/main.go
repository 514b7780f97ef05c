// gtest runs the swindle binary over a directory of programs and compares each result against a
// golden file stored next to the program.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/swindle/pkg/cli"
	"github.com/xplshn/swindle/pkg/util"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

// Golden is the recorded behaviour of one program.
type Golden struct {
	SourceHash string    `json:"source_hash"`
	Run        Execution `json:"run"`
}

type FileTestResult struct {
	File    string     `json:"file"`
	Status  string     `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message string     `json:"message,omitempty"`
	Diff    string     `json:"diff,omitempty"`
	Golden  *Golden    `json:"golden,omitempty"`
	Run     *Execution `json:"run,omitempty"`
	Exec    *Execution `json:"exec,omitempty"`
}

type TestSuiteResults map[string]*FileTestResult

type intValue struct{ p *int }

func (v *intValue) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid number '%s': %w", s, err)
	}
	*v.p = n
	return nil
}
func (v *intValue) String() string { return strconv.Itoa(*v.p) }
func (v *intValue) Get() any       { return *v.p }

type durationValue struct{ p *time.Duration }

func (v *durationValue) Set(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration '%s': %w", s, err)
	}
	*v.p = d
	return nil
}
func (v *durationValue) String() string { return v.p.String() }
func (v *durationValue) Get() any       { return *v.p }

var (
	binary         string
	binaryArgs     string
	generateGolden bool
	testFiles      string
	skipFiles      string
	outputJSON     string
	timeout        = 5 * time.Second
	jobs           = 4
	verbose        bool
	ignoreLines    string
)

var log = util.Logger("gtest")

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	app := cli.NewApp("gtest")
	app.Synopsis = "[options] [check|golden]"
	app.Description = "Runs each program with 'swindle run' and 'swindle build' followed by 'swindle exec', and compares both against the golden file '.<name>.sw.json'."
	app.Authors = []string{"xplshn"}
	app.Since = 2025
	app.Default = "check"

	fs := app.FlagSet
	fs.String(&binary, "binary", "b", "./swindle", "Path to the swindle binary under test.", "path")
	fs.String(&binaryArgs, "binary-args", "", "", "Extra arguments passed to every swindle invocation (space-separated).", "args")
	fs.String(&testFiles, "test-files", "", "tests/*.sw", "Glob pattern(s) for files to test (space-separated).", "glob")
	fs.String(&skipFiles, "skip-files", "", "", "Files to skip (space-separated).", "files")
	fs.String(&outputJSON, "output", "o", ".test_results.json", "Output file for the JSON test report.", "file")
	fs.String(&ignoreLines, "ignore-lines", "", "", "Comma-separated substrings to ignore during output comparison.", "list")
	fs.Var(&durationValue{&timeout}, "timeout", "", "Timeout for each command execution.", timeout.String(), "duration")
	fs.Var(&intValue{&jobs}, "jobs", "j", "Number of parallel test jobs.", strconv.Itoa(jobs), "n")
	fs.Bool(&verbose, "verbose", "v", false, "Print every run, not only failures.")

	setup := func() (string, error) {
		if verbose {
			util.ConfigureLogging(1)
		} else {
			util.ConfigureLogging(0)
		}
		if jobs < 1 {
			jobs = 1
		}
		tempDir, err := os.MkdirTemp("", "gtest-*")
		if err != nil {
			return "", fmt.Errorf("failed to create temp directory: %w", err)
		}
		setupInterruptHandler(tempDir)
		return tempDir, nil
	}

	app.AddCommand(&cli.Command{
		Name:     "check",
		Synopsis: "Compare every test file against its golden file",
		Action: func(args []string) error {
			tempDir, err := setup()
			if err != nil {
				return err
			}
			defer os.RemoveAll(tempDir)
			return runTestSuite(tempDir)
		},
	})
	app.AddCommand(&cli.Command{
		Name:     "golden",
		Usage:    "[file.sw...]",
		Synopsis: "Record golden files (for every test file when none are given)",
		Action: func(args []string) error {
			tempDir, err := setup()
			if err != nil {
				return err
			}
			defer os.RemoveAll(tempDir)
			if len(args) == 0 {
				if args, err = expandGlobPatterns(testFiles); err != nil {
					return err
				}
			}
			for _, file := range args {
				if err := writeGolden(file, tempDir); err != nil {
					return err
				}
			}
			return nil
		},
	})

	if err := app.Run(os.Args[1:]); err != nil {
		var usage *cli.UsageError
		if !errors.As(err, &usage) {
			fmt.Fprintf(os.Stderr, "%s[ERROR]%s %v\n", cRed, cNone, err)
		}
		os.Exit(1)
	}
}

// setupInterruptHandler is used to clean up on CTRL+C
func setupInterruptHandler(tempDir string) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		os.RemoveAll(tempDir)
		fmt.Printf("\n%s[INTERRUPT]%s Test run cancelled. Cleaning up...\n", cYellow, cNone)
		os.Exit(1)
	}()
}

func goldenPath(sourceFile string) string {
	return filepath.Join(filepath.Dir(sourceFile), "."+filepath.Base(sourceFile)+".json")
}

// hashFile computes the xxhash of a file's content
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

func writeGolden(sourceFile, tempDir string) error {
	fileHash, err := hashFile(sourceFile)
	if err != nil {
		return fmt.Errorf("could not hash %s: %w", sourceFile, err)
	}
	run := runSource(sourceFile)
	if run.TimedOut {
		return fmt.Errorf("%s timed out; refusing to record it", sourceFile)
	}
	jsonData, err := json.MarshalIndent(Golden{SourceHash: fileHash, Run: run}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal golden data: %w", err)
	}
	path := goldenPath(sourceFile)
	if err := os.WriteFile(path, jsonData, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file %s: %w", path, err)
	}
	fmt.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, path)
	return nil
}

func runTestSuite(tempDir string) error {
	if _, err := exec.LookPath(binary); err != nil {
		return fmt.Errorf("swindle binary '%s' not found: %w", binary, err)
	}

	files, err := expandGlobPatterns(testFiles)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No test files found matching the pattern(s).")
		return nil
	}

	skipList := make(map[string]bool)
	for _, f := range strings.Fields(skipFiles) {
		skipList[f] = true
	}

	tasks := make(chan string, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup

	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				resultsChan <- testFile(file, tempDir)
			}
		}()
	}

	// Feed the tasks channel, skipping files with identical content
	seenHashes := make(map[string]string)
	for _, file := range files {
		if skipList[file] || skipList[filepath.Base(file)] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		fileHash, err := hashFile(file)
		if err != nil {
			resultsChan <- &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file for hashing: %v", err)}
			continue
		}
		if originalFile, seen := seenHashes[fileHash]; seen {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", originalFile)}
			continue
		}
		seenHashes[fileHash] = file
		tasks <- file
	}
	close(tasks)

	wg.Wait()
	close(resultsChan)

	var allResults []*FileTestResult
	for result := range resultsChan {
		allResults = append(allResults, result)
	}
	sort.Slice(allResults, func(i, j int) bool { return allResults[i].File < allResults[j].File })

	printSummary(allResults)
	if hasFailures(writeJSONReport(allResults)) {
		return fmt.Errorf("some tests failed")
	}
	return nil
}

func testFile(file, tempDir string) *FileTestResult {
	goldenData, err := os.ReadFile(goldenPath(file))
	if err != nil {
		return &FileTestResult{File: file, Status: "SKIP", Message: "No golden file; run 'gtest golden " + file + "'"}
	}
	var golden Golden
	if err := json.Unmarshal(goldenData, &golden); err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not parse golden file: %v", err)}
	}
	if fileHash, err := hashFile(file); err == nil && fileHash != golden.SourceHash {
		log.Warningf("%s changed since its golden file was recorded", file)
	}

	run := runSource(file)
	result := &FileTestResult{File: file, Golden: &golden, Run: &run}
	var diffs strings.Builder
	compareExecution(&diffs, "run", golden.Run, run)

	// A program that compiles must behave the same when loaded from its bytecode file.
	if golden.Run.ExitCode == 0 {
		compiled := filepath.Join(tempDir, filepath.Base(file)+"bc")
		build := execute(binary, append(extraArgs(), "build", "-o", compiled, file)...)
		if build.ExitCode != 0 || build.TimedOut {
			fmt.Fprintf(&diffs, "build failed with exit code %d:\n%s", build.ExitCode, build.Stderr)
		} else {
			execRun := execute(binary, append(extraArgs(), "exec", compiled)...)
			result.Exec = &execRun
			compareExecution(&diffs, "exec", golden.Run, execRun)
		}
	}

	if diffs.Len() > 0 {
		result.Status, result.Message, result.Diff = "FAIL", "Output or exit code mismatch", diffs.String()
		return result
	}
	result.Status, result.Message = "PASS", "Output matches golden file"
	return result
}

func compareExecution(diffs *strings.Builder, name string, want, got Execution) {
	ignored := []string{}
	if ignoreLines != "" {
		ignored = strings.Split(ignoreLines, ",")
	}
	if got.TimedOut {
		fmt.Fprintf(diffs, "'%s' timed out after %s\n", name, timeout)
		return
	}
	if want.ExitCode != got.ExitCode {
		fmt.Fprintf(diffs, "'%s' exit code mismatch:\n  - Golden: %d\n  - Got:    %d\n", name, want.ExitCode, got.ExitCode)
	}
	if filterOutput(want.Stdout, ignored) != filterOutput(got.Stdout, ignored) {
		fmt.Fprintf(diffs, "'%s' STDOUT mismatch:\n%s", name, cmp.Diff(want.Stdout, got.Stdout))
	}
	if filterOutput(want.Stderr, ignored) != filterOutput(got.Stderr, ignored) {
		fmt.Fprintf(diffs, "'%s' STDERR mismatch:\n%s", name, cmp.Diff(want.Stderr, got.Stderr))
	}
}

func extraArgs() []string { return strings.Fields(binaryArgs) }

func runSource(file string) Execution {
	return execute(binary, append(extraArgs(), "run", file)...)
}

// execute runs a command with a timeout and captures its output
func execute(command string, args ...string) Execution {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	startTime := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	result := Execution{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(startTime)}
	var exitErr *exec.ExitError
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		result.TimedOut = true
		result.ExitCode = -1
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	case err != nil:
		result.ExitCode = -2
		result.Stderr += "\nExecution error: " + err.Error()
	}
	return result
}

// filterOutput removes lines containing any of the given substrings
func filterOutput(output string, ignoredSubstrings []string) string {
	if len(ignoredSubstrings) == 0 || output == "" {
		return output
	}
	lines := strings.Split(output, "\n")
	filteredLines := make([]string, 0, len(lines))
	for _, line := range lines {
		ignore := false
		for _, sub := range ignoredSubstrings {
			if sub != "" && strings.Contains(line, sub) {
				ignore = true
				break
			}
		}
		if !ignore {
			filteredLines = append(filteredLines, line)
		}
	}
	return strings.Join(filteredLines, "\n")
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%6dµs", d.Microseconds())
	}
	return fmt.Sprintf("%6dms", d.Milliseconds())
}

func printSummary(results []*FileTestResult) {
	var passed, failed, skipped, errored int
	var total time.Duration
	for _, result := range results {
		if result.Status == "PASS" && !verbose {
			passed++
			continue
		}
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, result.File, cNone)

		switch result.Status {
		case "PASS":
			passed++
			fmt.Printf("  [%sPASS%s] %s\n", cGreen, cNone, result.Message)
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, result.Message)
			fmt.Println(formatDiff(result.Diff))
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, result.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, result.Message)
		}
		if result.Run != nil {
			total += result.Run.Duration
			if verbose {
				fmt.Printf("  run: %s\n", formatDuration(result.Run.Duration))
			}
		}
		if result.Exec != nil && verbose {
			fmt.Printf("  exec: %s\n", formatDuration(result.Exec.Duration))
		}
	}

	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if strings.HasPrefix(trimmedLine, "-") {
			builder.WriteString(cRed)
		} else if strings.HasPrefix(trimmedLine, "+") {
			builder.WriteString(cGreen)
		}
		builder.WriteString("    " + line)
		builder.WriteString(cNone)
		builder.WriteString("\n")
	}
	return builder.String()
}

func writeJSONReport(results []*FileTestResult) TestSuiteResults {
	resultsMap := make(TestSuiteResults, len(results))
	for _, r := range results {
		resultsMap[r.File] = r
	}

	jsonData, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Errorf("failed to marshal results to JSON: %v", err)
		return resultsMap
	}
	if err := os.WriteFile(outputJSON, jsonData, 0o644); err != nil {
		log.Errorf("failed to write JSON report to %s: %v", outputJSON, err)
	} else {
		fmt.Printf("Full test report saved to %s\n", outputJSON)
	}
	return resultsMap
}

func hasFailures(results TestSuiteResults) bool {
	for _, result := range results {
		if result.Status == "FAIL" || result.Status == "ERROR" {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			absFile, err := filepath.Abs(file)
			if err != nil {
				continue
			}
			if !seen[absFile] {
				if info, err := os.Stat(absFile); err == nil && info.Mode().IsRegular() {
					allFiles = append(allFiles, absFile)
					seen[absFile] = true
				}
			}
		}
	}
	return allFiles, nil
}
