package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/modscope/backend/internal/analysis"
	"github.com/modscope/backend/internal/conflict"
	"github.com/modscope/backend/internal/loadorder"
	"github.com/modscope/backend/internal/plugin"

	"github.com/spf13/cobra"
)

var (
	includeHashes bool
	localPlugins  string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run an analysis without the HTTP server",
}

var analyzeFomodCmd = &cobra.Command{
	Use:   "fomod <game> <modId> <fileId>",
	Short: "Parse a mod file's FOMOD installer",
	Long: `Download one mod file and parse its FOMOD installer definition.

Examples:
  modscope analyze fomod skyrimspecialedition 12604 464063
  modscope analyze fomod skyrimspecialedition 12604 464063 --json`,
	Args: cobra.ExactArgs(3),
	RunE: runAnalyzeFomod,
}

var analyzeLoadOrderCmd = &cobra.Command{
	Use:   "loadorder [<slug> <revision>]",
	Short: "Check a collection revision's plugin load order",
	Long: `Analyze the plugin load order of a collection revision, or of local
plugin files given with --plugins.

Examples:
  modscope analyze loadorder my-collection 12
  modscope analyze loadorder --plugins Skyrim.esm,MyMod.esp`,
	RunE: runAnalyzeLoadOrder,
}

var analyzeConflictsCmd = &cobra.Command{
	Use:   "conflicts <slug> <revision>",
	Short: "Detect file conflicts in a collection revision",
	Long: `Analyze file conflicts between the mods of a collection revision.

With --hashes every archive is read in full so byte-identical duplicates
can be told apart from real overwrites.

Examples:
  modscope analyze conflicts my-collection 12
  modscope analyze conflicts my-collection 12 --hashes`,
	Args: cobra.ExactArgs(2),
	RunE: runAnalyzeConflicts,
}

func init() {
	analyzeConflictsCmd.Flags().BoolVar(&includeHashes, "hashes", false, "hash file contents to detect identical duplicates")
	analyzeLoadOrderCmd.Flags().StringVar(&localPlugins, "plugins", "", "comma-separated plugin files to analyze locally")

	analyzeCmd.AddCommand(analyzeFomodCmd)
	analyzeCmd.AddCommand(analyzeLoadOrderCmd)
	analyzeCmd.AddCommand(analyzeConflictsCmd)
	rootCmd.AddCommand(analyzeCmd)
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}

func runAnalyzeFomod(cmd *cobra.Command, args []string) error {
	game := args[0]
	modID, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid mod id %q", args[1])
	}
	fileID, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid file id %q", args[2])
	}

	application, err := initApp()
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := commandContext(cmd)
	defer stop()

	result, err := application.service.AnalyzeFomod(ctx, game, modID, fileID)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printResult(result)
	}
	printFomod(os.Stdout, result)
	return nil
}

func printFomod(w io.Writer, result *analysis.FomodAnalysis) {
	if !result.HasFomod {
		fmt.Fprintln(w, "No FOMOD installer found.")
		return
	}

	fmt.Fprintf(w, "Installer: %s\n", result.Data.Config.ModuleName)
	if info := result.Data.Info; info != nil {
		if info.Author != "" {
			fmt.Fprintf(w, "Author:    %s\n", info.Author)
		}
		if info.Version != "" {
			fmt.Fprintf(w, "Version:   %s\n", info.Version)
		}
	}
	fmt.Fprintf(w, "Install steps: %d\n", len(result.Data.Config.InstallSteps))
	for _, step := range result.Data.Config.InstallSteps {
		fmt.Fprintf(w, "  - %s (%d groups)\n", step.Name, len(step.OptionGroups))
	}
}

func runAnalyzeLoadOrder(cmd *cobra.Command, args []string) error {
	ctx, stop := commandContext(cmd)
	defer stop()

	if localPlugins != "" {
		return analyzeLocalPlugins(ctx, localPlugins)
	}

	if len(args) != 2 {
		return fmt.Errorf("expected <slug> <revision> or --plugins")
	}
	revision, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid revision %q", args[1])
	}

	application, err := initApp()
	if err != nil {
		return err
	}
	defer application.Close()

	result, err := application.service.AnalyzeCollectionLoadOrder(ctx, args[0], revision)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printResult(result)
	}
	fmt.Printf("Collection: %s (revision %d)\n\n", result.CollectionName, result.Revision)
	printLoadOrder(os.Stdout, result.Result)
	return nil
}

// analyzeLocalPlugins runs the load-order analyzer over local files.
// Names that do not exist on disk are treated as filename-only entries.
func analyzeLocalPlugins(ctx context.Context, list string) error {
	var entries []loadorder.Entry
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		if _, err := os.Stat(name); err == nil {
			header, err := plugin.ParseFile(name)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: parsing %s: %v\n", name, err)
				entries = append(entries, loadorder.Entry{Filename: filepath.Base(name)})
				continue
			}
			entries = append(entries, loadorder.Entry{Filename: filepath.Base(name), Header: header})
			continue
		}
		entries = append(entries, loadorder.Entry{Filename: filepath.Base(name)})
	}

	result, err := loadorder.Analyze(ctx, entries)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printResult(result)
	}
	printLoadOrder(os.Stdout, result)
	return nil
}

func printLoadOrder(w io.Writer, result *loadorder.Result) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPLUGIN\tTYPE\tMASTERS\tISSUES")
	for _, p := range result.Plugins {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n", p.Index, p.Filename, p.Type, len(p.Masters), p.IssueCount)
	}
	tw.Flush()

	if len(result.Issues) == 0 {
		fmt.Fprintln(w, "\nNo load order issues found.")
		return
	}

	fmt.Fprintf(w, "\nIssues (%d):\n", len(result.Issues))
	for _, issue := range result.Issues {
		fmt.Fprintf(w, "  [%s] %s\n", issue.Severity, issue.Message)
	}
}

func runAnalyzeConflicts(cmd *cobra.Command, args []string) error {
	revision, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid revision %q", args[1])
	}

	application, err := initApp()
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := commandContext(cmd)
	defer stop()

	result, err := application.service.AnalyzeCollectionConflicts(ctx, args[0], revision, includeHashes)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printResult(result)
	}
	fmt.Printf("Collection: %s (revision %d)\n\n", result.CollectionName, result.Revision)
	printConflicts(os.Stdout, result.Result)
	return nil
}

func printConflicts(w io.Writer, result *conflict.Result) {
	stats := result.Stats
	fmt.Fprintf(w, "Mods analyzed: %d, files: %d, conflicts: %d\n",
		stats.ModsAnalyzed, stats.TotalFiles, stats.TotalConflicts)

	if len(result.Conflicts) == 0 {
		fmt.Fprintln(w, "\nNo conflicts found.")
		return
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEVERITY\tSCORE\tPATH\tWINNER")
	for _, c := range result.Conflicts {
		winner := ""
		if c.Winner != nil {
			winner = c.Winner.ModName
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", c.Severity, c.Score, c.Path, winner)
	}
	tw.Flush()
}
