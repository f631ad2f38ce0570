package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"caseport/internal/app"
	"caseport/internal/domain"
)

func convertCmd() *cobra.Command {
	var outDir, format, compression string
	var jobs int
	var noRename, keepLegacy bool
	cmd := &cobra.Command{
		Use:   "convert [input-dir]",
		Short: "Convert every zip package in a directory",
		Long:  "Convert extracts each *.zip in input-dir (default: current directory), normalizes test file names, rewrites the legacy configuration document and packs the result into the output directory.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inDir := "."
			if len(args) == 1 {
				inDir = args[0]
			}
			return withWorkspace(false, func(ws *app.Workspace) error {
				cfg := *ws.Config
				if cmd.Flags().Changed("format") {
					cfg.Output.Format = format
				}
				if cmd.Flags().Changed("compression") {
					cfg.Output.Compression = compression
				}
				if noRename {
					cfg.Rename.Enabled = false
				}
				if keepLegacy {
					cfg.Output.KeepLegacy = true
				}
				if err := cfg.Validate(); err != nil {
					return err
				}
				e := ws.Engine
				e.Config = &cfg
				runs, err := e.ConvertDir(cmd.Context(), inDir, outDir, jobs)
				if perr := printRuns(cmd.OutOrStdout(), runs); perr != nil {
					return perr
				}
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "out", "output directory for converted packages")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "archives converted in parallel")
	cmd.Flags().StringVar(&format, "format", "", "canonical document format (json, yaml)")
	cmd.Flags().StringVar(&compression, "compression", "", "package compression (zstd, none)")
	cmd.Flags().BoolVar(&noRename, "no-rename", false, "leave test file names untouched")
	cmd.Flags().BoolVar(&keepLegacy, "keep-legacy", false, "keep the legacy document next to the canonical one")
	return cmd
}

func printRuns(w io.Writer, runs []domain.Run) error {
	if viper.GetBool("json") {
		if runs == nil {
			runs = []domain.Run{}
		}
		return printJSON(w, runs)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Source", "Status", "Docs", "Renamed", "Size", "Error"})
	for _, r := range runs {
		if r.ID == "" {
			continue
		}
		size := ""
		if r.Bytes > 0 {
			size = humanize.Bytes(uint64(r.Bytes))
		}
		tw.AppendRow(table.Row{shortID(r.ID), r.Source, r.Status, r.Documents, r.Renamed, size, r.Error})
	}
	tw.Render()
	return nil
}

func decodeCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "decode <file>",
		Short: "Print the canonical form of one legacy document",
		Long:  "Decode reads a legacy configuration document (use - for stdin) and prints the canonical cases configuration without touching the file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			return withWorkspace(true, func(ws *app.Workspace) error {
				cfg := *ws.Config
				if viper.GetBool("json") {
					cfg.Output.Format = "json"
				}
				if cmd.Flags().Changed("format") {
					cfg.Output.Format = format
				}
				if err := cfg.Validate(); err != nil {
					return err
				}
				e := ws.Engine
				e.Config = &cfg
				c, err := e.ConvertDocument(data)
				if err != nil {
					return err
				}
				out, err := e.Encode(c)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "output format (json, yaml)")
	return cmd
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(name)
}

func normalizeCmd() *cobra.Command {
	var answerExt, missingDigits string
	cmd := &cobra.Command{
		Use:   "normalize <dir>",
		Short: "Rename test files under a directory to <n>.in / <n>.out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(true, func(ws *app.Workspace) error {
				cfg := *ws.Config
				if cmd.Flags().Changed("answer-extension") {
					cfg.Rename.AnswerExtension = answerExt
				}
				if cmd.Flags().Changed("missing-digits") {
					cfg.Rename.MissingDigits = missingDigits
				}
				if err := cfg.Validate(); err != nil {
					return err
				}
				e := ws.Engine
				e.Config = &cfg
				report, err := e.Normalize(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if viper.GetBool("json") {
					return printJSON(out, report)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(out)
				tw.AppendHeader(table.Row{"From", "To"})
				for _, r := range report.Renamed {
					tw.AppendRow(table.Row{r.From, r.To})
				}
				tw.Render()
				for _, s := range report.Skipped {
					fmt.Fprintf(out, "skipped %s (no case number)\n", s)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&answerExt, "answer-extension", "", "answer file extension policy (out, ans)")
	cmd.Flags().StringVar(&missingDigits, "missing-digits", "", "policy for names without a case number (keep, reject)")
	return cmd
}
