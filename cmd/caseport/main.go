package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"caseport/internal/app"
	"caseport/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "caseport",
	Short: "Migrate legacy judge test-case packages",
	Long: `caseport rewrites legacy judge problem packages into the canonical layout.
Core concepts:
- Package: a zip archive holding test files and one legacy configuration document (config.yml or config.yaml).
- Legacy document: the old v1 (no version key) or v2 (version: 2) configuration with loosely typed time and memory limits.
- Canonical config: the typed cases configuration (score, judge, resource limits, cases or subtasks) written as config.json or config.yaml.
- Normalization: test files are renamed to <number>.in and <number>.out.
- Run: one archive conversion, journaled in .caseport/caseport.db; inspect with 'caseport runs'.
- Workspace config: caseport.yml (create one with 'caseport config init').`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnvFile(viper.GetString("workspace"))
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("CASEPORT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error); overrides caseport.yml")
	rootCmd.PersistentFlags().Bool("log-json", false, "emit logs as JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log-json", rootCmd.PersistentFlags().Lookup("log-json"))
}

func registerCommands() {
	rootCmd.AddCommand(convertCmd())
	rootCmd.AddCommand(decodeCmd())
	rootCmd.AddCommand(normalizeCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
}

// loadEnvFile loads <workspace>/.env without overriding the environment.
func loadEnvFile(workspace string) error {
	if workspace == "" {
		workspace = "."
	}
	path := filepath.Join(workspace, ".env")
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// --- helpers ---

func openWorkspace(noJournal bool) (*app.Workspace, error) {
	return app.Open(viper.GetString("workspace"), app.Options{
		LogLevel:  viper.GetString("log-level"),
		LogJSON:   viper.GetBool("log-json"),
		LogOutput: os.Stderr,
		NoJournal: noJournal,
	})
}

func withWorkspace(noJournal bool, fn func(*app.Workspace) error) error {
	ws, err := openWorkspace(noJournal)
	if err != nil {
		return err
	}
	defer ws.Close()
	return fn(ws)
}

func withJournal(fn func(*app.Workspace) error) error {
	return withWorkspace(false, func(ws *app.Workspace) error {
		if ws.DB == nil {
			return fmt.Errorf("journal is disabled; set journal.enabled in %s", config.FileName)
		}
		return fn(ws)
	})
}

func printJSONOrTable(w io.Writer, v any) error {
	if viper.GetBool("json") {
		return printJSON(w, v)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		// not an object; fall back to JSON
		return printJSON(w, v)
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Field", "Value"})
	for _, k := range keys {
		tw.AppendRow(table.Row{k, fields[k]})
	}
	tw.Render()
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
