package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/nickyhof/mydb"
	"github.com/nickyhof/mydb/config"
	"github.com/nickyhof/mydb/library"
	"github.com/nickyhof/mydb/logging"
)

const (
	PromptColor  = "\033[36m" // Cyan
	ErrorColor   = "\033[31m" // Red
	SuccessColor = "\033[32m" // Green
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

// Version is set at build time via -ldflags
var Version = "dev"

// CLI holds the CLI state
type CLI struct {
	db          *mydb.DB
	out         io.Writer
	history     []string
	historyFile string
}

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdin, os.Stdout))
}

// realMain returns instead of exiting so that the database handle is always
// closed before the process ends.
func realMain(args []string, in io.Reader, out io.Writer) int {
	flags := pflag.NewFlagSet("mydb", pflag.ContinueOnError)
	flags.String("config", "", "Config file (default: mydb.yaml in ., ./config, /etc/mydb)")
	flags.String("library", "", "Engine library: path, file://, http(s):// or s3:// URL")
	flags.String("cache-dir", "", "Directory for downloaded libraries")
	flags.String("db", "", "Database path (default :memory:)")
	flags.String("driver", "", "Embedded engine driver: duckdb or sqlite3")
	flags.Bool("embedded", false, "Use the embedded engine instead of a shared library")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-file", "", "Also write logs to this rotating file")
	sqlFile := flags.String("file", "", "SQL file to execute (non-interactive)")
	showVersion := flags.Bool("version", false, "Show version and exit")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintf(out, "mydb v%s\n", Version)
		return 0
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(out, "%sError: %v%s\n", ErrorColor, err, ResetColor)
		return 1
	}

	log, err := logging.New(logging.Options{
		Level:       cfg.Log.Level,
		File:        cfg.Log.File,
		Development: true,
	})
	if err != nil {
		fmt.Fprintf(out, "%sError: %v%s\n", ErrorColor, err, ResetColor)
		return 1
	}
	defer log.Sync()

	lib, err := library.Resolve(context.Background(), cfg, log)
	if err != nil {
		fmt.Fprintf(out, "%sError: %v%s\n", ErrorColor, err, ResetColor)
		return 1
	}

	if *sqlFile == "" {
		printBanner(out)
	}

	err = mydb.With(lib, cfg.Database.Path, func(db *mydb.DB) error {
		fmt.Fprintf(out, "%sOpened %s with %s%s\n", SuccessColor, cfg.Database.Path, lib.Name(), ResetColor)

		cli := &CLI{
			db:          db,
			out:         out,
			history:     make([]string, 0),
			historyFile: getHistoryPath(),
		}

		if *sqlFile != "" {
			return cli.importFile(*sqlFile)
		}

		cli.loadHistory()
		cli.run(in)
		cli.saveHistory()
		return nil
	}, mydb.WithLogger(log))
	if err != nil {
		fmt.Fprintf(out, "%sError: %v%s\n", ErrorColor, err, ResetColor)
		return 1
	}
	return 0
}

func printBanner(out io.Writer) {
	fmt.Fprintln(out)
	bannerWidth := 39 // inner width of the banner box
	versionLine := fmt.Sprintf("mydb v%s", Version)
	padding := bannerWidth - len(versionLine) - 2 // -2 for "  " margins
	if padding < 0 {
		padding = 0
	}
	leftPad := padding / 2
	rightPad := padding - leftPad

	fmt.Fprintf(out, "%s%s╔═══════════════════════════════════════╗%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintf(out, "%s%s║ %*s%s%*s ║%s\n", BoldColor, PromptColor, leftPad, "", versionLine, rightPad, "", ResetColor)
	fmt.Fprintf(out, "%s%s║   Embedded SQL over a C ABI           ║%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintf(out, "%s%s╚═══════════════════════════════════════╝%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Type .help for commands, .quit to exit")
	fmt.Fprintln(out)
}

func (cli *CLI) run(in io.Reader) {
	reader := bufio.NewReader(in)
	var multiLineBuffer strings.Builder

	for {
		fmt.Fprint(cli.out, cli.getPrompt(multiLineBuffer.Len() > 0))

		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			fmt.Fprintf(cli.out, "\n%sGoodbye!%s\n", SuccessColor, ResetColor)
			return
		}

		input = strings.TrimSuffix(input, "\n")
		input = strings.TrimSuffix(input, "\r")

		if strings.TrimSpace(input) == "" {
			continue
		}

		// Special commands only when not in multi-line mode
		if multiLineBuffer.Len() == 0 && strings.HasPrefix(input, ".") {
			if quit := cli.handleCommand(input); quit {
				return
			}
			continue
		}

		// Multi-line support: accumulate until we see a semicolon
		multiLineBuffer.WriteString(input)

		trimmed := strings.TrimSpace(multiLineBuffer.String())
		if !strings.HasSuffix(trimmed, ";") {
			multiLineBuffer.WriteString(" ")
			continue
		}

		sql := strings.TrimSuffix(trimmed, ";")
		multiLineBuffer.Reset()

		if strings.TrimSpace(sql) == "" {
			continue
		}

		cli.addToHistory(sql + ";")
		cli.execute(sql)
	}
}

// execute runs one statement and prints the status and the raw payload.
func (cli *CLI) execute(sql string) bool {
	result, err := cli.db.Execute(sql)

	var execErr *mydb.ExecutionError
	if err != nil && !errors.As(err, &execErr) {
		fmt.Fprintf(cli.out, "%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		return false
	}

	color := SuccessColor
	if execErr != nil {
		color = ErrorColor
	}
	fmt.Fprintf(cli.out, "%sstatus %d%s\n", color, result.Status(), ResetColor)
	fmt.Fprintln(cli.out, payloadText(result))
	if result.Lossy() {
		fmt.Fprintf(cli.out, "%s(payload was not valid UTF-8)%s\n", ErrorColor, ResetColor)
	}
	return execErr == nil
}

func payloadText(result *mydb.Result) string {
	if result.NoContent() {
		return "<null>"
	}
	return result.Text()
}

func (cli *CLI) getPrompt(multiLine bool) string {
	if multiLine {
		return fmt.Sprintf("%s   ...>%s ", PromptColor, ResetColor)
	}
	return fmt.Sprintf("%smydb>%s ", PromptColor, ResetColor)
}

// handleCommand runs a dot command and reports whether the CLI should exit.
func (cli *CLI) handleCommand(input string) bool {
	parts := strings.Fields(strings.TrimSpace(input))
	if len(parts) == 0 {
		return false
	}

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit", ".q":
		fmt.Fprintf(cli.out, "%sGoodbye!%s\n", SuccessColor, ResetColor)
		return true

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".clear", ".cls":
		fmt.Fprint(cli.out, "\033[H\033[2J")

	case ".history":
		cli.printHistory()

	case ".version":
		fmt.Fprintf(cli.out, "mydb version %s\n", Version)

	case ".library":
		lib := cli.db.Library()
		fmt.Fprintf(cli.out, "library: %s\nfree:    %s\ndatabase: %s\n", lib.Name(), lib.FreeSymbol(), cli.db.Path())

	case ".import":
		if len(parts) > 1 {
			if err := cli.importFile(parts[1]); err != nil {
				fmt.Fprintf(cli.out, "%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
			}
		} else {
			fmt.Fprintf(cli.out, "%s✗ Usage: .import <file.sql>%s\n", ErrorColor, ResetColor)
		}

	default:
		fmt.Fprintf(cli.out, "%s✗ Unknown command: %s (type .help for commands)%s\n", ErrorColor, parts[0], ResetColor)
	}

	return false
}

func (cli *CLI) printHelp() {
	fmt.Fprintln(cli.out)
	fmt.Fprintf(cli.out, "%s%sSpecial Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(cli.out, "  .help, .h        Show this help message")
	fmt.Fprintln(cli.out, "  .quit, .exit     Exit the CLI")
	fmt.Fprintln(cli.out, "  .import <file>   Execute SQL statements from a file")
	fmt.Fprintln(cli.out, "  .library         Show the bound engine library")
	fmt.Fprintln(cli.out, "  .history         Show command history")
	fmt.Fprintln(cli.out, "  .clear           Clear the screen")
	fmt.Fprintln(cli.out, "  .version         Show version info")
	fmt.Fprintln(cli.out)
	fmt.Fprintln(cli.out, "Statements end with ';' and are passed to the engine unchanged.")
	fmt.Fprintln(cli.out, "Each reply is shown as its status code and raw payload; <null> means no content.")
	fmt.Fprintln(cli.out)
}

func (cli *CLI) addToHistory(cmd string) {
	// Don't add duplicates of the last command
	if len(cli.history) > 0 && cli.history[len(cli.history)-1] == cmd {
		return
	}
	cli.history = append(cli.history, cmd)

	if len(cli.history) > 1000 {
		cli.history = cli.history[len(cli.history)-1000:]
	}
}

func (cli *CLI) printHistory() {
	if len(cli.history) == 0 {
		fmt.Fprintln(cli.out, "No command history")
		return
	}

	start := 0
	if len(cli.history) > 20 {
		start = len(cli.history) - 20
	}

	for i := start; i < len(cli.history); i++ {
		fmt.Fprintf(cli.out, "  %3d  %s\n", i+1, cli.history[i])
	}
}

func getHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".mydb_history")
}

func (cli *CLI) loadHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Open(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		cli.history = append(cli.history, scanner.Text())
	}
}

func (cli *CLI) saveHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Create(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	start := 0
	if len(cli.history) > 1000 {
		start = len(cli.history) - 1000
	}

	w := bufio.NewWriter(file)
	for i := start; i < len(cli.history); i++ {
		_, _ = w.WriteString(cli.history[i] + "\n")
	}
	_ = w.Flush()
}

// importFile reads and executes SQL statements from a file
func (cli *CLI) importFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	successCount := 0
	errorCount := 0

	for i, stmt := range splitStatements(string(data)) {
		result, err := cli.db.Execute(stmt)
		if err != nil {
			fmt.Fprintf(cli.out, "%s[%d] ✗ %s%s\n", ErrorColor, i+1, truncate(stmt, 50), ResetColor)
			fmt.Fprintf(cli.out, "      Error: %v\n", err)
			errorCount++
			if errors.Is(err, mydb.ErrClosed) {
				break
			}
			continue
		}

		successCount++
		detail := ""
		if rows, err := result.Rows(); err == nil {
			detail = fmt.Sprintf(" (%d rows)", len(rows))
		} else if msg, ok := result.Message(); ok {
			detail = " (" + msg + ")"
		}
		fmt.Fprintf(cli.out, "%s[%d] ✓ %s%s%s\n", SuccessColor, i+1, truncate(stmt, 50), detail, ResetColor)
	}

	fmt.Fprintf(cli.out, "\n%s✓ Import complete: %d succeeded, %d failed%s\n",
		SuccessColor, successCount, errorCount, ResetColor)

	if errorCount > 0 {
		return fmt.Errorf("%d of %d statements failed", errorCount, successCount+errorCount)
	}
	return nil
}

// splitStatements splits SQL content into individual statements. Quotes are
// tracked so separators and comment markers inside literals are kept.
func splitStatements(content string) []string {
	var statements []string
	var current strings.Builder
	inString := false
	stringChar := byte(0)

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if (ch == '\'' || ch == '"') && (i == 0 || content[i-1] != '\\') {
			if !inString {
				inString = true
				stringChar = ch
			} else if ch == stringChar {
				inString = false
			}
		}

		// Skip line comments
		if !inString && ch == '-' && i+1 < len(content) && content[i+1] == '-' {
			for i < len(content) && content[i] != '\n' {
				i++
			}
			if i < len(content) {
				current.WriteByte('\n')
			}
			continue
		}

		if !inString && ch == ';' {
			if stmt := strings.TrimSpace(current.String()); stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
			continue
		}

		current.WriteByte(ch)
	}

	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}

	return statements
}

// truncate shortens a string to max runes with ellipsis
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
