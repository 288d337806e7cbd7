package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/ggsql/ggsql/pkg/engine"
	"github.com/ggsql/ggsql/pkg/load"
	"github.com/ggsql/ggsql/pkg/reader"
	"github.com/ggsql/ggsql/pkg/session"
	"github.com/ggsql/ggsql/pkg/splitter"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Interactive query shell",
	Long: `Start a shell that keeps one reader connection open and renders each
query as you type it. Meta commands:

  \load <file> [name]   load a CSV/JSON/JSONL file as a table
  \tables               list tables loaded this session
  \drop <name>          drop a table loaded this session
  \quit                 leave the shell

Tables loaded in a session are dropped when the shell exits or after the
session has been idle for 30 minutes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunInteractive(cmd.Context())
	},
}

// RunInteractive drives the REPL: one session, one reader connection, each
// line either a meta command or a query.
func RunInteractive(ctx context.Context) error {
	r, err := reader.Open(ReaderConn)
	if err != nil {
		return fmt.Errorf("failed to open reader: %w", err)
	}
	defer r.Close()

	manager := session.NewManager()
	sess := manager.Create()
	eng := engine.New(r)

	fmt.Printf("ggsql interactive (session %s). Type \\quit to leave.\n", sess.ID)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "ggsql> ",
		HistoryFile:     "",
		InterruptPrompt: "^C",
		EOFPrompt:       "\\quit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		// Keep the session alive while it is being used, then sweep any
		// that went stale.
		manager.Get(sess.ID)
		reapExpired(ctx, r, manager, sessionTTL)
		if trimmed == "\\quit" || strings.EqualFold(trimmed, "exit") || strings.EqualFold(trimmed, "quit") {
			break
		}

		if strings.HasPrefix(trimmed, "\\") {
			if err := runMeta(ctx, r, manager, sess.ID, trimmed); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			continue
		}

		if err := runStatement(ctx, eng, r, trimmed); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	return cleanup(ctx, r, manager, sess.ID)
}

// runMeta dispatches backslash commands.
func runMeta(ctx context.Context, r *reader.SQLReader, manager *session.Manager, sessionID, line string) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "\\load":
		if len(fields) < 2 {
			return fmt.Errorf("usage: \\load <file> [name]")
		}
		filename := fields[1]
		name := strings.TrimSuffix(strings.TrimSuffix(strings.TrimSuffix(
			baseName(filename), ".csv"), ".json"), ".jsonl")
		if len(fields) > 2 {
			name = fields[2]
		}

		physical, err := manager.Register(sessionID, name)
		if err != nil {
			return err
		}
		n, err := load.File(ctx, r, filename, physical)
		if err != nil {
			return err
		}
		// A view under the logical name keeps queries readable.
		view := fmt.Sprintf(`CREATE VIEW "%s" AS SELECT * FROM "%s"`, name, physical)
		if err := r.Exec(ctx, view); err != nil {
			return err
		}
		fmt.Printf("Loaded %d row(s) into %s\n", n, name)
		return nil

	case "\\drop":
		if len(fields) != 2 {
			return fmt.Errorf("usage: \\drop <name>")
		}
		name := fields[1]
		physical, ok := manager.Resolve(sessionID, name)
		if !ok {
			return fmt.Errorf("no table %q in this session", name)
		}
		if err := r.Exec(ctx, fmt.Sprintf(`DROP VIEW IF EXISTS "%s"`, name)); err != nil {
			return err
		}
		if err := r.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, physical)); err != nil {
			return err
		}
		manager.Unregister(sessionID, name)
		fmt.Printf("Dropped %s\n", name)
		return nil

	case "\\tables":
		sess, ok := manager.Get(sessionID)
		if !ok {
			return fmt.Errorf("session %q not found", sessionID)
		}
		names := sess.TableNames()
		if len(names) == 0 {
			fmt.Println("No tables loaded")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	}
	return fmt.Errorf("unknown command %s", fields[0])
}

// runStatement renders lines carrying a visualization clause and executes
// plain SQL directly, printing rows.
func runStatement(ctx context.Context, eng *engine.Engine, r *reader.SQLReader, input string) error {
	if splitter.HasClause(input) {
		docs, err := eng.Render(ctx, input)
		for _, doc := range docs {
			out, merr := json.MarshalIndent(doc.Doc, "", "  ")
			if merr != nil {
				return merr
			}
			fmt.Println(string(out))
		}
		return err
	}

	result, err := r.Execute(ctx, input)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(result.Records(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// sessionTTL is how long a session may sit idle before its tables are
// reclaimed.
const sessionTTL = 30 * time.Minute

// reapExpired drops the tables of every session idle past ttl.
func reapExpired(ctx context.Context, r *reader.SQLReader, manager *session.Manager, ttl time.Duration) {
	for _, id := range manager.Expired(ttl) {
		_ = cleanup(ctx, r, manager, id)
	}
}

// cleanup drops the session's tables and views on exit.
func cleanup(ctx context.Context, r *reader.SQLReader, manager *session.Manager, sessionID string) error {
	sess, ok := manager.Get(sessionID)
	if ok {
		for _, name := range sess.TableNames() {
			_ = r.Exec(ctx, fmt.Sprintf(`DROP VIEW IF EXISTS "%s"`, name))
		}
	}
	for _, physical := range manager.Delete(sessionID) {
		_ = r.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, physical))
	}
	return nil
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
