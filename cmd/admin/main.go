// Command admin performs maintenance on persisted sessions: schema
// migration, build history lookup, and purging a session's rows and objects.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	flag "github.com/spf13/pflag"

	"resumekit/internal/config"
	"resumekit/internal/database"
	"resumekit/internal/storage"
)

const usage = `usage: admin <command> [flags]

commands:
  migrate                  create or update the tables
  history --session <id>   list the builds of a session
  objects --session <id>   list the stored objects of a session
  purge   --session <id>   delete a session's rows and stored objects
`

type options struct {
	session string
	limit   int
	dbHost  string
	dbPort  int
}

func parseArgs(args []string) (string, options, error) {
	var o options
	if len(args) == 0 {
		return "", o, errors.New("missing command")
	}
	cmd := args[0]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&o.session, "session", "", "会话 ID")
	fs.IntVar(&o.limit, "limit", 20, "history 返回的最大条数")
	fs.StringVar(&o.dbHost, "db-host", "", "数据库 Host（可选，默认读 DATABASE_HOST）")
	fs.IntVar(&o.dbPort, "db-port", 0, "数据库 Port（可选，默认读 DATABASE_PORT）")
	if err := fs.Parse(args[1:]); err != nil {
		return "", o, err
	}

	switch cmd {
	case "migrate":
	case "history", "objects", "purge":
		if strings.TrimSpace(o.session) == "" {
			return "", o, fmt.Errorf("%s: missing required flag: --session", cmd)
		}
	default:
		return "", o, fmt.Errorf("unknown command %q", cmd)
	}
	return cmd, o, nil
}

func main() {
	cmd, o, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if o.dbHost != "" {
		cfg.Database.Host = o.dbHost
	}
	if o.dbPort > 0 {
		cfg.Database.Port = o.dbPort
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if cmd == "objects" {
		store := mustStorage(ctx, cfg)
		if err := listObjects(ctx, store, o.session, o.limit, os.Stdout); err != nil {
			log.Fatalf("list objects: %v", err)
		}
		return
	}

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}
	recorder := database.NewRecorder(db)

	switch cmd {
	case "migrate":
		fmt.Println("数据库表结构已更新。")
	case "history":
		rows, err := recorder.History(ctx, o.session, o.limit)
		if err != nil {
			log.Fatalf("query history: %v", err)
		}
		printHistory(os.Stdout, rows)
	case "purge":
		store := mustStorage(ctx, cfg)
		n, err := purge(ctx, recorder, store, o.session)
		if err != nil {
			log.Fatalf("purge session: %v", err)
		}
		fmt.Printf("已清理会话 %s：删除 %d 条构建记录及其存储对象。\n", o.session, n)
	}
}

func mustStorage(ctx context.Context, cfg *config.Config) *storage.Client {
	store, err := storage.NewClient(ctx, cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	return store
}

type sessionPurger interface {
	PurgeSession(ctx context.Context, id string) (int64, error)
}

type prefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) error
}

// purge deletes objects first so a failure leaves the rows for a rerun.
func purge(ctx context.Context, rows sessionPurger, objects prefixDeleter, sessionID string) (int64, error) {
	var errs []error
	for _, prefix := range storage.SessionPrefixes(sessionID) {
		if err := objects.DeletePrefix(ctx, prefix); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return 0, err
	}
	return rows.PurgeSession(ctx, sessionID)
}

type objectLister interface {
	ListObjects(ctx context.Context, prefix string, limit int) ([]storage.ObjectMeta, error)
}

func listObjects(ctx context.Context, store objectLister, sessionID string, limit int, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSIZE\tMODIFIED")
	for _, prefix := range storage.SessionPrefixes(sessionID) {
		objs, err := store.ListObjects(ctx, prefix, limit)
		if err != nil {
			return err
		}
		for _, obj := range objs {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", obj.Key, obj.Size, obj.LastModified.Format(time.RFC3339))
		}
	}
	return tw.Flush()
}

func printHistory(w io.Writer, rows []database.Artifact) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GEN\tSTATUS\tTEMPLATE\tPAGES\tATTEMPTS\tERROR\tUPDATED")
	for _, r := range rows {
		errText := ""
		if r.FaultCode != 0 {
			errText = fmt.Sprintf("%d %s", r.FaultCode, r.FaultMessage)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.Generation, r.Status, r.Template, r.Pages, r.Attempts, errText, r.UpdatedAt.Format(time.RFC3339))
	}
	_ = tw.Flush()
}
