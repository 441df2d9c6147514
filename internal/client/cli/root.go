package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/everkeep/internal/buildinfo"
	"github.com/dmitrijs2005/everkeep/internal/client/config"
	"github.com/dmitrijs2005/everkeep/internal/journal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newApp is a test seam for NewApp.
var newApp = NewApp

const configHelp = `Configuration flags (parsed before the command):
  -c, -config <file>   JSON config file
  -a <url>             backup endpoint URL
  -d <path>            local database path
  -i <seconds>         online check interval
  -m local|s3          media backend
  -v <level>           log level
  -f <file>            log file`

// NewRootCommand builds the command tree. Every command except version opens
// the App before it runs and closes it afterwards; running without a command
// starts the interactive shell.
func NewRootCommand(cfg *config.Config) *cobra.Command {
	var app *App

	root := &cobra.Command{
		Use:           "everkeep",
		Short:         "An offline-first memory journal with optional cloud backup",
		Long:          "An offline-first memory journal with optional cloud backup.\n\n" + configHelp,
		Version:       buildinfo.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			a.out = cmd.OutOrStdout()
			app = a
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				app.Close()
				app = nil
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Shell(cmd.Context())
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "shell",
			Short: "Start the interactive journal shell",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.Shell(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show cloud backup status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				app.checkOnline(cmd.Context())
				app.printStatus()
				return nil
			},
		},
		&cobra.Command{
			Use:   "sync",
			Short: "Restore from and back up to the server now",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.Sync(cmd.Context(), "now")
			},
		},
		&cobra.Command{
			Use:       "cloud on|off",
			Short:     "Turn cloud backup on or off",
			Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
			ValidArgs: []string{"on", "off"},
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.Sync(cmd.Context(), args[0])
			},
		},
		newKeyCommand(&app),
		newListCommand(&app),
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show one memory",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.Show(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "tags",
			Short: "List all tags",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.Tags(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "export [file]",
			Short: "Export memories as JSON (metadata only)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path := ""
				if len(args) == 1 {
					path = args[0]
				}
				return app.Export(cmd.Context(), path)
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change a setting",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.Set(cmd.Context(), args[0], strings.Join(args[1:], " "))
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Run: func(cmd *cobra.Command, args []string) {
				buildinfo.PrintBuildData(cmd.OutOrStdout())
			},
		},
	)

	return root
}

func newKeyCommand(app **App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "key",
		Short: "Show the backup key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return (*app).Key(cmd.Context())
		},
	}

	rotate := &cobra.Command{
		Use:   "rotate",
		Short: "Switch to a new backup key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if yes {
				a.assumeYes = true
			}
			return a.RotateKey(cmd.Context())
		},
	}
	rotate.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	cmd.AddCommand(rotate)
	return cmd
}

func newListCommand(app **App) *cobra.Command {
	var f journal.Filters

	cmd := &cobra.Command{
		Use:   "list [search]",
		Short: "List memories, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Search = strings.Join(args, " ")
			return (*app).listMemories(f)
		},
	}
	addFilterFlags(cmd.Flags(), &f)
	return cmd
}

func addFilterFlags(fs *pflag.FlagSet, f *journal.Filters) {
	fs.StringVar(&f.Section, "section", journal.FilterAll, "section id")
	fs.StringVar(&f.Visibility, "visibility", journal.FilterAll, "Private, Family or Selected")
	fs.StringVar(&f.Tag, "tag", journal.FilterAll, "tag")
	fs.StringVar(&f.Person, "person", journal.FilterAll, "person id")
	fs.StringVar(&f.Place, "place", journal.FilterAll, "place id")
	fs.StringVar(&f.Date, "date", journal.DateWindowAny, "any, last7, last30 or year")
}

// Shell runs the interactive journal until the user exits or ctx is done.
func (a *App) Shell(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintln(a.out, "everkeep (type 'help' for commands)")

	a.checkOnline(ctx)
	a.syncer.Start()
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.promptStatus, a.reader, interactive())
	return nil
}

func (a *App) promptStatus() string {
	return fmt.Sprintf("(%s)", a.syncer.Status().Label)
}
