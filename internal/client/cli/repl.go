package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL needs. *App satisfies it;
// tests provide a lightweight stub.
type execIface interface {
	AddMemory(ctx context.Context) error
	EditMemory(ctx context.Context, id string) error
	List(ctx context.Context, query string) error
	Show(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	AddPerson(ctx context.Context) error
	AddSection(ctx context.Context) error
	Tags(ctx context.Context) error
	Sync(ctx context.Context, arg string) error
	Key(ctx context.Context) error
	RotateKey(ctx context.Context) error
	Export(ctx context.Context, path string) error
	Set(ctx context.Context, key, value string) error
}

const helpText = `Available commands:
  add                  write a new memory
  edit <id>            edit a memory
  list [search]        list memories, newest first
  show <id>            show one memory
  delete <id>          delete a memory and its media
  person               add a person
  section              add a section
  tags                 list all tags
  sync on|off|now      turn cloud backup on or off, or back up now
  status               show backup status
  key                  show the backup key
  rotate-key           switch to a new backup key
  export [file]        export memories as JSON (metadata only)
  set <key> <value>    change a setting
  exit | quit          leave the program`

// runREPL reads commands from reader and dispatches them to a until EOF or
// "exit". Handlers prompting for more input share the same reader. The
// prompt, built by statusFn, is printed only when prompt is true; handler
// errors are reported by the handlers themselves.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, prompt bool) {
	for {
		if prompt {
			printlnFn(fmt.Sprintf("everkeep %s> ", statusFn()))
		}
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		needID := func() (string, bool) {
			if len(args) == 0 {
				printlnFn(fmt.Sprintf("Usage: %s <id>", cmd))
				return "", false
			}
			return args[0], true
		}

		switch cmd {
		case "help", "?":
			printlnFn(helpText)

		case "add", "new":
			_ = a.AddMemory(ctx)

		case "edit":
			if id, ok := needID(); ok {
				_ = a.EditMemory(ctx, id)
			}

		case "l", "list":
			_ = a.List(ctx, strings.Join(args, " "))

		case "show":
			if id, ok := needID(); ok {
				_ = a.Show(ctx, id)
			}

		case "delete", "rm":
			if id, ok := needID(); ok {
				_ = a.Delete(ctx, id)
			}

		case "person":
			_ = a.AddPerson(ctx)

		case "section":
			_ = a.AddSection(ctx)

		case "tags":
			_ = a.Tags(ctx)

		case "sync":
			arg := ""
			if len(args) > 0 {
				arg = args[0]
			}
			_ = a.Sync(ctx, arg)

		case "status":
			_ = a.Sync(ctx, "status")

		case "key":
			_ = a.Key(ctx)

		case "rotate-key":
			_ = a.RotateKey(ctx)

		case "export":
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			_ = a.Export(ctx, path)

		case "set":
			if len(args) < 2 {
				printlnFn("Usage: set <key> <value>")
				continue
			}
			_ = a.Set(ctx, args[0], strings.Join(args[1:], " "))

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
