// Command taskctl is a small terminal client for the task manager API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"taskmanager/pkg/client"
)

const usage = `Usage: taskctl [flags] <command> [args]

Commands:
  register <name> <email> <password>   create an account and print a token
  login <email> <password>             log in and print a token
  me                                   show the authenticated user
  list                                 list tasks
  admin                                list tasks with the admin page size
  create                               create a task (see create flags)
  complete <id>                        mark a task as completed
  update <id>                          update a task (see update flags)
  delete <id>                          delete a task

Flags:
  -url    server base URL (default http://localhost:8080, or TASKS_URL)
  -token  bearer token (or TASKS_TOKEN)
`

func main() {
	baseURL := flag.String("url", envOr("TASKS_URL", "http://localhost:8080"), "server base URL")
	token := flag.String("token", os.Getenv("TASKS_TOKEN"), "bearer token")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	c := client.New(*baseURL)
	c.SetToken(*token)

	ctx := context.Background()
	if err := run(ctx, c, args[0], args[1:]); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			fmt.Fprintf(os.Stderr, "error: %s\n", apiErr.Message)
			for field, messages := range apiErr.Errors {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", field, strings.Join(messages, " "))
			}
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client.Client, command string, args []string) error {
	switch command {
	case "register":
		if len(args) != 3 {
			return errors.New("usage: register <name> <email> <password>")
		}
		result, err := c.Register(ctx, args[0], args[1], args[2], args[2])
		if err != nil {
			return err
		}
		fmt.Printf("registered %s <%s>\ntoken: %s\n", result.User.Name, result.User.Email, result.Token)
		return nil

	case "login":
		if len(args) != 2 {
			return errors.New("usage: login <email> <password>")
		}
		result, err := c.Login(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("token: %s\n", result.Token)
		return nil

	case "me":
		user, err := c.Me(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s <%s>\n", user.Name, user.Email)
		return nil

	case "list":
		return listTasks(ctx, c, args, c.Tasks)

	case "admin":
		return listTasks(ctx, c, args, c.AdminTasks)

	case "create":
		return createTask(ctx, c, args)

	case "complete":
		if len(args) != 1 {
			return errors.New("usage: complete <id>")
		}
		if _, err := c.CompleteTask(ctx, args[0]); err != nil {
			return err
		}
		return printList(ctx, c)

	case "update":
		return updateTask(ctx, c, args)

	case "delete":
		if len(args) != 1 {
			return errors.New("usage: delete <id>")
		}
		if err := c.DeleteTask(ctx, args[0]); err != nil {
			return err
		}
		return printList(ctx, c)

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func listTasks(ctx context.Context, c *client.Client, args []string, fetch func(context.Context, int, int) (*client.Page, error)) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	page := fs.Int("page", 0, "page number")
	perPage := fs.Int("per-page", 0, "items per page")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result, err := fetch(ctx, *page, *perPage)
	if err != nil {
		return err
	}

	printPage(result)
	return nil
}

// printList refreshes and prints the first page, mirroring how the web UI
// reloads the listing after every mutation.
func printList(ctx context.Context, c *client.Client) error {
	result, err := c.Tasks(ctx, 0, 0)
	if err != nil {
		return err
	}
	printPage(result)
	return nil
}

func printPage(page *client.Page) {
	for i := range page.Data {
		printTask(&page.Data[i])
	}
	fmt.Printf("page %d/%d (%d tasks)\n", page.CurrentPage, page.LastPage, page.Total)
}

func createTask(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	title := fs.String("title", "", "task title")
	description := fs.String("description", "", "task description")
	dueDate := fs.String("due", "", "due date (YYYY-MM-DD)")
	imagePath := fs.String("image", "", "path to an image attachment")
	if err := fs.Parse(args); err != nil {
		return err
	}

	params := client.TaskParams{Title: title, DueDate: dueDate}
	if *description != "" {
		params.Description = description
	}
	if *imagePath != "" {
		image, err := readImage(*imagePath)
		if err != nil {
			return err
		}
		params.Image = image
	}

	if _, err := c.CreateTask(ctx, params); err != nil {
		return err
	}
	return printList(ctx, c)
}

func updateTask(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	title := fs.String("title", "", "new title")
	description := fs.String("description", "", "new description")
	dueDate := fs.String("due", "", "new due date (YYYY-MM-DD)")
	imagePath := fs.String("image", "", "path to a replacement image")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: update [flags] <id>")
	}

	var params client.TaskParams
	if *title != "" {
		params.Title = title
	}
	if *description != "" {
		params.Description = description
	}
	if *dueDate != "" {
		params.DueDate = dueDate
	}
	if *imagePath != "" {
		image, err := readImage(*imagePath)
		if err != nil {
			return err
		}
		params.Image = image
	}

	if _, err := c.UpdateTask(ctx, fs.Arg(0), params); err != nil {
		return err
	}
	return printList(ctx, c)
}

func readImage(path string) (*client.ImageFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &client.ImageFile{Name: filepath.Base(path), Data: data}, nil
}

func printTask(task *client.Task) {
	status := " "
	if task.Completed {
		status = "x"
	}
	fmt.Printf("[%s] %s  %s  (due %s)\n", status, task.ID, task.Title, task.DueDate)
	if task.Description != "" {
		fmt.Printf("      %s\n", task.Description)
	}
	if task.ImagePath != nil {
		fmt.Printf("      image: %s\n", *task.ImagePath)
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
