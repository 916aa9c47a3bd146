package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newHealthCmd(cl *client) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check ragchat server health",
		Long: `Check the health status of the ragchat HTTP server.

Examples:
  ragctl health
  ragctl health --server http://localhost:9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := cl.health(cmd.Context())
			if err != nil {
				return err
			}
			st := newStyles(cmd.OutOrStdout())
			fmt.Fprintf(cmd.OutOrStdout(), "Server Status: %s\n", st.ok.Render(status))
			fmt.Fprintf(cmd.OutOrStdout(), "Server URL: %s\n", cl.base)
			return nil
		},
	}
}

func newAppsCmd(cl *client) *cobra.Command {
	var outputJSON bool

	apps := &cobra.Command{
		Use:   "apps",
		Short: "Manage apps",
		Long: `Manage apps. Each app has its own documents and its own index.

Examples:
  ragctl apps create hr-policies --name "HR Policies"
  ragctl apps list
  ragctl apps get hr-policies
  ragctl apps delete hr-policies`,
	}
	apps.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output results as JSON")

	var name string
	create := &cobra.Command{
		Use:   "create <app-id>",
		Short: "Create an app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cl.createApp(cmd.Context(), args[0], name)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(cmd.OutOrStdout(), a)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created app %s (%s)\n", a.ID, a.Name)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "Display name (defaults to the app id)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List apps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := cl.listApps(cmd.Context())
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(cmd.OutOrStdout(), list)
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No apps found.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTATUS\tLAST INDEXED")
			for _, a := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Status, formatTime(a.LastIndexedAt))
			}
			return w.Flush()
		},
	}

	get := &cobra.Command{
		Use:   "get <app-id>",
		Short: "Show an app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cl.getApp(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(cmd.OutOrStdout(), a)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:           %s\n", a.ID)
			fmt.Fprintf(out, "Name:         %s\n", a.Name)
			fmt.Fprintf(out, "Status:       %s\n", a.Status)
			fmt.Fprintf(out, "Files:        %d\n", a.FileCount)
			fmt.Fprintf(out, "Created:      %s\n", a.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(out, "Last indexed: %s\n", formatTime(a.LastIndexedAt))
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <app-id>",
		Short: "Delete an app with its files and index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := cl.deleteApp(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}

	apps.AddCommand(create, list, get, del)
	return apps
}

func newFilesCmd(cl *client) *cobra.Command {
	files := &cobra.Command{
		Use:   "files",
		Short: "Manage an app's documents",
		Long: `Upload, list and delete the .txt and .md documents of an app.
Changes take effect after the next train.

Examples:
  ragctl files upload hr-policies handbook.md leave.txt
  ragctl files list hr-policies
  ragctl files delete hr-policies leave.txt`,
	}

	upload := &cobra.Command{
		Use:   "upload <app-id> <file>...",
		Short: "Upload documents",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := cl.upload(cmd.Context(), args[0], args[1:])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			st, errSt := newStyles(out), newStyles(cmd.ErrOrStderr())
			fmt.Fprintln(out, res.Message)
			for _, f := range res.Uploaded {
				fmt.Fprintf(out, "  %s %s %s\n", st.ok.Render("+"), f.Filename, st.dim.Render(fmt.Sprintf("(%d bytes)", f.Size)))
			}
			for _, e := range res.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s %s\n", errSt.err.Render("!"), e)
			}
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list <app-id>",
		Short: "List documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := cl.listFiles(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No files uploaded.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FILENAME\tSIZE\tUPLOADED")
			for _, f := range list {
				fmt.Fprintf(w, "%s\t%d\t%s\n", f.Filename, f.Size, f.UploadedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	del := &cobra.Command{
		Use:   "delete <app-id> <filename>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := cl.deleteFile(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}

	files.AddCommand(upload, list, del)
	return files
}

func newTrainCmd(cl *client) *cobra.Command {
	return &cobra.Command{
		Use:   "train <app-id>",
		Short: "Rebuild an app's index from its documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := cl.train(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d document(s), %d chunk(s), status %s\n",
				res.Message, res.Documents, res.Chunks, res.Status)
			return nil
		},
	}
}

func newChatCmd(cl *client) *cobra.Command {
	var msg string

	cmd := &cobra.Command{
		Use:   "chat <app-id>",
		Short: "Ask a trained app questions",
		Long: `Ask a trained app a question. Without --message, ragctl reads questions
from stdin until "exit", "quit" or end of input.

Examples:
  ragctl chat hr-policies --message "How many vacation days do I get?"
  ragctl chat hr-policies`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if msg != "" {
				return ask(cmd, cl, args[0], msg)
			}
			return chatLoop(cmd, cl, args[0])
		},
	}
	cmd.Flags().StringVarP(&msg, "message", "m", "", "Ask one question and exit")
	return cmd
}

func ask(cmd *cobra.Command, cl *client, appID, msg string) error {
	resp, err := cl.chat(cmd.Context(), appID, msg)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	st := newStyles(out)
	fmt.Fprintln(out, resp.Answer)
	if len(resp.Sources) > 0 {
		fmt.Fprintf(out, "%s %s\n", st.label.Render("Sources:"), st.dim.Render(strings.Join(resp.Sources, ", ")))
	}
	return nil
}

func chatLoop(cmd *cobra.Command, cl *client, appID string) error {
	out := cmd.OutOrStdout()
	st, errSt := newStyles(out), newStyles(cmd.ErrOrStderr())
	scanner := bufio.NewScanner(cmd.InOrStdin())
	fmt.Fprintf(out, "Chatting with %s. Type \"exit\" to quit.\n", appID)
	for {
		fmt.Fprint(out, st.label.Render(">")+" ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := ask(cmd, cl, appID, line); err != nil {
			// Keep the session alive; a single bad question is not fatal.
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", errSt.err.Render("Error:"), err)
		}
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}
